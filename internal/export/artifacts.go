package export

import (
	"fmt"
	"os"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

// WriteArtifacts materialises graph under the layout: the global edge list,
// the edge to users map, node statistics and one edge list per user.
func WriteArtifacts(graph domain.Graph, layout Layout, opts Options) error {
	if err := os.MkdirAll(layout.UserEdgesDir(), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := WriteJSON(layout.EdgesPath(), NewEdgeList(graph.Edges), opts); err != nil {
		return err
	}

	edgeUsers := graph.EdgeUsers
	if edgeUsers == nil {
		edgeUsers = domain.EdgeUsers{}
	}
	if err := WriteJSON(layout.EdgeUsersPath(), edgeUsers, opts); err != nil {
		return err
	}

	if err := WriteJSON(layout.NodeStatsPath(), NewNodeStatsView(graph.NodeStats), opts); err != nil {
		return err
	}

	for _, ue := range graph.UserEdges {
		if err := WriteJSON(layout.UserEdgesPath(ue.UserID), NewUserEdgeList(ue.Edges), opts); err != nil {
			return err
		}
	}
	return nil
}
