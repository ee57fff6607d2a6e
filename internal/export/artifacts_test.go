package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

func sampleGraph() domain.Graph {
	return domain.Graph{
		RunID: "run-1",
		Edges: []domain.AggregatedEdge{
			{ID: 1, Origin: "a.com", Target: "b.com", NumUsers: 2},
			{ID: 2, Origin: "b.com", Target: "c.com", NumUsers: 1},
		},
		EdgeUsers: domain.EdgeUsers{
			"a.com|b.com": {1, 2},
			"b.com|c.com": {2},
		},
		UserEdges: []domain.UserEdges{
			{UserID: 1, Edges: []domain.Transition{{Origin: "a.com", Target: "b.com"}}},
			{UserID: 2, Edges: []domain.Transition{{Origin: "a.com", Target: "b.com"}, {Origin: "b.com", Target: "c.com"}}},
			{UserID: 3, Edges: []domain.Transition{}},
		},
		NodeStats: domain.NodeStats{
			ByOrigin: map[domain.Domain]domain.DomainStats{"a.com": {VisitCount: 2, TotalTimeSpent: 30, AvgTimePerVisit: 15}},
			ByTarget: map[domain.Domain]domain.DomainStats{"a.com": {VisitCount: 2, TotalTimeSpent: 30, AvgTimePerVisit: 15}},
		},
	}
}

func TestWriteArtifacts(t *testing.T) {
	layout := NewLayout(t.TempDir(), "")

	require.NoError(t, WriteArtifacts(sampleGraph(), layout, Options{}))

	var edges EdgeList
	require.NoError(t, ReadJSON(layout.EdgesPath(), &edges))
	assert.Equal(t, 2, edges.ResultsCount)
	assert.Equal(t, EdgeView{ID: 1, Origin: "a.com", Target: "b.com", NumUsers: 2}, edges.Results[0])

	var edgeUsers domain.EdgeUsers
	require.NoError(t, ReadJSON(layout.EdgeUsersPath(), &edgeUsers))
	assert.Equal(t, []int64{1, 2}, edgeUsers["a.com|b.com"])

	var stats NodeStatsView
	require.NoError(t, ReadJSON(layout.NodeStatsPath(), &stats))
	assert.Equal(t, 15.0, stats.ByOrigin["a.com"].AvgTimePerVisit)
	assert.Equal(t, stats.ByOrigin, stats.ByTarget)

	var user2 EdgeList
	require.NoError(t, ReadJSON(layout.UserEdgesPath(2), &user2))
	assert.Equal(t, []EdgeView{
		{ID: 1, Origin: "a.com", Target: "b.com", NumUsers: 1},
		{ID: 2, Origin: "b.com", Target: "c.com", NumUsers: 1},
	}, user2.Results)

	var user3 EdgeList
	require.NoError(t, ReadJSON(layout.UserEdgesPath(3), &user3))
	assert.Equal(t, 0, user3.ResultsCount)
	assert.NotNil(t, user3.Results)
}

func TestLayoutPaths(t *testing.T) {
	layout := NewLayout("public/jsons", "u10")

	assert.Equal(t, filepath.Join("public/jsons", "edges_u10.json"), layout.EdgesPath())
	assert.Equal(t, filepath.Join("public/jsons", "user_edges_u10", "42.json"), layout.UserEdgesPath(42))
	assert.Equal(t, DefaultSuffix, NewLayout("x", "").Suffix)
}

func TestEncodeKeepsRawCharacters(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Encode(&buf, map[string]string{"edge": "a.com|b.com&c"}, Options{}))

	assert.Equal(t, "{\"edge\":\"a.com|b.com&c\"}\n", buf.String())
}

func TestEdgeListRoundTripsToDomain(t *testing.T) {
	graph := sampleGraph()

	assert.Equal(t, graph.Edges, NewEdgeList(graph.Edges).AggregatedEdges())
	assert.Equal(t, graph.UserEdges[1].Edges, NewUserEdgeList(graph.UserEdges[1].Edges).Transitions())
	assert.Equal(t, graph.NodeStats, NewNodeStatsView(graph.NodeStats).NodeStats())
}

func TestWriteArtifactsFailsOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteArtifacts(sampleGraph(), NewLayout(blocker, "uALL"), Options{})

	assert.Error(t, err)
}
