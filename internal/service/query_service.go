package service

import (
	"context"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

// ArtifactStore is the read-side contract of a published graph.
type ArtifactStore interface {
	Edges(ctx context.Context) ([]domain.AggregatedEdge, error)
	EdgeUsers(ctx context.Context) (domain.EdgeUsers, error)
	UserEdges(ctx context.Context, userID int64) ([]domain.Transition, error)
	NodeStats(ctx context.Context) (domain.NodeStats, error)
	Ping(ctx context.Context) error
}

// QueryService answers graph queries from published artifacts.
type QueryService struct {
	store ArtifactStore
}

// NewQueryService constructs a QueryService over store.
func NewQueryService(store ArtifactStore) *QueryService {
	return &QueryService{store: store}
}

// Edges returns the full ranked edge list.
func (s *QueryService) Edges(ctx context.Context) ([]domain.AggregatedEdge, error) {
	return s.store.Edges(ctx)
}

// EdgesBetween ranks the edges among websites counting only the given users.
func (s *QueryService) EdgesBetween(ctx context.Context, websites []string, users []int64) ([]domain.AggregatedEdge, error) {
	edgeUsers, err := s.store.EdgeUsers(ctx)
	if err != nil {
		return nil, err
	}
	sites := normalizeAll(websites)
	if len(websites) > 0 && len(sites) == 0 {
		return []domain.AggregatedEdge{}, nil
	}
	edges, _ := FilterEdges(edgeUsers, sites, users)
	return edges, nil
}

// EdgeUsers returns the users among the subset who moved from origin to target.
func (s *QueryService) EdgeUsers(ctx context.Context, origin, target string, users []int64) ([]int64, error) {
	o, okOrigin := NormalizeDomain(origin)
	t, okTarget := NormalizeDomain(target)
	if !okOrigin || !okTarget {
		return []int64{}, nil
	}
	edgeUsers, err := s.store.EdgeUsers(ctx)
	if err != nil {
		return nil, err
	}
	return UsersForEdge(edgeUsers, o, t, users), nil
}

// UserEdges returns one user's transitions. When websites is non-empty only
// transitions with both ends listed are kept.
func (s *QueryService) UserEdges(ctx context.Context, userID int64, websites []string) ([]domain.Transition, error) {
	edges, err := s.store.UserEdges(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(websites) == 0 {
		return edges, nil
	}
	allowed := toSet(normalizeAll(websites))
	filtered := make([]domain.Transition, 0, len(edges))
	for _, e := range edges {
		_, okOrigin := allowed[e.Origin]
		_, okTarget := allowed[e.Target]
		if okOrigin && okTarget {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// NodeStats returns the per-domain statistics.
func (s *QueryService) NodeStats(ctx context.Context) (domain.NodeStats, error) {
	return s.store.NodeStats(ctx)
}

// Ping checks that the underlying store is reachable.
func (s *QueryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func normalizeAll(raw []string) []domain.Domain {
	out := make([]domain.Domain, 0, len(raw))
	for _, r := range raw {
		if d, ok := NormalizeDomain(r); ok {
			out = append(out, d)
		}
	}
	return out
}
