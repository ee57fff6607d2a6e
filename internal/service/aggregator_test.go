package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

func tr(origin, target domain.Domain) domain.Transition {
	return domain.Transition{Origin: origin, Target: target}
}

func TestAggregateEdges_TwoUsers(t *testing.T) {
	edges, edgeUsers := AggregateEdges([]domain.UserEdges{
		{UserID: 1, Edges: []domain.Transition{tr("a", "b")}},
		{UserID: 2, Edges: []domain.Transition{tr("a", "b"), tr("a", "c")}},
	})

	assert.Equal(t, []domain.AggregatedEdge{
		{ID: 1, Origin: "a", Target: "b", NumUsers: 2},
		{ID: 2, Origin: "a", Target: "c", NumUsers: 1},
	}, edges)
	assert.Equal(t, domain.EdgeUsers{
		"a|b": {1, 2},
		"a|c": {2},
	}, edgeUsers)
}

func TestAggregateEdges_RepeatsCountOncePerUser(t *testing.T) {
	edges, edgeUsers := AggregateEdges([]domain.UserEdges{
		{UserID: 9, Edges: []domain.Transition{tr("x.com", "y.com"), tr("y.com", "x.com"), tr("x.com", "y.com")}},
	})

	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, 1, e.NumUsers)
	}
	assert.Equal(t, []int64{9}, edgeUsers["x.com|y.com"])
}

func TestAggregateEdges_OrderingAndDenseIDs(t *testing.T) {
	edges, _ := AggregateEdges([]domain.UserEdges{
		{UserID: 3, Edges: []domain.Transition{tr("m", "n"), tr("b", "a"), tr("b", "c")}},
		{UserID: 1, Edges: []domain.Transition{tr("m", "n"), tr("b", "c"), tr("a", "z")}},
		{UserID: 2, Edges: []domain.Transition{tr("m", "n")}},
	})

	want := []domain.AggregatedEdge{
		{ID: 1, Origin: "m", Target: "n", NumUsers: 3},
		{ID: 2, Origin: "b", Target: "c", NumUsers: 2},
		{ID: 3, Origin: "a", Target: "z", NumUsers: 1},
		{ID: 4, Origin: "b", Target: "a", NumUsers: 1},
	}
	assert.Equal(t, want, edges)
}

func TestAggregateEdges_SkipsSelfLoops(t *testing.T) {
	edges, edgeUsers := AggregateEdges([]domain.UserEdges{
		{UserID: 1, Edges: []domain.Transition{tr("a", "a"), tr("", "b"), tr("a", "b")}},
	})

	require.Len(t, edges, 1)
	assert.Equal(t, domain.Domain("a"), edges[0].Origin)
	assert.NotContains(t, edgeUsers, "a|a")
}

func TestFilterEdges(t *testing.T) {
	edgeUsers := domain.EdgeUsers{
		"a.com|b.com": {1, 2, 3},
		"b.com|c.com": {2, 3},
		"c.com|a.com": {1},
		"a.com|z.com": {1, 2, 3, 4},
	}

	edges, filtered := FilterEdges(edgeUsers, []domain.Domain{"a.com", "b.com", "c.com"}, []int64{1, 3})

	assert.Equal(t, []domain.AggregatedEdge{
		{ID: 1, Origin: "a.com", Target: "b.com", NumUsers: 2},
		{ID: 2, Origin: "b.com", Target: "c.com", NumUsers: 1},
		{ID: 3, Origin: "c.com", Target: "a.com", NumUsers: 1},
	}, edges)
	assert.Equal(t, []int64{1, 3}, filtered["a.com|b.com"])
	assert.NotContains(t, filtered, "a.com|z.com")
}

func TestFilterEdges_NoFiltersKeepsEverything(t *testing.T) {
	edgeUsers := domain.EdgeUsers{"a.com|b.com": {1}, "b.com|a.com": {1, 2}}

	edges, _ := FilterEdges(edgeUsers, nil, nil)

	require.Len(t, edges, 2)
	assert.Equal(t, domain.Domain("b.com"), edges[0].Origin)
}

func TestUsersForEdge(t *testing.T) {
	edgeUsers := domain.EdgeUsers{"a.com|b.com": {1, 2, 5}}

	assert.Equal(t, []int64{2, 5}, UsersForEdge(edgeUsers, "a.com", "b.com", []int64{5, 2, 9}))
	assert.Equal(t, []int64{1, 2, 5}, UsersForEdge(edgeUsers, "a.com", "b.com", nil))
	assert.Empty(t, UsersForEdge(edgeUsers, "b.com", "a.com", nil))
}
