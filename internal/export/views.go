// Package export shapes a built graph into the JSON artifacts consumed by the
// frontend and by the query API.
package export

import (
	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

// EdgeView is one edge as serialised in edge lists.
type EdgeView struct {
	ID       int    `json:"id"`
	Origin   string `json:"origin"`
	Target   string `json:"target"`
	NumUsers int    `json:"num_users"`
}

// EdgeList wraps edges with their count.
type EdgeList struct {
	ResultsCount int        `json:"results_count"`
	Results      []EdgeView `json:"results"`
}

// DomainStatsView is the serialised form of domain.DomainStats.
type DomainStatsView struct {
	VisitCount      int     `json:"visit_count"`
	TotalTimeSpent  float64 `json:"total_time_spent"`
	AvgTimePerVisit float64 `json:"avg_time_per_visit"`
}

// NodeStatsView is the serialised form of domain.NodeStats.
type NodeStatsView struct {
	ByOrigin map[string]DomainStatsView `json:"by_origin"`
	ByTarget map[string]DomainStatsView `json:"by_target"`
}

// NewEdgeList converts aggregated edges into their list form.
func NewEdgeList(edges []domain.AggregatedEdge) EdgeList {
	results := make([]EdgeView, 0, len(edges))
	for _, e := range edges {
		results = append(results, EdgeView{
			ID:       e.ID,
			Origin:   e.Origin.String(),
			Target:   e.Target.String(),
			NumUsers: e.NumUsers,
		})
	}
	return EdgeList{ResultsCount: len(results), Results: results}
}

// NewUserEdgeList numbers one user's transitions 1..N in chronological order.
// num_users is always 1 in this view.
func NewUserEdgeList(edges []domain.Transition) EdgeList {
	results := make([]EdgeView, 0, len(edges))
	for i, e := range edges {
		results = append(results, EdgeView{
			ID:       i + 1,
			Origin:   e.Origin.String(),
			Target:   e.Target.String(),
			NumUsers: 1,
		})
	}
	return EdgeList{ResultsCount: len(results), Results: results}
}

// NewNodeStatsView converts node statistics into their serialised form.
func NewNodeStatsView(stats domain.NodeStats) NodeStatsView {
	return NodeStatsView{
		ByOrigin: statsMapView(stats.ByOrigin),
		ByTarget: statsMapView(stats.ByTarget),
	}
}

// AggregatedEdges converts the list back into domain edges.
func (l EdgeList) AggregatedEdges() []domain.AggregatedEdge {
	edges := make([]domain.AggregatedEdge, 0, len(l.Results))
	for _, r := range l.Results {
		edges = append(edges, domain.AggregatedEdge{
			ID:       r.ID,
			Origin:   domain.Domain(r.Origin),
			Target:   domain.Domain(r.Target),
			NumUsers: r.NumUsers,
		})
	}
	return edges
}

// Transitions converts a per-user list back into ordered transitions.
func (l EdgeList) Transitions() []domain.Transition {
	edges := make([]domain.Transition, 0, len(l.Results))
	for _, r := range l.Results {
		edges = append(edges, domain.Transition{
			Origin: domain.Domain(r.Origin),
			Target: domain.Domain(r.Target),
		})
	}
	return edges
}

// NodeStats converts the view back into domain statistics.
func (v NodeStatsView) NodeStats() domain.NodeStats {
	return domain.NodeStats{
		ByOrigin: statsMapDomain(v.ByOrigin),
		ByTarget: statsMapDomain(v.ByTarget),
	}
}

func statsMapView(stats map[domain.Domain]domain.DomainStats) map[string]DomainStatsView {
	out := make(map[string]DomainStatsView, len(stats))
	for d, st := range stats {
		out[d.String()] = DomainStatsView{
			VisitCount:      st.VisitCount,
			TotalTimeSpent:  st.TotalTimeSpent,
			AvgTimePerVisit: st.AvgTimePerVisit,
		}
	}
	return out
}

func statsMapDomain(stats map[string]DomainStatsView) map[domain.Domain]domain.DomainStats {
	out := make(map[domain.Domain]domain.DomainStats, len(stats))
	for d, st := range stats {
		out[domain.Domain(d)] = domain.DomainStats{
			VisitCount:      st.VisitCount,
			TotalTimeSpent:  st.TotalTimeSpent,
			AvgTimePerVisit: st.AvgTimePerVisit,
		}
	}
	return out
}
