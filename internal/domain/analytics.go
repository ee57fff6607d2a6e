package domain

// DomainStats summarises the cleaned sessions recorded against one domain.
type DomainStats struct {
	VisitCount      int
	TotalTimeSpent  float64
	AvgTimePerVisit float64
}

// NodeStats exposes the per-domain statistics under two role labels.
// Both views currently reference the same map.
type NodeStats struct {
	ByOrigin map[Domain]DomainStats
	ByTarget map[Domain]DomainStats
}
