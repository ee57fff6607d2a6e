package domain

import "time"

// Summary captures headline counts for a build run.
type Summary struct {
	Users    int
	Domains  int
	Sessions int
	Edges    int
}

// Graph is the complete output of one build run.
type Graph struct {
	RunID       string
	GeneratedAt time.Time
	Edges       []AggregatedEdge
	EdgeUsers   EdgeUsers
	UserEdges   []UserEdges
	NodeStats   NodeStats
	Summary     Summary
}
