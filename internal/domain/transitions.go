package domain

import "strings"

// edgeKeySeparator joins origin and target in exported edge keys.
const edgeKeySeparator = "|"

// Transition is one move between two distinct domains by a single user.
type Transition struct {
	Origin Domain
	Target Domain
}

// Key returns the "origin|target" form used by the edge-to-users mapping.
func (t Transition) Key() string {
	return EdgeKey(t.Origin, t.Target)
}

// UserEdges holds the chronological transitions of one user.
type UserEdges struct {
	UserID int64
	Edges  []Transition
}

// AggregatedEdge is a transition collapsed across the whole user population.
type AggregatedEdge struct {
	ID       int
	Origin   Domain
	Target   Domain
	NumUsers int
}

// Key returns the "origin|target" form of the edge.
func (e AggregatedEdge) Key() string {
	return EdgeKey(e.Origin, e.Target)
}

// EdgeUsers maps "origin|target" to the ascending distinct user ids that made
// that transition at least once.
type EdgeUsers map[string][]int64

// EdgeKey builds the "origin|target" key for a domain pair.
func EdgeKey(origin, target Domain) string {
	return string(origin) + edgeKeySeparator + string(target)
}

// SplitEdgeKey reverses EdgeKey. ok is false when the key has no separator.
func SplitEdgeKey(key string) (origin, target Domain, ok bool) {
	o, t, found := strings.Cut(key, edgeKeySeparator)
	if !found {
		return "", "", false
	}
	return Domain(o), Domain(t), true
}
