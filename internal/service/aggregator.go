package service

import (
	"cmp"
	"slices"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

// AggregateEdges collapses per-user transitions into population-level edges.
// Each edge counts the distinct users who made that transition at least once.
// Edges are ordered by user count descending, then origin and target ascending,
// and numbered 1..N in that order.
func AggregateEdges(userEdges []domain.UserEdges) ([]domain.AggregatedEdge, domain.EdgeUsers) {
	usersByPair := make(map[domain.Transition]map[int64]struct{})
	for _, ue := range userEdges {
		for _, t := range ue.Edges {
			if t.Origin == "" || t.Target == "" || t.Origin == t.Target {
				continue
			}
			set, ok := usersByPair[t]
			if !ok {
				set = make(map[int64]struct{})
				usersByPair[t] = set
			}
			set[ue.UserID] = struct{}{}
		}
	}

	pairs := make([]pairUsers, 0, len(usersByPair))
	for pair, set := range usersByPair {
		ids := make([]int64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		pairs = append(pairs, pairUsers{pair: pair, users: ids})
	}
	return rankPairs(pairs)
}

type pairUsers struct {
	pair  domain.Transition
	users []int64
}

func rankPairs(pairs []pairUsers) ([]domain.AggregatedEdge, domain.EdgeUsers) {
	slices.SortFunc(pairs, comparePairUsers)

	edges := make([]domain.AggregatedEdge, 0, len(pairs))
	edgeUsers := make(domain.EdgeUsers, len(pairs))
	for i, p := range pairs {
		edges = append(edges, domain.AggregatedEdge{
			ID:       i + 1,
			Origin:   p.pair.Origin,
			Target:   p.pair.Target,
			NumUsers: len(p.users),
		})
		edgeUsers[p.pair.Key()] = p.users
	}
	return edges, edgeUsers
}

func comparePairUsers(a, b pairUsers) int {
	if c := cmp.Compare(len(b.users), len(a.users)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.pair.Origin, b.pair.Origin); c != 0 {
		return c
	}
	return cmp.Compare(a.pair.Target, b.pair.Target)
}

// FilterEdges restricts a built graph to edges whose both ends are in websites,
// recounting users over the given user subset. An empty users slice keeps every
// user. Edges left with no users are omitted; the rest are re-ranked and
// renumbered with the same ordering as AggregateEdges.
func FilterEdges(edgeUsers domain.EdgeUsers, websites []domain.Domain, users []int64) ([]domain.AggregatedEdge, domain.EdgeUsers) {
	allowedSites := toSet(websites)
	allowedUsers := toSet(users)

	var pairs []pairUsers
	for key, ids := range edgeUsers {
		origin, target, ok := domain.SplitEdgeKey(key)
		if !ok || origin == target {
			continue
		}
		if len(allowedSites) > 0 {
			if _, ok := allowedSites[origin]; !ok {
				continue
			}
			if _, ok := allowedSites[target]; !ok {
				continue
			}
		}
		kept := intersectUsers(ids, allowedUsers)
		if len(kept) == 0 {
			continue
		}
		pairs = append(pairs, pairUsers{
			pair:  domain.Transition{Origin: origin, Target: target},
			users: kept,
		})
	}
	return rankPairs(pairs)
}

// UsersForEdge returns the users among the given subset who made the
// origin -> target transition. An empty subset returns every such user.
func UsersForEdge(edgeUsers domain.EdgeUsers, origin, target domain.Domain, users []int64) []int64 {
	ids, ok := edgeUsers[domain.EdgeKey(origin, target)]
	if !ok {
		return []int64{}
	}
	return intersectUsers(ids, toSet(users))
}

func intersectUsers(ids []int64, allowed map[int64]struct{}) []int64 {
	if len(allowed) == 0 {
		return slices.Clone(ids)
	}
	kept := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := allowed[id]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}

func toSet[T comparable](values []T) map[T]struct{} {
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
