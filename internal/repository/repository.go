package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
	"github.com/vanshika/internet-atlas/backend/internal/graph"
)

const (
	defaultBatchSize = 500
	defaultTopLimit  = 20
	maxTopLimit      = 500
)

// DomainRank is one row of TopDomains.
type DomainRank struct {
	Domain     domain.Domain
	VisitCount int
	Degree     int
}

// Repository persists atlas graphs in Neo4j and answers graph-side queries.
type Repository struct {
	client    graph.Client
	batchSize int
}

// New instantiates a Repository backed by the supplied graph client. A
// non-positive batchSize uses the default.
func New(client graph.Client, batchSize int) *Repository {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Repository{client: client, batchSize: batchSize}
}

// Name identifies the repository as a publish sink.
func (r *Repository) Name() string { return "neo4j" }

// Publish replaces the stored transitions with the graph's edges and refreshes
// domain statistics. Everything runs in one transaction.
func (r *Repository) Publish(ctx context.Context, g domain.Graph) error {
	if g.RunID == "" {
		return errors.New("graph run id is required")
	}

	statements := []graph.Statement{
		{Cypher: deleteTransitionsCypher, Params: map[string]any{}},
	}
	for batch := range slices.Chunk(domainParams(g.NodeStats), r.batchSize) {
		statements = append(statements, graph.Statement{
			Cypher: upsertDomainsCypher,
			Params: map[string]any{"domains": batch},
		})
	}
	for batch := range slices.Chunk(transitionParams(g), r.batchSize) {
		statements = append(statements, graph.Statement{
			Cypher: upsertTransitionsCypher,
			Params: map[string]any{"runId": g.RunID, "edges": batch},
		})
	}

	if err := r.client.ExecuteWriteTx(ctx, statements); err != nil {
		return fmt.Errorf("publish run %s: %w", g.RunID, err)
	}
	return nil
}

// EdgesBetween counts, per stored transition with both ends in websites, the
// users among users that exhibit it. Empty filters match everything. Pairs
// with no matching users are omitted; the rest are ranked and numbered 1..N.
func (r *Repository) EdgesBetween(ctx context.Context, websites []domain.Domain, users []int64) ([]domain.AggregatedEdge, error) {
	names := make([]string, 0, len(websites))
	for _, w := range websites {
		names = append(names, w.String())
	}
	if users == nil {
		users = []int64{}
	}

	res, err := r.client.ExecuteRead(ctx, edgesBetweenCypher, map[string]any{
		"websites": names,
		"users":    users,
	})
	if err != nil {
		return nil, fmt.Errorf("edges between query: %w", err)
	}

	edges := make([]domain.AggregatedEdge, 0, len(res.Records))
	for _, record := range res.Records {
		edges = append(edges, domain.AggregatedEdge{
			Origin:   domain.Domain(record.String("origin")),
			Target:   domain.Domain(record.String("target")),
			NumUsers: int(record.Int("numUsers")),
		})
	}
	// Re-sort locally so ids do not depend on the server's collation.
	slices.SortFunc(edges, func(a, b domain.AggregatedEdge) int {
		if a.NumUsers != b.NumUsers {
			return b.NumUsers - a.NumUsers
		}
		if c := strings.Compare(a.Origin.String(), b.Origin.String()); c != 0 {
			return c
		}
		return strings.Compare(a.Target.String(), b.Target.String())
	})
	for i := range edges {
		edges[i].ID = i + 1
	}
	return edges, nil
}

// TopDomains returns the most visited domains with their transition degree.
// Ties on visit count go to the higher degree, then to the name.
func (r *Repository) TopDomains(ctx context.Context, limit int) ([]DomainRank, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	res, err := r.client.ExecuteRead(ctx, topDomainsCypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("top domains query: %w", err)
	}

	ranks := make([]DomainRank, 0, len(res.Records))
	for _, record := range res.Records {
		ranks = append(ranks, DomainRank{
			Domain:     domain.Domain(record.String("name")),
			VisitCount: int(record.Int("visitCount")),
			Degree:     int(record.Int("degree")),
		})
	}
	slices.SortStableFunc(ranks, compareDomainRanks)
	return ranks, nil
}

func compareDomainRanks(a, b DomainRank) int {
	if c := cmp.Compare(b.VisitCount, a.VisitCount); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Degree, a.Degree); c != 0 {
		return c
	}
	return cmp.Compare(a.Domain, b.Domain)
}

// Ping verifies connectivity to the graph.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

func domainParams(stats domain.NodeStats) []map[string]any {
	names := make([]domain.Domain, 0, len(stats.ByOrigin))
	for d := range stats.ByOrigin {
		names = append(names, d)
	}
	slices.Sort(names)

	params := make([]map[string]any, 0, len(names))
	for _, d := range names {
		st := stats.ByOrigin[d]
		params = append(params, map[string]any{
			"name":            d.String(),
			"visitCount":      st.VisitCount,
			"totalTimeSpent":  st.TotalTimeSpent,
			"avgTimePerVisit": st.AvgTimePerVisit,
		})
	}
	return params
}

func transitionParams(g domain.Graph) []map[string]any {
	params := make([]map[string]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		params = append(params, map[string]any{
			"id":       e.ID,
			"origin":   e.Origin.String(),
			"target":   e.Target.String(),
			"numUsers": e.NumUsers,
			"users":    g.EdgeUsers[e.Key()],
		})
	}
	return params
}

const deleteTransitionsCypher = `
MATCH (:Domain)-[t:TRANSITION]->(:Domain)
DELETE t
`

const upsertDomainsCypher = `
UNWIND $domains AS d
MERGE (n:Domain {name: d.name})
SET n.visitCount = d.visitCount,
	n.totalTimeSpent = d.totalTimeSpent,
	n.avgTimePerVisit = d.avgTimePerVisit
`

const upsertTransitionsCypher = `
UNWIND $edges AS e
MERGE (o:Domain {name: e.origin})
MERGE (t:Domain {name: e.target})
MERGE (o)-[r:TRANSITION]->(t)
SET r.edgeId = e.id,
	r.numUsers = e.numUsers,
	r.users = e.users,
	r.runId = $runId
`

const edgesBetweenCypher = `
MATCH (o:Domain)-[r:TRANSITION]->(t:Domain)
WHERE size($websites) = 0 OR (o.name IN $websites AND t.name IN $websites)
WITH o, t, [u IN r.users WHERE size($users) = 0 OR u IN $users] AS matched
WHERE size(matched) > 0
RETURN o.name AS origin, t.name AS target, size(matched) AS numUsers
`

const topDomainsCypher = `
MATCH (d:Domain)
OPTIONAL MATCH (d)-[r:TRANSITION]-()
WITH d, count(r) AS degree
RETURN d.name AS name, coalesce(d.visitCount, 0) AS visitCount, degree
ORDER BY visitCount DESC, degree DESC, name ASC
LIMIT $limit
`
