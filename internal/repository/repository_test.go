package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
	"github.com/vanshika/internet-atlas/backend/internal/graph"
)

func sampleGraph() domain.Graph {
	stats := map[domain.Domain]domain.DomainStats{
		"a.com": {VisitCount: 3, TotalTimeSpent: 30, AvgTimePerVisit: 10},
		"b.com": {VisitCount: 2, TotalTimeSpent: 10, AvgTimePerVisit: 5},
		"c.com": {VisitCount: 1, TotalTimeSpent: 4, AvgTimePerVisit: 4},
	}
	return domain.Graph{
		RunID: "run-42",
		Edges: []domain.AggregatedEdge{
			{ID: 1, Origin: "a.com", Target: "b.com", NumUsers: 2},
			{ID: 2, Origin: "b.com", Target: "c.com", NumUsers: 1},
		},
		EdgeUsers: domain.EdgeUsers{
			"a.com|b.com": {1, 2},
			"b.com|c.com": {2},
		},
		NodeStats: domain.NodeStats{ByOrigin: stats, ByTarget: stats},
	}
}

func TestRepository_Publish(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem, 2)

	if err := repo.Publish(context.Background(), sampleGraph()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if mem.Transactions() != 1 {
		t.Fatalf("expected 1 transaction, got %d", mem.Transactions())
	}

	calls := mem.WriteCalls()
	// delete, two domain batches (2+1), one transition batch
	if len(calls) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(calls))
	}
	if calls[0].Cypher != deleteTransitionsCypher {
		t.Fatalf("expected delete first, got:\n%s", calls[0].Cypher)
	}
	if calls[1].Cypher != upsertDomainsCypher || calls[2].Cypher != upsertDomainsCypher {
		t.Fatalf("expected domain upserts in statements 1 and 2")
	}

	firstDomains, ok := calls[1].Params["domains"].([]map[string]any)
	if !ok {
		t.Fatalf("expected domain batch, got %T", calls[1].Params["domains"])
	}
	if len(firstDomains) != 2 || firstDomains[0]["name"] != "a.com" {
		t.Errorf("unexpected first domain batch: %v", firstDomains)
	}

	edgeCall := calls[3]
	if edgeCall.Cypher != upsertTransitionsCypher {
		t.Fatalf("unexpected query\nexpected:\n%s\ngot:\n%s", upsertTransitionsCypher, edgeCall.Cypher)
	}
	if edgeCall.Params["runId"] != "run-42" {
		t.Errorf("expected runId run-42, got %v", edgeCall.Params["runId"])
	}
	edges, ok := edgeCall.Params["edges"].([]map[string]any)
	if !ok || len(edges) != 2 {
		t.Fatalf("expected 2 edge params, got %v", edgeCall.Params["edges"])
	}
	users, ok := edges[0]["users"].([]int64)
	if !ok || len(users) != 2 {
		t.Errorf("expected users [1 2] on first edge, got %v", edges[0]["users"])
	}
}

func TestRepository_PublishRequiresRunID(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem, 0)

	if err := repo.Publish(context.Background(), domain.Graph{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
	if len(mem.WriteCalls()) != 0 {
		t.Fatalf("expected no writes")
	}
}

func TestRepository_PublishPropagatesErrors(t *testing.T) {
	boom := errors.New("bolt down")
	repo := New(graph.NewMemoryClient().WithError(boom), 0)

	err := repo.Publish(context.Background(), sampleGraph())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped bolt error, got %v", err)
	}
}

func TestRepository_EdgesBetween(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"origin": "b.com", "target": "c.com", "numUsers": int64(1)},
		{"origin": "a.com", "target": "b.com", "numUsers": int64(2)},
		{"origin": "a.com", "target": "a2.com", "numUsers": int64(1)},
	}})
	repo := New(mem, 0)

	edges, err := repo.EdgesBetween(context.Background(), []domain.Domain{"a.com", "b.com"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []domain.AggregatedEdge{
		{ID: 1, Origin: "a.com", Target: "b.com", NumUsers: 2},
		{ID: 2, Origin: "a.com", Target: "a2.com", NumUsers: 1},
		{ID: 3, Origin: "b.com", Target: "c.com", NumUsers: 1},
	}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %d", len(want), len(edges))
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d: want %+v got %+v", i, want[i], edges[i])
		}
	}

	call := mem.ReadCalls()[0]
	if call.Cypher != edgesBetweenCypher {
		t.Fatalf("unexpected query: %s", call.Cypher)
	}
	if got := call.Params["websites"].([]string); len(got) != 2 {
		t.Errorf("expected 2 websites, got %v", got)
	}
	if got, ok := call.Params["users"].([]int64); !ok || got == nil {
		t.Errorf("expected empty non-nil users param, got %#v", call.Params["users"])
	}
}

func TestRepository_TopDomains(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"name": "b.com", "visitCount": int64(2), "degree": int64(5)},
		{"name": "d.com", "visitCount": int64(3), "degree": int64(1)},
		{"name": "c.com", "visitCount": int64(3), "degree": int64(1)},
		{"name": "a.com", "visitCount": int64(3), "degree": int64(2)},
	}})
	repo := New(mem, 0)

	ranks, err := repo.TopDomains(context.Background(), 10000)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var got []string
	for _, rank := range ranks {
		got = append(got, rank.Domain.String())
	}
	if want := "a.com,c.com,d.com,b.com"; strings.Join(got, ",") != want {
		t.Fatalf("expected ranking %s, got %v", want, got)
	}
	if ranks[3].VisitCount != 2 || ranks[3].Degree != 5 {
		t.Fatalf("unexpected rank: %+v", ranks[3])
	}
	if !strings.Contains(mem.ReadCalls()[0].Cypher, "ORDER BY visitCount DESC") {
		t.Errorf("expected query ordered by visit count, got %s", mem.ReadCalls()[0].Cypher)
	}
	if limit := mem.ReadCalls()[0].Params["limit"]; limit != maxTopLimit {
		t.Errorf("expected limit clamped to %d, got %v", maxTopLimit, limit)
	}
}

func TestRepository_Ping(t *testing.T) {
	boom := errors.New("unreachable")
	repo := New(graph.NewMemoryClient().WithConnectivityError(boom), 0)

	if err := repo.Ping(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if repo.Name() != "neo4j" {
		t.Errorf("unexpected sink name %q", repo.Name())
	}
}
