package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

type recordingRecorder struct {
	mu        sync.Mutex
	reports   []CleanReport
	summaries []domain.Summary
	publishes map[string]error
}

func (r *recordingRecorder) ObserveClean(report CleanReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *recordingRecorder) ObserveBuild(summary domain.Summary, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
}

func (r *recordingRecorder) ObservePublish(sink string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishes == nil {
		r.publishes = make(map[string]error)
	}
	r.publishes[sink] = err
}

func row(user, host, start, end, active string) SessionInput {
	return SessionInput{UserID: user, Domain: host, StartTime: start, EndTime: end, ActiveSeconds: active, RowCount: "1"}
}

func TestGraphService_Build(t *testing.T) {
	rec := &recordingRecorder{}
	svc := NewGraphService(rec, 2)
	now := time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })
	svc.WithRunID(func() string { return "run-1" })

	inputs := []SessionInput{
		row("2", "A.com", "2020-01-01T00:00:00Z", "2020-01-01T00:00:10Z", ""),
		row("1", "a.com", "2020-01-01T00:00:00Z", "", "20"),
		row("1", "b.com", "2020-01-01T00:01:00Z", "2020-01-01T00:01:30Z", ""),
		row("2", "b.com", "2020-01-01T00:01:00Z", "2020-01-01T00:00:00Z", "40"),
		row("2", "c.com", "2020-01-01T00:02:00Z", "2020-01-01T00:02:10Z", "10"),
		row("3", "bad domain", "2020-01-01T00:00:00Z", "", "5"),
	}

	graph, report, err := svc.Build(context.Background(), inputs)

	require.NoError(t, err)
	assert.Equal(t, "run-1", graph.RunID)
	assert.Equal(t, now, graph.GeneratedAt)
	assert.Equal(t, 5, report.Kept)
	assert.Equal(t, 1, report.Dropped[DropInvalidDomain])

	assert.Equal(t, []domain.AggregatedEdge{
		{ID: 1, Origin: "a.com", Target: "b.com", NumUsers: 2},
		{ID: 2, Origin: "b.com", Target: "c.com", NumUsers: 1},
	}, graph.Edges)
	assert.Equal(t, []int64{1, 2}, graph.EdgeUsers["a.com|b.com"])

	require.Len(t, graph.UserEdges, 2)
	assert.Equal(t, int64(1), graph.UserEdges[0].UserID)
	assert.Equal(t, int64(2), graph.UserEdges[1].UserID)

	bStats := graph.NodeStats.ByOrigin["b.com"]
	assert.Equal(t, 2, bStats.VisitCount)
	assert.Equal(t, 70.0, bStats.TotalTimeSpent)
	assert.Equal(t, 35.0, bStats.AvgTimePerVisit)

	assert.Equal(t, domain.Summary{Users: 2, Domains: 3, Sessions: 5, Edges: 2}, graph.Summary)
	require.Len(t, rec.reports, 1)
	require.Len(t, rec.summaries, 1)
}

func TestGraphService_BuildFailsWithoutValidSessions(t *testing.T) {
	rec := &recordingRecorder{}
	svc := NewGraphService(rec, 0)

	_, report, err := svc.Build(context.Background(), []SessionInput{
		row("1", "nope", "2020-01-01T00:00:00Z", "", "5"),
		row("2", "also invalid", "2020-01-01T00:00:00Z", "", "5"),
	})

	require.ErrorIs(t, err, ErrNoValidSessions)
	assert.Equal(t, 2, report.Dropped[DropInvalidDomain])
	assert.Len(t, rec.reports, 1)
	assert.Empty(t, rec.summaries)
}

func TestGraphService_BuildDefaultsRecorder(t *testing.T) {
	svc := NewGraphService(nil, 0)

	graph, _, err := svc.Build(context.Background(), []SessionInput{
		row("1", "a.com", "2020-01-01T00:00:00Z", "", "5"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, graph.RunID)
	assert.Empty(t, graph.Edges)
	assert.Equal(t, 1, graph.Summary.Users)
}

func TestGraphService_BuildLogsDroppedRows(t *testing.T) {
	var buf bytes.Buffer
	svc := NewGraphService(nil, 0)
	svc.WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	in := row("1", "nope", "2020-01-01T00:00:00Z", "", "5")
	in.Line = 7
	_, _, err := svc.Build(context.Background(), []SessionInput{in, row("1", "a.com", "2020-01-01T00:00:00Z", "", "5")})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "line=7 reason=invalid_domain")
}
