package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

// ErrNoValidSessions is returned when no row survives cleaning.
var ErrNoValidSessions = errors.New("no valid sessions after cleaning")

// Recorder receives build and publish observations. Implementations must be
// safe for concurrent use.
type Recorder interface {
	ObserveClean(report CleanReport)
	ObserveBuild(summary domain.Summary, elapsed time.Duration)
	ObservePublish(sink string, elapsed time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) ObserveClean(CleanReport)                    {}
func (noopRecorder) ObserveBuild(domain.Summary, time.Duration)  {}
func (noopRecorder) ObservePublish(string, time.Duration, error) {}

// GraphService turns raw session rows into the transition graph.
type GraphService struct {
	recorder Recorder
	logger   *slog.Logger
	workers  int
	nowFn    func() time.Time
	runIDFn  func() string
}

// NewGraphService constructs a GraphService. A nil recorder disables metrics;
// workers bounds the per-user sequencing fan-out.
func NewGraphService(recorder Recorder, workers int) *GraphService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if workers <= 0 {
		workers = defaultSequencerWorkers
	}
	return &GraphService{
		recorder: recorder,
		workers:  workers,
		nowFn:    time.Now,
		runIDFn:  func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *GraphService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// WithLogger enables debug logging of dropped and repaired rows.
func (s *GraphService) WithLogger(logger *slog.Logger) {
	s.logger = logger
}

// WithRunID overrides the run identifier generator (used primarily in tests).
func (s *GraphService) WithRunID(fn func() string) {
	if fn != nil {
		s.runIDFn = fn
	}
}

// Build cleans the rows, sequences each user, aggregates edges and node
// statistics, and assembles the graph. It returns ErrNoValidSessions when
// cleaning leaves nothing to aggregate; the report is populated either way.
func (s *GraphService) Build(ctx context.Context, inputs []SessionInput) (domain.Graph, CleanReport, error) {
	started := s.nowFn()

	sessions, report := CleanSessionsWithLogger(inputs, s.logger)
	s.recorder.ObserveClean(report)
	if len(sessions) == 0 {
		return domain.Graph{}, report, ErrNoValidSessions
	}

	userEdges, err := BuildUserEdges(ctx, sessions, s.workers)
	if err != nil {
		return domain.Graph{}, report, fmt.Errorf("sequence users: %w", err)
	}

	edges, edgeUsers := AggregateEdges(userEdges)
	nodeStats := BuildNodeStats(sessions)

	graph := domain.Graph{
		RunID:       s.runIDFn(),
		GeneratedAt: s.nowFn().UTC(),
		Edges:       edges,
		EdgeUsers:   edgeUsers,
		UserEdges:   userEdges,
		NodeStats:   nodeStats,
		Summary: domain.Summary{
			Users:    len(userEdges),
			Domains:  len(nodeStats.ByOrigin),
			Sessions: len(sessions),
			Edges:    len(edges),
		},
	}

	s.recorder.ObserveBuild(graph.Summary, s.nowFn().Sub(started))
	return graph, report, nil
}
