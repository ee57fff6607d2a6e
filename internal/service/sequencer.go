package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

const defaultSequencerWorkers = 4

// userSpan marks the half-open range of one user's sessions in the sorted slice.
type userSpan struct {
	userID     int64
	start, end int
}

// BuildUserEdges derives each user's chronological domain transitions. sessions
// must already be sorted by user id and start time, as CleanSessions returns them.
// Users are processed concurrently; the result is ordered by ascending user id.
func BuildUserEdges(ctx context.Context, sessions []domain.CleanedSession, workers int) ([]domain.UserEdges, error) {
	if workers <= 0 {
		workers = defaultSequencerWorkers
	}

	spans := partitionByUser(sessions)
	result := make([]domain.UserEdges, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, span := range spans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result[i] = domain.UserEdges{
				UserID: span.userID,
				Edges:  sequenceUser(sessions[span.start:span.end]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func partitionByUser(sessions []domain.CleanedSession) []userSpan {
	var spans []userSpan
	for i, s := range sessions {
		if i == 0 || s.UserID != sessions[i-1].UserID {
			spans = append(spans, userSpan{userID: s.UserID, start: i})
		}
		spans[len(spans)-1].end = i + 1
	}
	return spans
}

// sequenceUser emits a transition whenever the domain changes between two
// consecutive sessions. Repeated domains never produce an edge.
func sequenceUser(sessions []domain.CleanedSession) []domain.Transition {
	edges := []domain.Transition{}
	for i := 1; i < len(sessions); i++ {
		prev, cur := sessions[i-1].Domain, sessions[i].Domain
		if cur != prev {
			edges = append(edges, domain.Transition{Origin: prev, Target: cur})
		}
	}
	return edges
}
