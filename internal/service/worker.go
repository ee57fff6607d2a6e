package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

// GraphSink persists a finished graph somewhere outside the process.
type GraphSink interface {
	Name() string
	Publish(ctx context.Context, graph domain.Graph) error
}

// TaskError accumulates multiple errors produced during bulk publishing.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkPublisher hands a graph to several sinks using a bounded worker pool.
type BulkPublisher struct {
	sinks    []GraphSink
	workers  int
	recorder Recorder
}

// NewBulkPublisher creates a new BulkPublisher with the provided concurrency.
func NewBulkPublisher(sinks []GraphSink, workers int, recorder Recorder) *BulkPublisher {
	if workers <= 0 {
		workers = 4
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &BulkPublisher{
		sinks:    sinks,
		workers:  workers,
		recorder: recorder,
	}
}

// Publish sends the graph to every sink. Failures of individual sinks are
// collected into a TaskError; cancellation is returned as-is.
func (bp *BulkPublisher) Publish(ctx context.Context, graph domain.Graph) error {
	return bp.run(ctx, len(bp.sinks), func(idx int) error {
		sink := bp.sinks[idx]
		started := time.Now()
		err := sink.Publish(ctx, graph)
		bp.recorder.ObservePublish(sink.Name(), time.Since(started), err)
		if err != nil {
			return fmt.Errorf("publish to %s: %w", sink.Name(), err)
		}
		return nil
	})
}

func (bp *BulkPublisher) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bp.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
