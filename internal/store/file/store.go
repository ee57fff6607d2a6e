// Package file serves and publishes atlas artifacts as JSON files on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
	"github.com/vanshika/internet-atlas/backend/internal/export"
	"github.com/vanshika/internet-atlas/backend/internal/store"
)

const watchDebounce = 100 * time.Millisecond

// Store reads artifacts from an export layout and caches the global ones.
type Store struct {
	layout export.Layout
	opts   export.Options

	mu        sync.RWMutex
	edges     []domain.AggregatedEdge
	edgeUsers domain.EdgeUsers
	stats     *domain.NodeStats
}

// New returns a Store over dir for the given suffix.
func New(dir, suffix string, opts export.Options) *Store {
	return &Store{layout: export.NewLayout(dir, suffix), opts: opts}
}

// Name identifies the store as a publish sink.
func (s *Store) Name() string { return "files" }

// Layout exposes the resolved artifact paths.
func (s *Store) Layout() export.Layout { return s.layout }

// Publish writes the graph's artifacts and drops the cache.
func (s *Store) Publish(ctx context.Context, g domain.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := export.WriteArtifacts(g, s.layout, s.opts); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Invalidate forgets every cached artifact.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = nil
	s.edgeUsers = nil
	s.stats = nil
}

func (s *Store) Edges(context.Context) ([]domain.AggregatedEdge, error) {
	s.mu.RLock()
	cached := s.edges
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	var list export.EdgeList
	if err := readArtifact(s.layout.EdgesPath(), &list); err != nil {
		return nil, err
	}
	edges := list.AggregatedEdges()

	s.mu.Lock()
	s.edges = edges
	s.mu.Unlock()
	return edges, nil
}

func (s *Store) EdgeUsers(context.Context) (domain.EdgeUsers, error) {
	s.mu.RLock()
	cached := s.edgeUsers
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	edgeUsers := domain.EdgeUsers{}
	if err := readArtifact(s.layout.EdgeUsersPath(), &edgeUsers); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.edgeUsers = edgeUsers
	s.mu.Unlock()
	return edgeUsers, nil
}

// UserEdges is read from disk on every call; there is one file per user.
func (s *Store) UserEdges(_ context.Context, userID int64) ([]domain.Transition, error) {
	var list export.EdgeList
	if err := readArtifact(s.layout.UserEdgesPath(userID), &list); err != nil {
		return nil, err
	}
	return list.Transitions(), nil
}

func (s *Store) NodeStats(context.Context) (domain.NodeStats, error) {
	s.mu.RLock()
	cached := s.stats
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	var view export.NodeStatsView
	if err := readArtifact(s.layout.NodeStatsPath(), &view); err != nil {
		return domain.NodeStats{}, err
	}
	stats := view.NodeStats()

	s.mu.Lock()
	s.stats = &stats
	s.mu.Unlock()
	return stats, nil
}

// Ping checks that the global edge list exists.
func (s *Store) Ping(context.Context) error {
	if _, err := os.Stat(s.layout.EdgesPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", store.ErrNotFound, s.layout.EdgesPath())
		}
		return err
	}
	return nil
}

// Watch invalidates the cache whenever an artifact under the layout directory
// changes. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.layout.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.layout.Dir, err)
	}
	logger.Info("artifact watcher started", "dir", s.layout.Dir, "suffix", s.layout.Suffix)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.tracks(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(watchDebounce, func() {
				s.Invalidate()
				logger.Debug("artifact cache invalidated", "file", name)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("artifact watcher error", "error", err)
		}
	}
}

func (s *Store) tracks(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, "_"+s.layout.Suffix+".json")
}

func readArtifact(path string, v any) error {
	if err := export.ReadJSON(path, v); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", store.ErrNotFound, path)
		}
		return err
	}
	return nil
}
