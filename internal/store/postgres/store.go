// Package postgres records built atlas edges and per-user sequences in
// PostgreSQL, one row set per build run.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

// ErrEmptyDSN is returned when no connection string is configured.
var ErrEmptyDSN = errors.New("postgres dsn is required")

// Open connects with the lib/pq driver.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	return db, nil
}

// Store writes graphs into atlas_edges and browsing_complete.
type Store struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Name() string { return "postgres" }

// EnsureSchema creates the tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Publish stores the graph under its run id in one transaction. Publishing
// the same run twice replaces its rows.
func (s *Store) Publish(ctx context.Context, g domain.Graph) (err error) {
	if g.RunID == "" {
		return errors.New("graph run id is required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteEdgesSQL, g.RunID); err != nil {
		return fmt.Errorf("clear edges for run %s: %w", g.RunID, err)
	}
	if _, err = tx.ExecContext(ctx, deleteSequencesSQL, g.RunID); err != nil {
		return fmt.Errorf("clear sequences for run %s: %w", g.RunID, err)
	}

	if err = insertEdges(ctx, tx, g); err != nil {
		return err
	}
	if err = insertSequences(ctx, tx, g); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", g.RunID, err)
	}
	return nil
}

// EdgeCount returns how many edges a run stored.
func (s *Store) EdgeCount(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, countEdgesSQL, runID); err != nil {
		return 0, fmt.Errorf("count edges for run %s: %w", runID, err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func insertEdges(ctx context.Context, tx *sqlx.Tx, g domain.Graph) error {
	if len(g.Edges) == 0 {
		return nil
	}
	stmt, err := tx.PreparexContext(ctx, insertEdgeSQL)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range g.Edges {
		users := g.EdgeUsers[e.Key()]
		if _, err := stmt.ExecContext(ctx, g.RunID, e.ID, e.Origin.String(), e.Target.String(), e.NumUsers, pq.Array(users)); err != nil {
			return fmt.Errorf("insert edge %d: %w", e.ID, err)
		}
	}
	return nil
}

func insertSequences(ctx context.Context, tx *sqlx.Tx, g domain.Graph) error {
	if len(g.UserEdges) == 0 {
		return nil
	}
	stmt, err := tx.PreparexContext(ctx, insertSequenceSQL)
	if err != nil {
		return fmt.Errorf("prepare sequence insert: %w", err)
	}
	defer stmt.Close()

	for _, ue := range g.UserEdges {
		for i, t := range ue.Edges {
			if _, err := stmt.ExecContext(ctx, g.RunID, t.Origin.String(), t.Target.String(), ue.UserID, i+1); err != nil {
				return fmt.Errorf("insert sequence for user %d: %w", ue.UserID, err)
			}
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS atlas_edges (
		run_id    TEXT    NOT NULL,
		edge_id   INTEGER NOT NULL,
		origin    TEXT    NOT NULL,
		target    TEXT    NOT NULL,
		num_users INTEGER NOT NULL,
		users     BIGINT[] NOT NULL DEFAULT '{}',
		PRIMARY KEY (run_id, edge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS browsing_complete (
		run_id  TEXT    NOT NULL,
		origin  TEXT    NOT NULL,
		target  TEXT    NOT NULL,
		"user"  BIGINT  NOT NULL,
		"order" INTEGER NOT NULL,
		PRIMARY KEY (run_id, "user", "order")
	)`,
}

const (
	deleteEdgesSQL     = `DELETE FROM atlas_edges WHERE run_id = $1`
	deleteSequencesSQL = `DELETE FROM browsing_complete WHERE run_id = $1`
	insertEdgeSQL      = `INSERT INTO atlas_edges (run_id, edge_id, origin, target, num_users, users) VALUES ($1, $2, $3, $4, $5, $6)`
	insertSequenceSQL  = `INSERT INTO browsing_complete (run_id, origin, target, "user", "order") VALUES ($1, $2, $3, $4, $5)`
	countEdgesSQL      = `SELECT COUNT(*) FROM atlas_edges WHERE run_id = $1`
)
