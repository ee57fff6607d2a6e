package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func sampleGraph() domain.Graph {
	return domain.Graph{
		RunID: "run-7",
		Edges: []domain.AggregatedEdge{
			{ID: 1, Origin: "a.com", Target: "b.com", NumUsers: 2},
		},
		EdgeUsers: domain.EdgeUsers{"a.com|b.com": {1, 2}},
		UserEdges: []domain.UserEdges{
			{UserID: 1, Edges: []domain.Transition{{Origin: "a.com", Target: "b.com"}}},
			{UserID: 2, Edges: []domain.Transition{{Origin: "a.com", Target: "b.com"}, {Origin: "b.com", Target: "a.com"}}},
		},
	}
}

func TestStorePublish(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteEdgesSQL)).WithArgs("run-7").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(deleteSequencesSQL)).WithArgs("run-7").WillReturnResult(sqlmock.NewResult(0, 0))
	edgeStmt := mock.ExpectPrepare(regexp.QuoteMeta(insertEdgeSQL))
	edgeStmt.ExpectExec().
		WithArgs("run-7", 1, "a.com", "b.com", 2, pq.Array([]int64{1, 2})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	seqStmt := mock.ExpectPrepare(regexp.QuoteMeta(insertSequenceSQL))
	seqStmt.ExpectExec().WithArgs("run-7", "a.com", "b.com", int64(1), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	seqStmt.ExpectExec().WithArgs("run-7", "a.com", "b.com", int64(2), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	seqStmt.ExpectExec().WithArgs("run-7", "b.com", "a.com", int64(2), 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Publish(context.Background(), sampleGraph()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePublishRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteEdgesSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(deleteSequencesSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta(insertEdgeSQL)).ExpectExec().WillReturnError(boom)
	mock.ExpectRollback()

	err := s.Publish(context.Background(), sampleGraph())

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePublishRequiresRunID(t *testing.T) {
	s, mock := newMockStore(t)

	assert.Error(t, s.Publish(context.Background(), domain.Graph{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreEnsureSchemaAndCount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS atlas_edges").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS browsing_complete").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(countEdgesSQL)).WithArgs("run-7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	require.NoError(t, s.EnsureSchema(context.Background()))
	n, err := s.EdgeCount(context.Background(), "run-7")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "postgres", s.Name())
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "", 0)

	assert.ErrorIs(t, err, ErrEmptyDSN)
}
