package generator

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/internet-atlas/backend/internal/ingest"
	"github.com/vanshika/internet-atlas/backend/internal/service"
)

func smallConfig(dirty float64) Config {
	cfg := DefaultConfig()
	cfg.NumUsers = 20
	cfg.SessionsPerUser = 10
	cfg.DomainPoolSize = 15
	cfg.DirtyRatio = dirty
	cfg.Seed = 7
	return cfg
}

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := New(smallConfig(0.1)).Generate(context.Background())
	require.NoError(t, err)
	second, err := New(smallConfig(0.1)).Generate(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 200)
	assert.Equal(t, first, second)
}

func TestGenerateCleanRowsSurviveCleaning(t *testing.T) {
	rows, err := New(smallConfig(0)).Generate(context.Background())
	require.NoError(t, err)

	sessions, report := service.CleanSessions(rows)

	assert.Equal(t, len(rows), report.Kept)
	assert.Zero(t, report.DroppedTotal())
	assert.Len(t, sessions, len(rows))
}

func TestGenerateDirtyRowsExerciseCleaner(t *testing.T) {
	cfg := smallConfig(0.5)
	cfg.NumUsers = 50
	rows, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	_, report := service.CleanSessions(rows)

	assert.Positive(t, report.DroppedTotal())
	assert.Positive(t, report.RepairedEnd)
	assert.Positive(t, report.DerivedTime)
	assert.Less(t, report.DroppedTotal(), len(rows))
}

func TestGeneratedDatasetBuildsGraph(t *testing.T) {
	rows, err := New(smallConfig(0.05)).Generate(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	inputs, err := ingest.ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, inputs, len(rows))

	graph, _, err := service.NewGraphService(nil, 2).Build(context.Background(), inputs)
	require.NoError(t, err)

	assert.NotEmpty(t, graph.Edges)
	assert.Equal(t, 1, graph.Edges[0].ID)
	for i := 1; i < len(graph.Edges); i++ {
		assert.GreaterOrEqual(t, graph.Edges[i-1].NumUsers, graph.Edges[i].NumUsers)
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(smallConfig(0)).Generate(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteDatasetCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.csv")
	rows, err := New(smallConfig(0)).Generate(context.Background())
	require.NoError(t, err)

	require.NoError(t, WriteDataset(rows, path))

	inputs, err := ingest.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, inputs, len(rows))
}

func TestDomainPoolIsUniqueAndValid(t *testing.T) {
	g := New(smallConfig(0))
	seen := map[string]bool{}

	for _, d := range g.Domains() {
		assert.False(t, seen[d], "duplicate domain %s", d)
		seen[d] = true
		_, ok := service.NormalizeDomain(d)
		assert.True(t, ok, "invalid domain %s", d)
	}
	assert.Len(t, seen, 15)
}
