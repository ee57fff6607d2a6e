package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
)

func TestBuildNodeStats(t *testing.T) {
	sessions := []domain.CleanedSession{
		{UserID: 1, Domain: "a.com", ActiveSeconds: 10},
		{UserID: 1, Domain: "b.com", ActiveSeconds: 5},
		{UserID: 1, Domain: "a.com", ActiveSeconds: 20},
		{UserID: 2, Domain: "a.com", ActiveSeconds: 0},
	}

	stats := BuildNodeStats(sessions)

	require.Len(t, stats.ByOrigin, 2)
	assert.Equal(t, domain.DomainStats{VisitCount: 3, TotalTimeSpent: 30, AvgTimePerVisit: 10}, stats.ByOrigin["a.com"])
	assert.Equal(t, domain.DomainStats{VisitCount: 1, TotalTimeSpent: 5, AvgTimePerVisit: 5}, stats.ByOrigin["b.com"])
	assert.Equal(t, stats.ByOrigin, stats.ByTarget)
}

func TestBuildNodeStats_Empty(t *testing.T) {
	stats := BuildNodeStats(nil)

	assert.Empty(t, stats.ByOrigin)
	assert.Empty(t, stats.ByTarget)
}
