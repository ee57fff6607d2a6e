package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
	"github.com/vanshika/internet-atlas/backend/internal/service"
)

func TestMetricsObserveClean(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveClean(service.CleanReport{
		Total:       10,
		Kept:        7,
		Dropped:     map[service.DropReason]int{service.DropInvalidDomain: 2, service.DropMissingEnd: 1},
		RepairedEnd: 3,
		DerivedTime: 4,
	})

	assert.Equal(t, 10.0, testutil.ToFloat64(m.rowsRead))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.rowsKept))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsDropped.WithLabelValues("invalid_domain")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rowsDropped.WithLabelValues("invalid_user")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rowsRepaired.WithLabelValues("end_time")))
}

func TestMetricsObserveBuildAndPublish(t *testing.T) {
	m := New(nil)

	m.ObserveBuild(domain.Summary{Users: 2, Domains: 3, Sessions: 5, Edges: 4}, 150*time.Millisecond)
	m.ObservePublish("neo4j", time.Second, errors.New("down"))
	m.ObservePublish("redis", time.Second, nil)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.graphSize.WithLabelValues("edges")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailures.WithLabelValues("neo4j")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.publishFailures.WithLabelValues("redis")))
}

func TestMetricsHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveClean(service.CleanReport{Total: 1, Kept: 1})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "atlas_clean_rows_read_total 1")
}

func TestMetricsObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("/edges", http.MethodGet, http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest("/edges", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest("/edges", http.MethodGet, http.StatusBadRequest, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/edges", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/edges", "GET", "400")))
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveClean(service.CleanReport{Total: 12, Kept: 9})
	m.ObserveBuild(domain.Summary{Edges: 5}, time.Second)
	path := filepath.Join(t.TempDir(), "nested", "build.prom")

	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "atlas_clean_rows_read_total 12")
	assert.Contains(t, string(data), `atlas_build_graph_size{dimension="edges"} 5`)
}

func TestRegisterRuntimeCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	require.NoError(t, RegisterRuntimeCollectors(reg))
	assert.Error(t, RegisterRuntimeCollectors(reg))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
