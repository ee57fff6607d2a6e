// Package metrics exposes build and publish counters for Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
	"github.com/vanshika/internet-atlas/backend/internal/service"
)

const namespace = "atlas"

// Metrics records pipeline activity. It satisfies service.Recorder.
type Metrics struct {
	rowsRead        prometheus.Counter
	rowsKept        prometheus.Counter
	rowsDropped     *prometheus.CounterVec
	rowsRepaired    *prometheus.CounterVec
	graphSize       *prometheus.GaugeVec
	buildDuration   prometheus.Histogram
	publishDuration *prometheus.HistogramVec
	publishFailures *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		rowsRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clean",
			Name:      "rows_read_total",
			Help:      "Raw session rows read",
		}),
		rowsKept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clean",
			Name:      "rows_kept_total",
			Help:      "Session rows that survived cleaning",
		}),
		rowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clean",
			Name:      "rows_dropped_total",
			Help:      "Session rows dropped during cleaning",
		}, []string{"reason"}),
		rowsRepaired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clean",
			Name:      "rows_repaired_total",
			Help:      "Session rows with a repaired end or derived duration",
		}, []string{"kind"}),
		graphSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "graph_size",
			Help:      "Size of the most recently built graph",
		}, []string{"dimension"}),
		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Graph build latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		publishDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "duration_seconds",
			Help:      "Per-sink publish latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"sink"}),
		publishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "failures_total",
			Help:      "Failed publishes by sink",
		}, []string{"sink"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		gatherer: reg,
	}

	for _, reason := range service.DropReasons {
		m.rowsDropped.WithLabelValues(string(reason))
	}
	return m
}

var _ service.Recorder = (*Metrics)(nil)

// ObserveClean records a cleaning pass.
func (m *Metrics) ObserveClean(report service.CleanReport) {
	m.rowsRead.Add(float64(report.Total))
	m.rowsKept.Add(float64(report.Kept))
	for reason, n := range report.Dropped {
		m.rowsDropped.WithLabelValues(string(reason)).Add(float64(n))
	}
	m.rowsRepaired.WithLabelValues("end_time").Add(float64(report.RepairedEnd))
	m.rowsRepaired.WithLabelValues("active_seconds").Add(float64(report.DerivedTime))
}

// ObserveBuild records the size and latency of a finished build.
func (m *Metrics) ObserveBuild(summary domain.Summary, elapsed time.Duration) {
	m.graphSize.WithLabelValues("users").Set(float64(summary.Users))
	m.graphSize.WithLabelValues("domains").Set(float64(summary.Domains))
	m.graphSize.WithLabelValues("sessions").Set(float64(summary.Sessions))
	m.graphSize.WithLabelValues("edges").Set(float64(summary.Edges))
	m.buildDuration.Observe(elapsed.Seconds())
}

// ObservePublish records one sink publish.
func (m *Metrics) ObservePublish(sink string, elapsed time.Duration, err error) {
	m.publishDuration.WithLabelValues(sink).Observe(elapsed.Seconds())
	if err != nil {
		m.publishFailures.WithLabelValues(sink).Inc()
	}
}

// ObserveRequest records one served HTTP request. route should be the matched
// pattern, not the raw path.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// RegisterRuntimeCollectors adds the Go runtime and process collectors to reg.
func RegisterRuntimeCollectors(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register runtime collector: %w", err)
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
