// Package metrics provides Prometheus metrics export for the search
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports pipeline metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	// Job metrics
	jobsTotal   *prometheus.CounterVec
	jobLatency  *prometheus.HistogramVec
	jobsRunning prometheus.Gauge

	// Pipeline stage metrics
	stageLatency *prometheus.HistogramVec

	// Index metrics
	rebuildsTotal  prometheus.Counter
	rebuildLatency prometheus.Histogram
	shardSize      *prometheus.GaugeVec
	indexEntries   prometheus.Gauge
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewExporter creates an Exporter with all collectors registered.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfsight",
			Subsystem: "job",
			Name:      "completed_total",
			Help:      "Search jobs finished, by terminal status",
		},
		[]string{"status"},
	)
	e.jobLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfsight",
			Subsystem: "job",
			Name:      "latency_seconds",
			Help:      "End-to-end search job latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"status"},
	)
	e.jobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "shelfsight",
			Subsystem: "job",
			Name:      "running",
			Help:      "Search jobs currently processing",
		},
	)
	e.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfsight",
			Subsystem: "pipeline",
			Name:      "stage_latency_seconds",
			Help:      "Per-stage pipeline latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)
	e.rebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shelfsight",
			Subsystem: "index",
			Name:      "rebuilds_total",
			Help:      "Completed index rebuilds",
		},
	)
	e.rebuildLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shelfsight",
			Subsystem: "index",
			Name:      "rebuild_latency_seconds",
			Help:      "Index rebuild latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
	)
	e.shardSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shelfsight",
			Subsystem: "index",
			Name:      "shard_size",
			Help:      "Entries per color shard",
		},
		[]string{"color"},
	)
	e.indexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "shelfsight",
			Subsystem: "index",
			Name:      "entries",
			Help:      "Total entries in the active snapshot",
		},
	)

	registry.MustRegister(
		e.jobsTotal,
		e.jobLatency,
		e.jobsRunning,
		e.stageLatency,
		e.rebuildsTotal,
		e.rebuildLatency,
		e.shardSize,
		e.indexEntries,
	)
	return e
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// JobStarted marks one job as running.
func (e *Exporter) JobStarted() {
	e.jobsRunning.Inc()
}

// JobFinished records a terminal transition and its latency.
func (e *Exporter) JobFinished(status string, elapsed time.Duration) {
	e.jobsRunning.Dec()
	e.jobsTotal.WithLabelValues(status).Inc()
	e.jobLatency.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ObserveStage records the latency of one pipeline stage.
func (e *Exporter) ObserveStage(stage string, elapsed time.Duration) {
	e.stageLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RebuildCompleted records a rebuild and the published shard sizes.
func (e *Exporter) RebuildCompleted(elapsed time.Duration, shardSizes map[string]int, total int) {
	e.rebuildsTotal.Inc()
	e.rebuildLatency.Observe(elapsed.Seconds())
	for color, size := range shardSizes {
		e.shardSize.WithLabelValues(color).Set(float64(size))
	}
	e.indexEntries.Set(float64(total))
}
