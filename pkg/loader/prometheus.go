package loader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsCollector implements MetricsCollector using Prometheus metrics
type PrometheusMetricsCollector struct {
	// Partitioning
	shardFiles *prometheus.GaugeVec

	// Per-file metrics
	filesProcessed *prometheus.CounterVec
	fileDuration   *prometheus.HistogramVec
	instruments    *prometheus.CounterVec

	// Per-worker metrics
	workerSubtotal *prometheus.GaugeVec
	workerStopped  prometheus.Counter

	// Run totals
	runInstruments prometheus.Gauge
	runDuration    prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	if namespace == "" {
		namespace = "exl_loader"
	}

	pmc := &PrometheusMetricsCollector{
		registry: prometheus.NewRegistry(),
	}

	pmc.shardFiles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shard_files",
			Help:      "Number of files assigned to each worker",
		},
		[]string{"worker"},
	)

	pmc.filesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Total number of files processed, by outcome",
		},
		[]string{"worker", "status"},
	)

	pmc.fileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent parsing and writing one file",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	pmc.instruments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instruments_written_total",
			Help:      "Total number of instrument records written to the cache",
		},
		[]string{"worker"},
	)

	pmc.workerSubtotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_subtotal",
			Help:      "Instrument records published by each worker",
		},
		[]string{"worker"},
	)

	pmc.workerStopped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_stopped_early_total",
			Help:      "Workers that stopped before the end of their shard due to shutdown",
		},
	)

	pmc.runInstruments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_instruments",
			Help:      "Instrument records written by the last completed run",
		},
	)

	pmc.runDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last completed run",
		},
	)

	pmc.registry.MustRegister(
		pmc.shardFiles,
		pmc.filesProcessed,
		pmc.fileDuration,
		pmc.instruments,
		pmc.workerSubtotal,
		pmc.workerStopped,
		pmc.runInstruments,
		pmc.runDuration,
	)

	return pmc
}

// ShardAssigned records the size of a worker's shard
func (pmc *PrometheusMetricsCollector) ShardAssigned(worker string, files int) {
	pmc.shardFiles.WithLabelValues(worker).Set(float64(files))
}

// FileProcessed records the outcome of one file
func (pmc *PrometheusMetricsCollector) FileProcessed(worker string, duration time.Duration, records int, err error) {
	status := statusLabel(err)

	pmc.filesProcessed.WithLabelValues(worker, status).Inc()
	pmc.fileDuration.WithLabelValues(status).Observe(duration.Seconds())
	if records > 0 {
		pmc.instruments.WithLabelValues(worker).Add(float64(records))
	}
}

// WorkerFinished records a worker's published subtotal
func (pmc *PrometheusMetricsCollector) WorkerFinished(worker string, subtotal int, stopped bool) {
	pmc.workerSubtotal.WithLabelValues(worker).Set(float64(subtotal))
	if stopped {
		pmc.workerStopped.Inc()
	}
}

// RunFinished records the aggregate of a run
func (pmc *PrometheusMetricsCollector) RunFinished(total int, duration time.Duration) {
	pmc.runInstruments.Set(float64(total))
	pmc.runDuration.Set(duration.Seconds())
}

// Registry returns the Prometheus registry for HTTP handler setup
func (pmc *PrometheusMetricsCollector) Registry() *prometheus.Registry {
	return pmc.registry
}

// Compile-time interface compliance check
var _ MetricsCollector = (*PrometheusMetricsCollector)(nil)
