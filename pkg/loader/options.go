package loader

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures the Coordinator
type Option func(*Coordinator)

// WithWorkers sets the size of the worker pool
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = n
	}
}

// WithExtension sets the file extension used for discovery
func WithExtension(ext string) Option {
	return func(c *Coordinator) {
		c.ext = ext
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(c *Coordinator) {
		c.metrics = mc
	}
}

// WithTracer sets the tracer used for run and file spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// WithDebounce sets how long Watch waits for a directory to go quiet
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		c.debounce = d
	}
}
