package loader

import (
	"strings"
	"time"

	"github.com/sirilvk/exl-loader/pkg/exl"
)

// MetricsCollector defines the interface for collecting loader metrics
type MetricsCollector interface {
	// ShardAssigned records how many files a worker was given
	ShardAssigned(worker string, files int)

	// FileProcessed records the outcome of one file
	FileProcessed(worker string, duration time.Duration, records int, err error)

	// WorkerFinished records the subtotal a worker published
	WorkerFinished(worker string, subtotal int, stopped bool)

	// RunFinished records the aggregate of a whole run
	RunFinished(total int, duration time.Duration)
}

// noopMetricsCollector is a no-op implementation of MetricsCollector
type noopMetricsCollector struct{}

func (n *noopMetricsCollector) ShardAssigned(worker string, files int) {}
func (n *noopMetricsCollector) FileProcessed(worker string, duration time.Duration, records int, err error) {
}
func (n *noopMetricsCollector) WorkerFinished(worker string, subtotal int, stopped bool) {}
func (n *noopMetricsCollector) RunFinished(total int, duration time.Duration)          {}

// NewNoopMetricsCollector creates a no-op metrics collector
func NewNoopMetricsCollector() MetricsCollector {
	return &noopMetricsCollector{}
}

// statusLabel maps a file outcome to a metric label
func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	if code := exl.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}
