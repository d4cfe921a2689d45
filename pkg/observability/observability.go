// Package observability wires logging, tracing and the metrics endpoint for
// the loader process.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds observability configuration
type Config struct {
	// ServiceName is reported on every span
	ServiceName string

	// ServiceVersion is the version of the loader
	ServiceVersion string

	// MetricsPort is the port for the Prometheus metrics endpoint.
	// Set to 0 to disable the metrics HTTP server.
	MetricsPort int

	// EnableTracing turns on OpenTelemetry tracing with the stdout exporter
	EnableTracing bool

	// TraceOutput receives exported spans. Defaults to os.Stderr.
	TraceOutput io.Writer

	// Gatherer is served on /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// Manager owns the tracer provider and the metrics server
type Manager struct {
	config         Config
	logger         *slog.Logger
	tracerProvider *sdktrace.TracerProvider
	metricsServer  *http.Server
	metricsAddr    net.Addr
	shutdownOnce   sync.Once
}

// NewManager creates a new observability manager
func NewManager(config Config, logger *slog.Logger) *Manager {
	if config.ServiceName == "" {
		config.ServiceName = "exl-loader"
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = "0.0.0"
	}
	if config.TraceOutput == nil {
		config.TraceOutput = os.Stderr
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		config: config,
		logger: logger,
	}
}

// Initialize sets up tracing and the metrics server as configured
func (m *Manager) Initialize(ctx context.Context) error {
	m.logger.Debug("initializing observability",
		"service_name", m.config.ServiceName,
		"metrics_port", m.config.MetricsPort,
		"enable_tracing", m.config.EnableTracing)

	if m.config.EnableTracing {
		if err := m.initializeTracing(ctx); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		m.logger.Info("OpenTelemetry tracing initialized", "exporter", "stdout")
	}

	if m.config.MetricsPort > 0 {
		if err := m.startMetricsServer(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		m.logger.Info("metrics server started",
			"endpoint", fmt.Sprintf("http://localhost:%d/metrics", m.config.MetricsPort))
	}

	return nil
}

func (m *Manager) initializeTracing(ctx context.Context) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(m.config.ServiceName),
			semconv.ServiceVersion(m.config.ServiceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(m.config.TraceOutput),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	m.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(m.tracerProvider)

	return nil
}

// Tracer returns a tracer for the given name. Without tracing enabled it is
// a no-op tracer.
func (m *Manager) Tracer(name string) trace.Tracer {
	if m.tracerProvider != nil {
		return m.tracerProvider.Tracer(name)
	}
	return otel.Tracer(name)
}

// MetricsAddr returns the address the metrics server listens on, or nil.
func (m *Manager) MetricsAddr() net.Addr {
	return m.metricsAddr
}

// Handler returns the mux served by the metrics server
func (m *Manager) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(m.config.Gatherer, promhttp.HandlerOpts{}))

	return mux
}

func (m *Manager) startMetricsServer() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", m.config.MetricsPort))
	if err != nil {
		return err
	}
	m.metricsAddr = listener.Addr()

	m.metricsServer = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := m.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics server and flushes pending spans
func (m *Manager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	m.shutdownOnce.Do(func() {
		if m.metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := m.metricsServer.Shutdown(shutdownCtx); err != nil {
				m.logger.Error("failed to shutdown metrics server", "error", err)
				shutdownErr = fmt.Errorf("metrics server shutdown: %w", err)
			}
		}

		if m.tracerProvider != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := m.tracerProvider.Shutdown(shutdownCtx); err != nil {
				m.logger.Error("failed to shutdown tracer provider", "error", err)
				if shutdownErr == nil {
					shutdownErr = fmt.Errorf("tracer provider shutdown: %w", err)
				}
			}
		}
	})

	return shutdownErr
}
