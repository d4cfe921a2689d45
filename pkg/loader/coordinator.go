// Package loader runs the batch: discovery, sharding, the worker pool and the
// per-file processing that feeds the cache.
package loader

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirilvk/exl-loader/pkg/exl"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 20

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Files       int
	Shards      int
	Records     int
	Failed      int
	Interrupted bool
	Started     time.Time
	Elapsed     time.Duration
	Results     []Result
}

// Coordinator discovers documents, shards them across a worker pool and sums
// the workers' subtotals.
type Coordinator struct {
	inputDir string
	cache    CacheWriter
	workers  int
	ext      string
	debounce time.Duration

	logger  *slog.Logger
	metrics MetricsCollector
	tracer  trace.Tracer

	// Shutdown coordination
	mu             sync.Mutex
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	active         map[int]context.CancelFunc
	nextID         int
}

// NewCoordinator creates a coordinator for the documents in inputDir.
func NewCoordinator(inputDir string, cache CacheWriter, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		inputDir:       inputDir,
		cache:          cache,
		workers:        DefaultWorkers,
		ext:            DefaultExtension,
		debounce:       time.Second,
		logger:         slog.Default(),
		metrics:        NewNoopMetricsCollector(),
		tracer:         otel.Tracer(tracerName),
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
		active:         make(map[int]context.CancelFunc),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.ext == "" {
		c.ext = DefaultExtension
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = NewNoopMetricsCollector()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	return c
}

// Cancel requests a cooperative stop. Workers finish their current file and
// publish what they have. Safe to call before, during or after Run.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shutdownCancel()
	for _, cancel := range c.active {
		cancel()
	}
}

// bind derives a context from parent that Cancel also cancels. By the time
// Cancel returns, every bound context is done.
func (c *Coordinator) bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdownCtx.Err() != nil {
		cancel()
		return ctx, cancel
	}

	c.nextID++
	id := c.nextID
	c.active[id] = cancel

	return ctx, func() {
		c.mu.Lock()
		delete(c.active, id)
		c.mu.Unlock()
		cancel()
	}
}

// Run loads every document in the input directory and returns the totals.
// An error is returned only when the run could not start.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	if c.workers < 1 {
		return nil, exl.ErrConfiguration("threads", "Worker count must be at least 1").
			WithContext("value", c.workers)
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	summary := &Summary{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}

	files, err := DiscoverFiles(c.inputDir, c.ext)
	if err != nil {
		return nil, err
	}
	shards := PartitionFiles(files, c.workers)
	summary.Files = len(files)
	summary.Shards = len(shards)

	ctx, span := c.tracer.Start(ctx, "exl.run", trace.WithAttributes(
		attribute.String("exl.run_id", summary.RunID),
		attribute.String("exl.input_dir", c.inputDir),
		attribute.Int("exl.files", len(files)),
		attribute.Int("exl.shards", len(shards)),
	))
	defer span.End()

	logger := c.logger.With("run_id", summary.RunID)
	logger.Info("Starting run",
		"input_dir", c.inputDir,
		"files", len(files),
		"workers", c.workers,
		"shards", len(shards))

	if ctx.Err() != nil {
		summary.Interrupted = true
		summary.Elapsed = time.Since(summary.Started)
		logger.Warn("Run cancelled before workers started")
		return summary, nil
	}

	processor := NewProcessor(c.cache, logger, c.tracer)
	results := make(chan Result, len(shards))

	var wg sync.WaitGroup
	for i, shard := range shards {
		w := &Worker{
			ID:        i,
			Files:     shard,
			processor: processor,
			logger:    logger,
			metrics:   c.metrics,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx, results)
		}()
	}
	wg.Wait()
	close(results)

	for res := range results {
		summary.Records += res.Subtotal
		summary.Failed += res.Failures
		if res.Stopped {
			summary.Interrupted = true
		}
		summary.Results = append(summary.Results, res)
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Worker < summary.Results[j].Worker
	})
	if ctx.Err() != nil {
		summary.Interrupted = true
	}
	summary.Elapsed = time.Since(summary.Started)

	c.metrics.RunFinished(summary.Records, summary.Elapsed)
	span.SetAttributes(
		attribute.Int("exl.instruments", summary.Records),
		attribute.Int("exl.failed_files", summary.Failed),
		attribute.Bool("exl.interrupted", summary.Interrupted),
	)
	logger.Info("Run finished",
		"records", summary.Records,
		"failed_files", summary.Failed,
		"interrupted", summary.Interrupted,
		"elapsed", summary.Elapsed)

	return summary, nil
}
