package loader

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Result is the one message a worker publishes when it exits.
type Result struct {
	Worker   int
	Subtotal int
	Files    int
	Failures int
	Stopped  bool
}

// Worker processes one shard sequentially.
type Worker struct {
	ID    int
	Files []string

	processor *Processor
	logger    *slog.Logger
	metrics   MetricsCollector
}

// Run processes the shard in order and sends exactly one Result on exit.
//
// A failing file is logged and counted and the worker moves on. ctx is only
// checked after each file, so a file that has started always runs to the end
// of its write sequence.
func (w *Worker) Run(ctx context.Context, results chan<- Result) {
	name := strconv.Itoa(w.ID)
	res := Result{Worker: w.ID}

	defer func() {
		w.metrics.WorkerFinished(name, res.Subtotal, res.Stopped)
		results <- res
	}()

	w.metrics.ShardAssigned(name, len(w.Files))
	w.logger.Debug("Worker started", "worker", w.ID, "files", len(w.Files))

	for i, path := range w.Files {
		start := time.Now()
		n, err := w.processor.Process(context.WithoutCancel(ctx), path)
		w.metrics.FileProcessed(name, time.Since(start), n, err)

		res.Files++
		res.Subtotal += n
		if err != nil {
			res.Failures++
			w.logger.Warn("Failed to process file",
				"worker", w.ID,
				"file", path,
				"written", n,
				"error", err)
		}

		if ctx.Err() != nil && i < len(w.Files)-1 {
			res.Stopped = true
			w.logger.Info("Worker stopping early",
				"worker", w.ID,
				"processed", res.Files,
				"remaining", len(w.Files)-res.Files)
			return
		}
	}

	w.logger.Debug("Worker finished", "worker", w.ID, "subtotal", res.Subtotal)
}
