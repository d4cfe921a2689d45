package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirilvk/exl-loader/pkg/exl"
)

// watchWorkerID labels the watch loop in logs and metrics.
const watchWorkerID = -1

// Watch keeps loading documents that are created or rewritten in the input
// directory. Changes are collected until the directory has been quiet for the
// debounce period, then processed one at a time in name order. Watch returns
// the accumulated Result when ctx is done or Cancel is called.
func (c *Coordinator) Watch(ctx context.Context) (Result, error) {
	res := Result{Worker: watchWorkerID}

	if c.inputDir == "" {
		return res, exl.ErrConfiguration("idir", "Input directory is required")
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return res, fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.inputDir); err != nil {
		return res, exl.ErrConfiguration("idir", "Unable to watch input directory").
			WithContext("path", c.inputDir).
			WithCause(err)
	}

	logger := c.logger.With("watch", c.inputDir)
	processor := NewProcessor(c.cache, logger, c.tracer)
	name := strconv.Itoa(watchWorkerID)

	wait := c.debounce
	if wait <= 0 {
		wait = time.Second
	}
	debounce := time.NewTimer(wait)
	debounce.Stop()
	pending := make(map[string]struct{})

	logger.Info("Watching for documents", "ext", c.ext, "debounce", wait)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher", "processed", res.Files, "records", res.Subtotal)
			res.Stopped = len(pending) > 0
			return res, nil

		case event, ok := <-watcher.Events:
			if !ok {
				return res, fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !matchesExtension(filepath.Base(event.Name), c.ext) {
				continue
			}

			logger.Debug("Document changed", "file", event.Name, "op", event.Op.String())
			pending[event.Name] = struct{}{}
			debounce.Reset(wait)

		case <-debounce.C:
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			sort.Strings(files)
			pending = make(map[string]struct{})

			for _, path := range files {
				start := time.Now()
				n, err := processor.Process(context.WithoutCancel(ctx), path)
				c.metrics.FileProcessed(name, time.Since(start), n, err)

				res.Files++
				res.Subtotal += n
				if err != nil {
					res.Failures++
					logger.Warn("Failed to process file", "file", path, "written", n, "error", err)
					continue
				}
				logger.Info("Loaded document", "file", path, "instruments", n)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return res, fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("Watcher error", "error", err)
		}
	}
}
