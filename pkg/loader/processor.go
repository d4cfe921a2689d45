package loader

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/sirilvk/exl-loader/pkg/exl"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sirilvk/exl-loader/pkg/loader"

// CacheWriter stores extracted records. *redis.Cache implements it.
type CacheWriter interface {
	WriteTemplate(ctx context.Context, tpl exl.Template) error
	WriteInstrument(ctx context.Context, inst exl.Instrument) error
}

// Processor loads a single document into the cache.
type Processor struct {
	cache  CacheWriter
	logger *slog.Logger
	tracer trace.Tracer
}

// NewProcessor creates a Processor. A nil logger or tracer falls back to the
// process defaults.
func NewProcessor(cache CacheWriter, logger *slog.Logger, tracer trace.Tracer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Processor{cache: cache, logger: logger, tracer: tracer}
}

// Process parses path, writes its template and then each instrument in
// document order. It returns the number of instruments written.
//
// A template failure aborts the file before any instrument is written. An
// instrument failure stops the file: earlier instruments stay in the cache
// and their count is returned along with the error. A document without an
// instrument container is logged and counts zero.
func (p *Processor) Process(ctx context.Context, path string) (int, error) {
	ctx, span := p.tracer.Start(ctx, "exl.process_file",
		trace.WithAttributes(attribute.String("exl.file", path)))
	defer span.End()

	count, err := p.process(ctx, path)

	span.SetAttributes(attribute.Int("exl.instruments", count))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return count, err
}

func (p *Processor) process(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, exl.ErrParse(path, err)
	}
	defer f.Close()

	doc, err := exl.Parse(bufio.NewReader(f))
	if err != nil {
		return 0, exl.ErrParse(path, err)
	}

	tpl, err := exl.ExtractTemplate(doc)
	if err != nil {
		return 0, withFile(err, path)
	}
	if err := p.cache.WriteTemplate(ctx, tpl); err != nil {
		return 0, withFile(err, path)
	}

	instruments, err := exl.ExtractInstruments(doc, tpl.Name)
	if errors.Is(err, exl.ErrNoInstruments) {
		p.logger.Warn("Document has no instruments", "file", path, "template", tpl.Name)
		return 0, nil
	}
	if err != nil {
		return 0, withFile(err, path)
	}

	count := 0
	for inst, err := range instruments {
		if err != nil {
			return count, withFile(err, path)
		}
		if err := p.cache.WriteInstrument(ctx, inst); err != nil {
			return count, withFile(err, path).WithContext("index", count)
		}
		count++
	}

	p.logger.Debug("Loaded document", "file", path, "template", tpl.Name, "instruments", count)
	return count, nil
}

// withFile tags err with the file it came from.
func withFile(err error, path string) *exl.Error {
	var e *exl.Error
	if errors.As(err, &e) {
		return e.WithContext("file", path)
	}
	return exl.NewError(exl.ErrorCodeExtraction, "Unable to load document").
		WithContext("file", path).
		WithCause(err)
}
