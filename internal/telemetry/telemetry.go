// Package telemetry exports run traces over OpenTelemetry and adapts them to
// the framework's observer interface, so every LLM call, tool call and graph
// node shows up as a span.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/leofalp/aigo/providers/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "deepagent"

// Exporter owns the tracer provider and implements the framework's
// observability.Provider over it. Close flushes pending spans and logs the
// collected metric totals.
type Exporter struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider // nil when tracing is disabled
	log      *slog.Logger
	file     *os.File // nil when spans go to stderr

	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]histogramState
}

type histogramState struct {
	count int64
	sum   float64
}

var _ observability.Provider = (*Exporter)(nil)

// New builds an Exporter. When enabled, spans are written as JSON to path
// (stderr when path is empty); when disabled, tracing is a no-op but logging
// and metric counting still work.
func New(enabled bool, path string, log *slog.Logger) (*Exporter, error) {
	e := &Exporter{
		log:        log,
		counters:   map[string]int64{},
		histograms: map[string]histogramState{},
	}

	if !enabled {
		e.tracer = noop.NewTracerProvider().Tracer(serviceName)
		return e, nil
	}

	var w io.Writer = os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace output: %w", err)
		}
		e.file = f
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if e.file != nil {
			e.file.Close()
		}
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	e.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	e.tracer = e.provider.Tracer(serviceName)
	return e, nil
}

// Close flushes spans and logs metric totals.
func (e *Exporter) Close(ctx context.Context) error {
	e.mu.Lock()
	for name, v := range e.counters {
		e.log.Debug("metric total", "counter", name, "value", v)
	}
	for name, h := range e.histograms {
		if h.count > 0 {
			e.log.Debug("metric total", "histogram", name, "count", h.count, "mean", h.sum/float64(h.count))
		}
	}
	e.mu.Unlock()

	if e.provider != nil {
		if err := e.provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down tracer: %w", err)
		}
	}
	if e.file != nil {
		return e.file.Close()
	}
	return nil
}

// StartSpan implements observability.Tracer.
func (e *Exporter) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	ctx, span := e.tracer.Start(ctx, name, trace.WithAttributes(toKeyValues(attrs)...))
	return ctx, &otelSpan{span: span}
}

// Counter implements observability.Metrics.
func (e *Exporter) Counter(name string) observability.Counter {
	return counterFunc(func(ctx context.Context, value int64, attrs ...observability.Attribute) {
		e.mu.Lock()
		e.counters[name] += value
		e.mu.Unlock()
	})
}

// Histogram implements observability.Metrics.
func (e *Exporter) Histogram(name string) observability.Histogram {
	return histogramFunc(func(ctx context.Context, value float64, attrs ...observability.Attribute) {
		e.mu.Lock()
		h := e.histograms[name]
		h.count++
		h.sum += value
		e.histograms[name] = h
		e.mu.Unlock()
	})
}

// Logger bridge to slog.

func (e *Exporter) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	e.log.Debug(msg, toSlogArgs(attrs)...)
}

func (e *Exporter) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	e.log.Debug(msg, toSlogArgs(attrs)...)
}

func (e *Exporter) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	e.log.Info(msg, toSlogArgs(attrs)...)
}

func (e *Exporter) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	e.log.Warn(msg, toSlogArgs(attrs)...)
}

func (e *Exporter) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	e.log.Error(msg, toSlogArgs(attrs)...)
}

type counterFunc func(ctx context.Context, value int64, attrs ...observability.Attribute)

func (f counterFunc) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	f(ctx, value, attrs...)
}

type histogramFunc func(ctx context.Context, value float64, attrs ...observability.Attribute)

func (f histogramFunc) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	f(ctx, value, attrs...)
}

// otelSpan adapts a trace.Span to the framework's span interface.
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttributes(attrs ...observability.Attribute) {
	s.span.SetAttributes(toKeyValues(attrs)...)
}

func (s *otelSpan) SetStatus(code observability.StatusCode, description string) {
	switch code {
	case observability.StatusOK:
		s.span.SetStatus(codes.Ok, description)
	case observability.StatusError:
		s.span.SetStatus(codes.Error, description)
	default:
		s.span.SetStatus(codes.Unset, description)
	}
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toKeyValues(attrs)...))
}

func toKeyValues(attrs []observability.Attribute) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kvs = append(kvs, toKeyValue(a))
	}
	return kvs
}

func toKeyValue(a observability.Attribute) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case time.Duration:
		return attribute.String(a.Key, v.String())
	case error:
		return attribute.String(a.Key, v.Error())
	default:
		return attribute.String(a.Key, fmt.Sprintf("%v", v))
	}
}

func toSlogArgs(attrs []observability.Attribute) []any {
	args := make([]any, 0, len(attrs)*2)
	for _, a := range attrs {
		args = append(args, a.Key, a.Value)
	}
	return args
}
