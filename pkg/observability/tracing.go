// Package observability provides tracing for datstats runs
package observability

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	// Enabled turns on span export; otherwise spans are no-ops
	Enabled bool
	// Writer receives exported spans
	Writer io.Writer
}

// Tracer starts spans for the phases of a run
type Tracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewTracer builds a tracer from config. Spans are exported synchronously so
// nothing is lost when the process exits right after Shutdown.
func NewTracer(config TracingConfig) (*Tracer, error) {
	if !config.Enabled {
		return NewTracerFromProvider(noop.NewTracerProvider(), config.ServiceName), nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if config.Writer != nil {
		opts = append(opts, stdouttrace.WithWriter(config.Writer))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exporter),
	)

	return &Tracer{
		tracer:   tp.Tracer(config.ServiceName),
		shutdown: tp.Shutdown,
	}, nil
}

// NewTracerFromProvider wraps an existing provider. Shutdown is left to the
// provider's owner.
func NewTracerFromProvider(tp trace.TracerProvider, name string) *Tracer {
	return &Tracer{
		tracer:   tp.Tracer(name),
		shutdown: func(context.Context) error { return nil },
	}
}

// Shutdown flushes and stops the exporter
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}

// Span represents a tracing span
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// StartSpan starts a span named after the operation
func (t *Tracer) StartSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := t.tracer.Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span; attributes are set on End
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// RecordError marks the span failed
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End ends the span
func (s *Span) End() {
	s.attributes = append(s.attributes, attribute.Float64("duration_ms",
		float64(time.Since(s.startTime).Microseconds())/1000))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}
