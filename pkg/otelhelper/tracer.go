// Package otelhelper sets up OpenTelemetry tracing for the backend.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	WorkflowIDKey     = "flowbuilder.workflow.id"
	WorkflowStatusKey = "flowbuilder.workflow.status"
	ProjectIDKey      = "flowbuilder.project.id"
	ThreadIDKey       = "flowbuilder.thread.id"
)

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(ctx context.Context) error

type options struct {
	exporter sdktrace.SpanExporter
	sampler  sdktrace.Sampler
	version  string
}

type Option func(*options)

// WithExporter replaces the OTLP/HTTP exporter.
func WithExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exporter }
}

// WithSampleRatio samples the given fraction of new traces and follows the parent otherwise.
func WithSampleRatio(ratio float64) Option {
	return func(o *options) {
		o.sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func WithServiceVersion(version string) Option {
	return func(o *options) { o.version = version }
}

// NewTracer installs a global tracer provider. Unless WithExporter is given, spans go over
// OTLP/HTTP configured by the standard OTEL_EXPORTER_OTLP_* environment variables.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, serviceName string, opts ...Option) (trace.Tracer, ShutdownFunc, error) {
	o := options{sampler: sdktrace.AlwaysSample()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.exporter == nil {
		exporter, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, nil, err
		}

		o.exporter = exporter
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if o.version != "" {
		attrs = append(attrs, semconv.ServiceVersion(o.version))
	}

	r, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(o.exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(o.sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Tracer(serviceName), tp.Shutdown, nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
