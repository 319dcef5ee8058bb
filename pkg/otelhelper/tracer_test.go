package otelhelper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewTracer_ExportsWithServiceResource(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	exporter := tracetest.NewInMemoryExporter()

	tracer, shutdown, err := NewTracer(context.Background(), "flowbuilder-test",
		WithExporter(exporter), WithServiceVersion("1.2.3"))
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), tracer, "workflow.execute", attribute.String(ThreadIDKey, "th-1"))
	span.End()

	require.NoError(t, shutdown(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "workflow.execute", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String(ThreadIDKey, "th-1"))
	assert.Contains(t, spans[0].Resource.Attributes(), semconv.ServiceName("flowbuilder-test"))
	assert.Contains(t, spans[0].Resource.Attributes(), semconv.ServiceVersion("1.2.3"))
}

func TestNewTracer_ZeroRatioDropsRootSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	exporter := tracetest.NewInMemoryExporter()

	tracer, shutdown, err := NewTracer(context.Background(), "flowbuilder-test",
		WithExporter(exporter), WithSampleRatio(0))
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), tracer, "dropped")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, exporter.GetSpans())
}
