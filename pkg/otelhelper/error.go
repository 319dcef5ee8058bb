package otelhelper

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorTypeKey holds the Go type of a recorded error.
const ErrorTypeKey = "error.type"

// SetError marks the span failed and records err with attrs on an error_occurred event.
// A nil err leaves the span untouched.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs = append(attrs, attribute.String(ErrorTypeKey, fmt.Sprintf("%T", err)))
	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}
