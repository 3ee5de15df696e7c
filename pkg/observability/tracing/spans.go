// Package tracing provides OpenTelemetry tracing for counter adapter operations.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer scope used for counter spans.
const InstrumentationName = "github.com/nimburion/lazycounter/counter"

// SpanOperation represents a traced counter operation.
type SpanOperation string

// Span operation constants for the adapter surface
const (
	// SpanOperationInit represents counter initialization
	SpanOperationInit SpanOperation = "counter.init"
	// SpanOperationGet represents a counter read
	SpanOperationGet SpanOperation = "counter.get"
	// SpanOperationSet represents a counter write
	SpanOperationSet SpanOperation = "counter.set"
	// SpanOperationDispose represents adapter disposal
	SpanOperationDispose SpanOperation = "counter.dispose"
)

// Name returns the operation without the "counter." prefix ("init", "get", ...).
func (o SpanOperation) Name() string {
	return strings.TrimPrefix(string(o), "counter.")
}

// StartCounterSpan creates a new span for an adapter operation.
// The span name is "COUNTER <operation>" followed by the store label when set.
func StartCounterSpan(ctx context.Context, operation SpanOperation, opts ...CounterSpanOption) (context.Context, trace.Span) {
	tracer := otel.Tracer(InstrumentationName)

	spanOpts := &counterSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("counter.operation", operation.Name()),
		},
	}
	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("COUNTER %s", operation.Name())
	if spanOpts.store != "" {
		spanName = fmt.Sprintf("COUNTER %s %s", operation.Name(), spanOpts.store)
	}

	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(spanOpts.attributes...)
	return ctx, span
}

// CounterSpanOption configures a counter span.
type CounterSpanOption func(*counterSpanOptions)

type counterSpanOptions struct {
	store      string
	attributes []attribute.KeyValue
}

// WithStore sets the store label (e.g. "sqlite", "redis").
func WithStore(store string) CounterSpanOption {
	return func(opts *counterSpanOptions) {
		opts.store = store
		opts.attributes = append(opts.attributes, attribute.String("counter.store", store))
	}
}

// WithAdapterID sets the adapter instance identifier.
func WithAdapterID(id string) CounterSpanOption {
	return func(opts *counterSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("counter.adapter_id", id))
	}
}

// RecordError records an error in the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordSuccess sets the span status to OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// EndSpan records the outcome of err and ends the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	span.End()
}
