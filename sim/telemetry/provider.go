// Package telemetry exports flow lifecycles as OpenTelemetry spans.
//
// Each flow becomes one "flow" span from arrival to the end of its
// transmission, with a "flow.wait" child covering the time spent queued and
// a "flow.transmit" child covering the time it held the pipe. Span
// timestamps are taken from the events, not from the time the sink sees them.
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "flowsim"

// NewProvider builds a tracer provider that exports synchronously to exporter.
// Callers must Shutdown the provider to flush and release the exporter.
func NewProvider(ctx context.Context, exporter sdktrace.SpanExporter, runID string) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", ServiceName),
			attribute.String("flowsim.run_id", runID),
		),
	)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	), nil
}

// NewStdoutProvider exports spans as JSON to w.
func NewStdoutProvider(ctx context.Context, w io.Writer, runID string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return NewProvider(ctx, exporter, runID)
}
