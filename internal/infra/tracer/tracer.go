// Package tracer wires OpenTelemetry around the two operations worth
// timing in a sketchbook process: the completion stream and the actor
// turn it feeds.
package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"sketchbook/internal/infra/config"
)

const scopeName = "sketchbook"

// Setup installs the global TracerProvider and returns its shutdown
// function. Disabled tracing installs a noop provider so span
// construction on the turn path costs nothing.
func Setup(ctx context.Context, cfg config.TracerConfig) (func(context.Context) error, error) {
	if !cfg.Enabled || cfg.Exporter == "noop" || cfg.Exporter == "" {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(cfg.Exporter)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(scopeName),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// newExporter maps the config name to a span exporter. Only stdout is
// supported; the portfolio site has no collector to ship to.
func newExporter(kind string) (sdktrace.SpanExporter, error) {
	switch kind {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", kind)
	}
}

// Turn starts the span covering one actor turn, from submission until
// the event stream is fully consumed.
func Turn(ctx context.Context, sessionID string, sceneLen int) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, "session.turn", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("scene.elements", sceneLen),
	))
}

// Completion starts the span covering one completion stream request.
func Completion(ctx context.Context, model string, width, height int) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, "llm.stream", trace.WithAttributes(
		attribute.String("llm.model", model),
		attribute.Int("canvas.width", width),
		attribute.Int("canvas.height", height),
	))
}

// RecordError records an error on the span and marks it failed.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks the span successful.
func SetOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
