// Package tracing attaches pipeline attributes to the caller's span.
// Without a recording span in the context every call is a no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/example/goalbot"

const (
	KeyStage     = attribute.Key("agent.type")
	KeyGoal      = attribute.Key("agent.goal")
	KeyCategory  = attribute.Key("agent.category")
	KeyDay       = attribute.Key("agent.day")
	KeyCompleted = attribute.Key("agent.task_completed")
	KeyConfident = attribute.Key("agent.confidence")
	KeyRetry     = attribute.Key("agent.retry")
	KeyCrisis    = attribute.Key("agent.crisis")
	KeyUnsafe    = attribute.Key("agent.unsafe")
)

// Annotate sets attributes on the active span.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attrs...)
}

// Stage records which stage is running and for which goal.
func Stage(ctx context.Context, stage, goal string) {
	Annotate(ctx, KeyStage.String(stage), KeyGoal.String(goal))
}

// Event adds a named event, e.g. a retry or a safety short-circuit.
func Event(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Start opens a span from the global tracer provider. Until a provider is
// installed with otel.SetTracerProvider the span does not record.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(attrs...))
}
