package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Strob0t/a2agate"

// Tracer returns the gateway tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartRouteSpan starts a span for one routed task call.
func StartRouteSpan(ctx context.Context, tracer trace.Tracer, correlationID, role string, hops int) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = Tracer()
	}
	return tracer.Start(ctx, "route",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("a2a.correlation_id", correlationID),
			attribute.String("a2a.target_role", role),
			attribute.Int("a2a.hop_count", hops),
		),
	)
}

// EndRouteSpan records the outcome on span and ends it. An empty errorCode
// marks the span successful.
func EndRouteSpan(span trace.Span, env, state string, stub bool, errorCode string) {
	span.SetAttributes(
		attribute.String("a2a.environment", env),
		attribute.String("a2a.state", state),
		attribute.Bool("a2a.stub", stub),
	)
	if errorCode != "" {
		span.SetAttributes(attribute.String("a2a.error_code", errorCode))
		span.SetStatus(codes.Error, errorCode)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
