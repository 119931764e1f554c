package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cualquiercosa327/libkeen/task"
)

// tracerName is the instrumentation scope name for delivery tracing.
const tracerName = "github.com/cualquiercosa327/libkeen"

// Tracing returns middleware that wraps each delivery in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: keen.event.id, keen.event.name,
// keen.address, keen.replay. On error, the span status is set to
// codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided
// tracer. This variant allows injecting a specific TracerProvider for
// testing or when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		ctx, span := tracer.Start(ctx, "keen.delivery.send",
			trace.WithAttributes(
				attribute.String("keen.event.id", t.EventID.String()),
				attribute.String("keen.event.name", t.Name),
				attribute.String("keen.address", t.Address),
				attribute.Bool("keen.replay", t.Replay),
			),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
