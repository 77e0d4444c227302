package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for loom tracing.
const tracerName = "github.com/loomworks/loom"

// Tracing returns middleware that wraps hook invocations in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: loom.job.id, loom.job.class, loom.hook.phase,
// loom.loop.iteration and loom.mixin where applicable. On error, the span
// status is set to codes.Error with the error message.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, inv Invocation, next Handler) error {
		attrs := []attribute.KeyValue{
			attribute.String("loom.job.id", inv.JobID),
			attribute.String("loom.job.class", inv.JobClass),
			attribute.String("loom.hook.phase", string(inv.Phase)),
		}
		if inv.Phase == PhaseRun {
			attrs = append(attrs, attribute.Int("loom.loop.iteration", inv.Iteration))
		}
		if inv.Mixin != "" {
			attrs = append(attrs, attribute.String("loom.mixin", inv.Mixin))
		}

		ctx, span := tracer.Start(ctx, "loom.job."+string(inv.Phase),
			trace.WithAttributes(attrs...),
			trace.WithSpanKind(trace.SpanKindInternal),
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
