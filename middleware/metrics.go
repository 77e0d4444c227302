package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for loom metrics.
const meterName = "github.com/loomworks/loom"

// Metrics returns middleware that records per-hook execution metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - loom.hook.duration (Float64Histogram): hook execution time in
//     seconds, with attributes: job_class, phase, status ("ok" or "error")
//   - loom.hook.invocations (Int64Counter): total hook invocations,
//     with attributes: job_class, phase, status ("ok" or "error")
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Instruments are created once at construction time. On error the OTel
	// API returns noop instruments, so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"loom.hook.duration",
		metric.WithDescription("Duration of job hook execution in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr

	invocations, iErr := meter.Int64Counter(
		"loom.hook.invocations",
		metric.WithDescription("Total number of job hook invocations"),
		metric.WithUnit("{invocation}"),
	)
	_ = iErr

	return func(ctx context.Context, inv Invocation, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("job_class", inv.JobClass),
			attribute.String("phase", string(inv.Phase)),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		invocations.Add(ctx, 1, attrs)

		return err
	}
}
