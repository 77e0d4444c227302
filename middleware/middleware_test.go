package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testInvocation() Invocation {
	return Invocation{
		JobID:    "worker-100-200-1",
		JobClass: "worker",
		Phase:    PhaseRun,
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(ctx context.Context, _ Invocation, next Handler) error {
			order = append(order, name+":before")
			err := next(ctx)
			order = append(order, name+":after")
			return err
		}
	}

	chain := Chain(mk("outer"), mk("inner"))
	err := chain(context.Background(), testInvocation(), func(ctx context.Context) error {
		order = append(order, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("chain returned error: %v", err)
	}

	want := []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestChainEmpty(t *testing.T) {
	called := false
	err := Chain()(context.Background(), testInvocation(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("empty chain returned error: %v", err)
	}
	if !called {
		t.Fatal("handler was not called")
	}
}

func TestChainPropagatesError(t *testing.T) {
	want := errors.New("hook failed")
	err := Chain(Nop(), Nop())(context.Background(), testInvocation(), func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("got error %v, want %v", err, want)
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := Recover(logger)
	err := mw(context.Background(), testInvocation(), func(ctx context.Context) error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected error from panicking hook")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q does not mention panic value", err)
	}
	if !strings.Contains(buf.String(), "job hook panicked") {
		t.Errorf("log output missing panic record: %s", buf.String())
	}
}

func TestRecoverPassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))

	err := Recover(logger)(context.Background(), testInvocation(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("got error %v, want nil", err)
	}
}

func TestLoggingRecordsFailure(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	want := errors.New("run failed")
	err := Logging(logger)(context.Background(), testInvocation(), func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("got error %v, want %v", err, want)
	}

	out := buf.String()
	if !strings.Contains(out, "job hook started") {
		t.Errorf("missing start log: %s", out)
	}
	if !strings.Contains(out, "job hook failed") {
		t.Errorf("missing failure log: %s", out)
	}
	if !strings.Contains(out, "worker-100-200-1") {
		t.Errorf("missing job id in log: %s", out)
	}
}

func TestTimeoutExpires(t *testing.T) {
	mw := Timeout(20 * time.Millisecond)
	err := mw(context.Background(), testInvocation(), func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got error %v, want context.DeadlineExceeded", err)
	}
}

func TestTimeoutDisabled(t *testing.T) {
	err := Timeout(0)(context.Background(), testInvocation(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Error("deadline set despite disabled timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("got error %v, want nil", err)
	}
}

func TestTracingRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	mw := TracingWithTracer(provider.Tracer(tracerName))
	err := mw(context.Background(), testInvocation(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "loom.job.run" {
		t.Errorf("span name = %q, want %q", span.Name(), "loom.job.run")
	}

	attrs := make(map[string]string)
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["loom.job.class"] != "worker" {
		t.Errorf("loom.job.class = %q, want %q", attrs["loom.job.class"], "worker")
	}
	if attrs["loom.hook.phase"] != "run" {
		t.Errorf("loom.hook.phase = %q, want %q", attrs["loom.hook.phase"], "run")
	}
}

func TestTracingRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	mw := TracingWithTracer(provider.Tracer(tracerName))
	want := errors.New("run failed")
	err := mw(context.Background(), testInvocation(), func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("got error %v, want %v", err, want)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected recorded error event on span")
	}
}

func TestMetricsRecordsInvocations(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	mw := MetricsWithMeter(provider.Meter(meterName))

	if err := mw(context.Background(), testInvocation(), func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if err := mw(context.Background(), testInvocation(), func(ctx context.Context) error {
		return errors.New("run failed")
	}); err == nil {
		t.Fatal("expected error to propagate through metrics middleware")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	var sawDuration, sawInvocations bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "loom.hook.duration":
				sawDuration = true
			case "loom.hook.invocations":
				sawInvocations = true
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("invocations data is %T, want Sum[int64]", m.Data)
				}
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				if total != 2 {
					t.Errorf("invocation count = %d, want 2", total)
				}
			}
		}
	}
	if !sawDuration {
		t.Error("loom.hook.duration was not recorded")
	}
	if !sawInvocations {
		t.Error("loom.hook.invocations was not recorded")
	}
}
