package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that recovers from panics in the hook chain.
// Panics are converted to errors and logged with a stack trace, so a
// panicking hook tears down its own job rather than the process.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv Invocation, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("job hook panicked",
					slog.String("job_id", inv.JobID),
					slog.String("job_class", inv.JobClass),
					slog.String("phase", string(inv.Phase)),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in %s hook of job %s: %v", inv.Phase, inv.JobID, r)
			}
		}()
		return next(ctx)
	}
}
