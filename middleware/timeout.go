package middleware

import (
	"context"
	"fmt"
	"time"
)

// Timeout returns middleware that enforces a deadline on each hook
// invocation. The hook's context is cancelled when the deadline passes and
// the middleware returns a timeout error without waiting for the hook to
// observe the cancellation.
//
// A non-positive duration disables the deadline and the middleware becomes
// a pass-through.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, inv Invocation, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- next(ctx)
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return fmt.Errorf("%s hook of job %s timed out after %s: %w",
				inv.Phase, inv.JobID, d, ctx.Err())
		}
	}
}
