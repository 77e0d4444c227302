// Package middleware provides composable middleware around job lifecycle
// hook invocations. Middleware wraps hook calls synchronously and can modify
// execution (recover from panics, log, add tracing and metrics, enforce
// deadlines).
package middleware

import "context"

// Phase names the lifecycle hook being invoked.
type Phase string

const (
	PhaseInit  Phase = "init"
	PhaseStart Phase = "start"
	PhaseRun   Phase = "run"
	PhaseStop  Phase = "stop"
	PhaseMixin Phase = "mixin"
)

// Invocation describes a single hook call about to happen.
type Invocation struct {
	// JobID is the runtime identifier of the job whose hook runs.
	JobID string
	// JobClass is the job's class name.
	JobClass string
	// Phase is the lifecycle hook being invoked.
	Phase Phase
	// Iteration is the loop iteration count at invocation time
	// (meaningful for PhaseRun only).
	Iteration int
	// Mixin is the mixin name for PhaseMixin invocations.
	Mixin string
}

// Handler is the terminal function that executes the hook logic.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the invocation being executed, and the next handler to
// call. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, inv Invocation, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the list is
// the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, inv Invocation, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, inv, prev)
			}
		}
		return h(ctx)
	}
}

// Nop is a pass-through middleware.
func Nop() Middleware {
	return func(ctx context.Context, _ Invocation, next Handler) error {
		return next(ctx)
	}
}
