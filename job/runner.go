package job

import (
	"context"

	"github.com/loomworks/loom/event"
)

// Runner carries a job's user logic. Implementations embed Base, which
// provides no-op OnInit, OnStart and OnStop so runners only override the
// hooks they need; OnRun must always be provided.
//
// Hook errors never escape to the process: they are captured per phase,
// routed to the matching optional error hook (StartErrorHook and friends)
// and force the job into its own stop sequence.
type Runner interface {
	OnInit(ctx context.Context) error
	OnStart(ctx context.Context) error
	OnRun(ctx context.Context) error
	OnStop(ctx context.Context) error
}

// StartErrorHook is implemented by runners that want to observe OnStart
// failures. The default behavior logs the error.
type StartErrorHook interface {
	OnStartError(ctx context.Context, err error)
}

// RunErrorHook is implemented by runners that want to observe OnRun
// failures that were not swallowed by the reconnect allowlist.
type RunErrorHook interface {
	OnRunError(ctx context.Context, err error)
}

// StopErrorHook is implemented by runners that want to observe OnStop
// failures.
type StopErrorHook interface {
	OnStopError(ctx context.Context, err error)
}

// MixinErrorHook is implemented by runners that want to observe mixin
// routine failures. The failed task still reports its error when awaited.
type MixinErrorHook interface {
	OnMixinError(ctx context.Context, m *Mixin, err error)
}

// EventChecker is implemented by runners that want to filter events
// delivered through their class's static subscriptions. Without it, every
// subscribed event kind is accepted.
type EventChecker interface {
	EventCheck(ev event.Event) bool
}

// MethodRunner is implemented by runners whose class declares public
// methods. The manager routes RunPublicMethod calls here by name.
type MethodRunner interface {
	RunMethod(ctx context.Context, name string, args ...any) (any, error)
}

// binder is how New wires a freshly constructed runner to its job.
type binder interface {
	bindJob(j *Job)
}

// Base is the mandatory embeddable foundation of every runner. It holds
// the back-reference to the runner's own job and provides default no-op
// lifecycle hooks (except OnRun).
type Base struct {
	job *Job
}

func (b *Base) bindJob(j *Job) { b.job = j }

// Job returns the runner's own job instance, giving access to the
// self-operation surface: stopping, restarting, completing, killing,
// output writes, mixin scheduling and the event queue.
func (b *Base) Job() *Job { return b.job }

// Manager returns the job-facing manager proxy. It is nil until the job
// has been bound to a manager.
func (b *Base) Manager() ManagerLink {
	if b.job == nil {
		return nil
	}
	return b.job.link
}

// OnInit is a no-op by default.
func (b *Base) OnInit(ctx context.Context) error { return nil }

// OnStart is a no-op by default.
func (b *Base) OnStart(ctx context.Context) error { return nil }

// OnStop is a no-op by default.
func (b *Base) OnStop(ctx context.Context) error { return nil }
