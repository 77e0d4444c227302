package job

import (
	"context"
	"time"

	"github.com/loomworks/loom/id"
)

// Handle is the restricted view of a job given to other jobs: reads,
// awaits, output consumption and public method invocation, but none of the
// lifecycle verbs. Management of another job always goes through the
// manager, which enforces the permission matrix.
type Handle struct {
	j *Job
}

// NewHandle wraps a job in its restricted view.
func NewHandle(j *Job) *Handle { return &Handle{j: j} }

// RuntimeID returns the job's process-unique identifier.
func (h *Handle) RuntimeID() id.JobID { return h.j.id }

// Class returns the job's class.
func (h *Handle) Class() *Class { return h.j.class }

// Status returns the job's current lifecycle status.
func (h *Handle) Status() Status { return h.j.Status() }

// Initialized reports whether the job is initialized.
func (h *Handle) Initialized() bool { return h.j.Initialized() }

// Alive reports whether the job is bound, initialized and not done.
func (h *Handle) Alive() bool { return h.j.Alive() }

// Done reports whether the job reached a terminal state.
func (h *Handle) Done() bool { return h.j.Done() }

// Running reports whether the job is inside a run cycle.
func (h *Handle) Running() bool { return h.j.Running() }

// Guarded reports whether a guard is currently held on the job.
func (h *Handle) Guarded() bool { return h.j.Guarded() }

// WasRestarted reports whether the job has been restarted at least once.
func (h *Handle) WasRestarted() bool { return h.j.WasRestarted() }

// LastStopReason returns the reason recorded by the most recent stop.
func (h *Handle) LastStopReason() StopReason { return h.j.LastStopReason() }

// StoppingReason returns why the job is currently stopping, if it is.
func (h *Handle) StoppingReason() StopReason { return h.j.StoppingReason() }

// CreatedAt returns the instance creation time.
func (h *Handle) CreatedAt() time.Time { return h.j.createdAt }

// DoneSince returns when the job reached a terminal state, or the zero
// time.
func (h *Handle) DoneSince() time.Time { return h.j.DoneSince() }

// AwaitStop suspends until the job's current run cycle finishes stopping.
func (h *Handle) AwaitStop(ctx context.Context) (Status, error) { return h.j.AwaitStop(ctx) }

// AwaitDone suspends until the job reaches a terminal state.
func (h *Handle) AwaitDone(ctx context.Context) (Status, error) { return h.j.AwaitDone(ctx) }

// AwaitUnguard suspends until the guard held on the job is released.
func (h *Handle) AwaitUnguard(ctx context.Context) error { return h.j.AwaitUnguard(ctx) }

// VerifyOutputFieldSupport checks the named output field is declared and
// enabled on the job's class.
func (h *Handle) VerifyOutputFieldSupport(name string) error {
	return h.j.VerifyOutputFieldSupport(name)
}

// VerifyOutputQueueSupport checks the named output queue is declared and
// enabled on the job's class.
func (h *Handle) VerifyOutputQueueSupport(name string) error {
	return h.j.VerifyOutputQueueSupport(name)
}

// GetOutputField returns the named output field's value if set.
func (h *Handle) GetOutputField(name string) (any, error) { return h.j.GetOutputField(name) }

// GetOutputFieldOrDefault returns the named output field's value, or def.
func (h *Handle) GetOutputFieldOrDefault(name string, def any) any {
	return h.j.GetOutputFieldOrDefault(name, def)
}

// AwaitOutputField suspends until the named output field is set.
func (h *Handle) AwaitOutputField(ctx context.Context, name string) (any, error) {
	return h.j.AwaitOutputField(ctx, name)
}

// OutputQueueContents returns a copy of the named queue's contents.
func (h *Handle) OutputQueueContents(name string) ([]any, error) {
	return h.j.OutputQueueContents(name)
}

// AwaitOutputQueueAdd suspends until the next push onto the named queue.
func (h *Handle) AwaitOutputQueueAdd(ctx context.Context, name string, cancelIfCleared bool) (any, error) {
	return h.j.AwaitOutputQueueAdd(ctx, name, cancelIfCleared)
}

// NewOutputQueueProxy returns an independent cursor-based reader over the
// job's output queues.
func (h *Handle) NewOutputQueueProxy() (*OutputQueueProxy, error) {
	return h.j.NewOutputQueueProxy()
}

// RunPublicMethod invokes one of the job's class-declared public methods.
func (h *Handle) RunPublicMethod(ctx context.Context, name string, args ...any) (any, error) {
	return h.j.RunPublicMethod(ctx, name, args...)
}
