package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/event"
	"github.com/loomworks/loom/id"
	"github.com/loomworks/loom/middleware"
)

// Binding is the manager-side surface a bound job calls back into: the
// logger and middleware chain to run hooks through, the default stop
// timeout for externally requested stops, and the terminal-state ejection
// callback.
type Binding interface {
	Eject(j *Job)
	StopTimeout() time.Duration
	Logger() *slog.Logger
	Middleware() middleware.Middleware
}

// ManagerLink is the job-facing manager proxy. Runner code reaches its
// manager exclusively through this interface, keeping the manager's full
// surface and other jobs' internals out of reach. Every operation is
// permission-checked against the calling job.
type ManagerLink interface {
	CreateJob(class *Class, opts ...Option) (*Handle, error)
	InitializeJob(ctx context.Context, h *Handle) error
	RegisterJob(ctx context.Context, h *Handle, level loom.Permission, start bool) error
	CreateAndRegisterJob(ctx context.Context, class *Class, opts ...Option) (*Handle, error)

	StartJob(h *Handle) error
	StopJob(h *Handle, force bool) error
	StopJobWithTimeout(h *Handle, force bool, timeout time.Duration) error
	RestartJob(h *Handle) error
	KillJob(h *Handle, awaken bool) error

	GuardJob(h *Handle) error
	UnguardJob(h *Handle) error
	GuardDuring(ctx context.Context, h *Handle, fn func(ctx context.Context) error) error

	DispatchEvent(ctx context.Context, ev event.Event) error
	WaitForEvent(ctx context.Context, check event.Check, kinds ...event.Kind) (event.Event, error)

	FindJobs(f Filter) []*Handle
}

// Filter selects jobs in FindJobs queries. Nil / zero fields match
// everything.
type Filter struct {
	Class    *Class
	Alive    *bool
	Statuses []Status
}

// Matches reports whether the job satisfies the filter.
func (f Filter) Matches(j *Job) bool {
	if f.Class != nil && j.class != f.Class {
		return false
	}
	if f.Alive != nil && j.Alive() != *f.Alive {
		return false
	}
	if len(f.Statuses) > 0 {
		s := j.Status()
		ok := false
		for _, want := range f.Statuses {
			if s == want {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Bind attaches a job to its manager exactly once, returning the Control
// through which the manager drives the job's lifecycle externally.
func Bind(j *Job, b Binding, link ManagerLink) (*Control, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.binding != nil {
		return nil, loom.ErrAlreadyRegistered
	}
	j.binding = b
	j.link = link
	return &Control{j: j}, nil
}

// Control is the manager-only lifecycle surface of one job. Operations
// invoked here count as external: stop reasons attribute to the outside
// world, and externally requested stops are subject to the stop timeout.
type Control struct {
	j *Job
}

// Job returns the controlled job.
func (c *Control) Job() *Job { return c.j }

// Initialize runs the job's OnInit hook. A job initializes at most once;
// terminal jobs can never be initialized again. Hook failures are wrapped
// in a loom.InitError and leave the job uninitialized.
func (c *Control) Initialize(ctx context.Context) error {
	j := c.j
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		j.mu.Unlock()
		return loom.ErrJobDone
	}
	if j.flags.has(flagInitialized) {
		j.mu.Unlock()
		return loom.ErrAlreadyInitialized
	}
	if j.flags.has(flagInitializing) {
		j.mu.Unlock()
		return loom.ErrAlreadyInitialized
	}
	j.flags.set(flagInitializing)
	j.mu.Unlock()

	err := j.invokeHook(ctx, middleware.PhaseInit, "", j.runner.OnInit)

	j.mu.Lock()
	j.flags.clear(flagInitializing)
	if err != nil {
		j.mu.Unlock()
		return &loom.InitError{Job: j.id.String(), Err: err}
	}
	now := j.cfg.now()
	j.flags.set(flagInitialized)
	j.initializedSince = now
	j.aliveSince = now
	j.mu.Unlock()
	return nil
}

// Start launches the job's execution loop.
func (c *Control) Start() error {
	j := c.j
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		j.mu.Unlock()
		return loom.ErrJobDone
	}
	if !j.flags.has(flagInitialized) {
		j.mu.Unlock()
		return loom.ErrNotInitialized
	}
	j.mu.Unlock()
	return j.loop.start()
}

// Stop requests an external stop of the job.
func (c *Control) Stop(force bool) error {
	return c.j.stop(force, true)
}

// StopWithTimeout requests an external stop with a call-scoped OnStop
// deadline overriding the manager default.
func (c *Control) StopWithTimeout(force bool, timeout time.Duration) error {
	j := c.j
	j.mu.Lock()
	j.stopTimeoutOverride = timeout
	j.mu.Unlock()
	return j.stop(force, true)
}

// Restart requests an external restart.
func (c *Control) Restart() error {
	return c.j.restart(true)
}

// Kill requests an external kill. With awaken set, a job whose loop is not
// running is started solely so it can pass through its stop cleanup and
// reach the KILLED state.
func (c *Control) Kill(awaken bool) error {
	return c.j.kill(true, awaken)
}

// AddEvent delivers an event into the job's bounded event queue.
func (c *Control) AddEvent(ev event.Event) error {
	return c.j.addEvent(ev)
}

// SetGuardian records the guard held on this job by the given guardian.
// A second guard on an already-guarded job always fails.
func (c *Control) SetGuardian(guardian *Job) error {
	j := c.j
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		j.mu.Unlock()
		return loom.ErrJobDone
	}
	if j.guardian != nil {
		j.mu.Unlock()
		return loom.ErrAlreadyGuarded
	}
	j.guardian = guardian
	j.mu.Unlock()

	guardian.mu.Lock()
	guardian.guarded[j.id] = j
	guardian.mu.Unlock()
	return nil
}

// Guardian returns the runtime id of the job currently guarding this one.
// The second return is false when the job is unguarded.
func (c *Control) Guardian() (id.JobID, bool) {
	j := c.j
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.guardian == nil {
		return id.JobID{}, false
	}
	return j.guardian.id, true
}

// ClearGuardian releases the guard on this job, waking every pending
// unguard waiter exactly once.
func (c *Control) ClearGuardian() error {
	j := c.j
	j.mu.Lock()
	guardian := j.guardian
	if guardian == nil {
		j.mu.Unlock()
		return loom.ErrNotGuarded
	}
	j.guardian = nil
	j.mu.Unlock()

	guardian.dropGuarded(j)
	j.unguardWaiters.ResolveAll(struct{}{})
	return nil
}
