package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/event"
	"github.com/loomworks/loom/id"
	"github.com/loomworks/loom/middleware"
	"github.com/loomworks/loom/signal"
)

// Job is one instance of a job class: the flag bitset tracking its
// lifecycle, the execution loop driving its hooks, its output store, mixin
// tasks and event queue. All flag and timestamp mutations happen under the
// job's mutex and complete without blocking; hooks always run outside it.
//
// The methods on Job form the self-operation surface used by the job's own
// runner. External management goes through the Control handle held by the
// manager, and other jobs only ever see a *Handle.
type Job struct {
	mu sync.Mutex

	class  *Class
	runner Runner
	id     id.JobID
	cfg    config

	flags flagSet

	createdAt        time.Time
	initializedSince time.Time
	runningSince     time.Time
	idlingSince      time.Time
	stoppedSince     time.Time
	aliveSince       time.Time
	doneSince        time.Time

	startErr error
	runErr   error
	stopErr  error

	lastStopReason StopReason
	wasRestarted   bool

	stopTimeoutOverride time.Duration

	binding Binding
	link    ManagerLink

	guardian *Job
	guarded  map[id.JobID]*Job

	loop    *loop
	outputs *outputStore
	events  *eventQueue
	mixins  map[*Mixin]*mixinTask

	stopWaiters    signal.List[Status]
	doneWaiters    signal.List[Status]
	unguardWaiters signal.List[struct{}]
}

// New creates an instance of a registered class. The class's runner
// constructor is invoked and bound; the job is not yet attached to any
// manager.
func New(class *Class, opts ...Option) (*Job, error) {
	if class == nil {
		return nil, fmt.Errorf("loom: nil job class")
	}
	if !class.Registered() {
		return nil, fmt.Errorf("%w: class %q is not registered", loom.ErrUnknownClass, class.Name)
	}

	cfg := defaultJobConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	set := 0
	if cfg.interval > 0 {
		set++
	}
	if len(cfg.runTimes) > 0 {
		set++
	}
	if cfg.scheduleExpr != "" {
		set++
	}
	if set > 1 {
		return nil, fmt.Errorf("loom: interval, run times and schedule are mutually exclusive")
	}
	if cfg.scheduleExpr != "" {
		sched, err := scheduleParser.Parse(cfg.scheduleExpr)
		if err != nil {
			return nil, fmt.Errorf("loom: invalid schedule %q: %v", cfg.scheduleExpr, err)
		}
		cfg.schedule = sched
	}
	if len(cfg.runTimes) > 0 {
		cfg.schedule = clockTimes(cfg.runTimes)
	}

	runner := class.New()
	if runner == nil {
		return nil, fmt.Errorf("loom: class %q constructor returned nil", class.Name)
	}

	j := &Job{
		class:     class,
		runner:    runner,
		cfg:       cfg,
		createdAt: cfg.now(),
		guarded:   map[id.JobID]*Job{},
		mixins:    map[*Mixin]*mixinTask{},
	}
	j.id = id.NewJobID(class.runtimeID, j.createdAt)
	j.loop = newLoop(j)
	j.outputs = newOutputStore(class)
	j.events = newEventQueue(cfg.maxEventQueue)

	b, ok := runner.(binder)
	if !ok {
		return nil, fmt.Errorf("loom: class %q runner does not embed job.Base", class.Name)
	}
	b.bindJob(j)
	return j, nil
}

// RuntimeID returns the job's process-unique identifier.
func (j *Job) RuntimeID() id.JobID { return j.id }

// Class returns the job's class.
func (j *Job) Class() *Class { return j.class }

// Status derives the job's current lifecycle status from its flags.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.statusLocked()
}

func (j *Job) statusLocked() Status {
	f := j.flags
	switch {
	case f.has(flagKilled):
		return StatusKilled
	case f.has(flagCompleted):
		return StatusCompleted
	case f.has(flagInitializing):
		return StatusInitializing
	case f.has(flagStarting):
		return StatusStarting
	case f.has(flagStopping):
		switch {
		case f.has(flagToldToRestart):
			return StatusRestarting
		case f.has(flagToldToComplete):
			return StatusCompleting
		case f.has(flagToldToBeKilled):
			return StatusDying
		}
		return StatusStopping
	case f.has(flagRunning):
		if f.has(flagIdling) {
			return StatusIdling
		}
		return StatusRunning
	case f.has(flagStopped):
		return StatusStopped
	case f.has(flagInitialized):
		return StatusInitialized
	}
	return StatusFresh
}

// Initialized reports whether OnInit completed successfully and the job
// has not reached a terminal state since.
func (j *Job) Initialized() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flags.has(flagInitialized)
}

// Alive reports whether the job is bound to a manager, initialized and
// not yet done.
func (j *Job) Alive() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.binding != nil && j.flags.has(flagInitialized) &&
		!j.flags.hasAny(flagCompleted|flagKilled)
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flags.hasAny(flagCompleted | flagKilled)
}

// Running reports whether the job's loop is between a successful OnStart
// and the beginning of its stop sequence.
func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flags.has(flagRunning)
}

// Idling reports whether the loop is sleeping between iterations.
func (j *Job) Idling() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flags.has(flagIdling)
}

// WasRestarted reports whether the job has gone through at least one
// restart cycle.
func (j *Job) WasRestarted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.wasRestarted
}

// Guarded reports whether another job currently holds a guard on this one.
func (j *Job) Guarded() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.guardian != nil
}

// AllowsDoubleDispatch reports whether the job opted into receiving an
// event through its static subscription even when one of its waiters
// already received a copy of the same dispatch.
func (j *Job) AllowsDoubleDispatch() bool { return j.cfg.doubleDispatch }

// CheckEvent applies the runner's EventCheck predicate, accepting every
// event when the runner does not implement one.
func (j *Job) CheckEvent(ev event.Event) bool {
	if c, ok := j.runner.(EventChecker); ok {
		return c.EventCheck(ev)
	}
	return true
}

// CreatedAt returns the instance creation time.
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// InitializedSince returns when the job was initialized, or the zero time.
func (j *Job) InitializedSince() time.Time { return j.stamp(&j.initializedSince) }

// RunningSince returns when the current run cycle started, or the zero time.
func (j *Job) RunningSince() time.Time { return j.stamp(&j.runningSince) }

// IdlingSince returns when the loop last began idling, or the zero time.
func (j *Job) IdlingSince() time.Time { return j.stamp(&j.idlingSince) }

// StoppedSince returns when the job last stopped, or the zero time.
func (j *Job) StoppedSince() time.Time { return j.stamp(&j.stoppedSince) }

// AliveSince returns when the job became alive, or the zero time.
func (j *Job) AliveSince() time.Time { return j.stamp(&j.aliveSince) }

// DoneSince returns when the job reached a terminal state, or the zero time.
func (j *Job) DoneSince() time.Time { return j.stamp(&j.doneSince) }

func (j *Job) stamp(t *time.Time) time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return *t
}

// LastStopReason returns the reason recorded by the most recent stop
// cleanup, or ReasonNone before the first one.
func (j *Job) LastStopReason() StopReason {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastStopReason
}

// StoppingReason resolves why the job is currently stopping. It is
// recomputed fresh on every call because the flags may change between the
// stop beginning and cleanup running; it returns ReasonNone when the job
// is not stopping.
func (j *Job) StoppingReason() StopReason {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.flags.hasAny(flagStopping | flagToldToStop) {
		return ReasonNone
	}
	return j.stoppingReasonLocked()
}

func (j *Job) stoppingReasonLocked() StopReason {
	if j.startErr != nil || j.runErr != nil || j.stopErr != nil {
		return ReasonInternalError
	}
	if j.cfg.count > 0 && j.loop.currentLoop() >= j.cfg.count {
		return ReasonInternalCountLimit
	}
	if j.flags.has(flagStopBySelf) {
		switch {
		case j.flags.has(flagToldToRestart):
			return ReasonInternalRestart
		case j.flags.has(flagToldToComplete):
			return ReasonInternalCompletion
		case j.flags.has(flagToldToBeKilled):
			return ReasonInternalKilling
		}
		return ReasonInternalUnspecific
	}
	switch {
	case j.flags.has(flagToldToRestart):
		return ReasonExternalRestart
	case j.flags.has(flagToldToBeKilled):
		return ReasonExternalKilling
	}
	return ReasonExternalUnknown
}

// StartError returns the error captured from the last OnStart failure.
func (j *Job) StartError() error { return j.phaseErr(&j.startErr) }

// RunError returns the error captured from the last fatal OnRun failure.
func (j *Job) RunError() error { return j.phaseErr(&j.runErr) }

// StopError returns the error captured from the last OnStop failure.
func (j *Job) StopError() error { return j.phaseErr(&j.stopErr) }

func (j *Job) phaseErr(e *error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return *e
}

// CurrentLoop returns the number of completed loop iterations in the
// current run cycle.
func (j *Job) CurrentLoop() int { return j.loop.currentLoop() }

// NextIteration returns the scheduled time of the next iteration. The
// second return is false when none is scheduled.
func (j *Job) NextIteration() (time.Time, bool) { return j.loop.nextIteration() }

// ChangeInterval updates the loop interval; the change takes effect at the
// next tick.
func (j *Job) ChangeInterval(d time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cfg.interval = d
}

// Stop requests the job's own stop. A graceful stop takes effect at the
// next iteration boundary; with force set, or while the loop is idling,
// the loop context is cancelled outright. It is a no-op while a stop is
// already underway.
func (j *Job) Stop(force bool) error { return j.stop(force, false) }

// Restart stops the job (forcefully) and starts it again once the stop
// cycle finishes. It is a no-op when a restart, completion or kill is
// already underway.
func (j *Job) Restart() error { return j.restart(false) }

// Complete stops the job and marks it COMPLETED: a terminal state that
// ejects it from its manager and can never be left. Completing a job
// whose loop is not running awakens the loop just for the terminal
// cleanup.
func (j *Job) Complete() error {
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		j.mu.Unlock()
		return loom.ErrJobDone
	}
	if j.flags.hasAny(flagToldToComplete | flagToldToBeKilled) {
		j.mu.Unlock()
		return nil
	}
	j.flags.set(flagToldToComplete)
	if j.flags.has(flagStopping) {
		j.mu.Unlock()
		return nil
	}
	if j.loop.isRunning() && !j.flags.has(flagStopped) {
		j.mu.Unlock()
		return j.stop(true, false)
	}
	// Loop idle, or winding down after a plain stop already ran its
	// cleanup: wake it solely to run the completion cleanup, the same way
	// an awakening kill does.
	j.flags.set(flagExternalStartupKill | flagToldToStop | flagStopBySelf)
	j.mu.Unlock()
	j.loop.waitExit()
	if err := j.loop.start(); err != nil && !errors.Is(err, loom.ErrLoopRunning) {
		return err
	}
	return nil
}

// Kill stops the job and marks it KILLED. If the job is currently inside
// OnStart, a startup-kill flag is set instead so the loop diverts straight
// to cleanup without running OnRun.
func (j *Job) Kill() error { return j.kill(false, false) }

func (j *Job) stop(force, external bool) error {
	j.mu.Lock()
	if j.flags.hasAny(flagToldToStop | flagStopping | flagStopped) {
		j.mu.Unlock()
		return nil
	}
	if !j.loop.isRunning() {
		j.mu.Unlock()
		return loom.ErrJobNotRunning
	}
	j.flags.set(flagToldToStop)
	if !external {
		j.flags.set(flagStopBySelf)
	}
	if force || j.flags.has(flagIdling) {
		j.flags.set(flagStopByForce | flagStopping)
		j.mu.Unlock()
		j.loop.cancelRun()
		return nil
	}
	if j.flags.has(flagStarting) {
		j.flags.set(flagSkipNextRun)
	}
	j.mu.Unlock()
	return nil
}

func (j *Job) restart(external bool) error {
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		j.mu.Unlock()
		return loom.ErrJobDone
	}
	if j.flags.hasAny(flagToldToRestart|flagToldToComplete|flagToldToBeKilled) ||
		j.flags.has(flagStopByForce) {
		j.mu.Unlock()
		return nil
	}
	if !j.loop.isRunning() {
		j.mu.Unlock()
		return loom.ErrJobNotRunning
	}
	j.flags.set(flagToldToRestart)
	stopping := j.flags.has(flagStopping)
	j.mu.Unlock()
	if stopping {
		return nil
	}
	return j.stop(true, external)
}

func (j *Job) kill(external, awaken bool) error {
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		j.mu.Unlock()
		return loom.ErrJobDone
	}
	if j.flags.hasAny(flagToldToBeKilled | flagToldToComplete) {
		j.mu.Unlock()
		return nil
	}
	if j.flags.has(flagStarting) {
		j.flags.set(flagToldToBeKilled | flagInternalStartupKill | flagToldToStop)
		if !external {
			j.flags.set(flagStopBySelf)
		}
		j.mu.Unlock()
		return nil
	}
	// A stopped job may still have its loop goroutine winding down; the
	// cleanup that set flagStopped has already run, so a stop request
	// would be lost. Treat it like the loop-idle case.
	if j.loop.isRunning() && !j.flags.has(flagStopped) {
		j.flags.set(flagToldToBeKilled)
		j.mu.Unlock()
		return j.stop(true, external)
	}
	if external && awaken {
		j.flags.set(flagToldToBeKilled | flagExternalStartupKill | flagToldToStop)
		j.mu.Unlock()
		j.loop.waitExit()
		if err := j.loop.start(); err != nil && !errors.Is(err, loom.ErrLoopRunning) {
			return err
		}
		return nil
	}
	j.mu.Unlock()
	return nil
}

// AwaitStop suspends until the current run cycle's stop cleanup resolves
// the wait with the job's status at that point.
func (j *Job) AwaitStop(ctx context.Context) (Status, error) {
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		s := j.statusLocked()
		j.mu.Unlock()
		return s, loom.ErrJobDone
	}
	// The stop cleanup resolves its waiters before the loop goroutine
	// fully exits; once flagStopped is up, a new waiter would never be
	// resolved for this cycle.
	if j.flags.has(flagStopped) {
		s := j.statusLocked()
		j.mu.Unlock()
		return s, loom.ErrJobNotRunning
	}
	if !j.loop.isRunning() && !j.flags.has(flagStopping) {
		j.mu.Unlock()
		return StatusFresh, loom.ErrJobNotRunning
	}
	fut := signal.NewFuture[Status]()
	j.stopWaiters.Add(fut)
	j.mu.Unlock()
	return fut.Await(ctx)
}

// AwaitDone suspends until the job reaches a terminal state, resolving
// with that terminal status. It returns immediately for a job that is
// already done.
func (j *Job) AwaitDone(ctx context.Context) (Status, error) {
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		s := j.statusLocked()
		j.mu.Unlock()
		return s, nil
	}
	fut := signal.NewFuture[Status]()
	j.doneWaiters.Add(fut)
	j.mu.Unlock()
	return fut.Await(ctx)
}

// AwaitUnguard suspends until the guard currently held on this job is
// released.
func (j *Job) AwaitUnguard(ctx context.Context) error {
	j.mu.Lock()
	if j.guardian == nil {
		j.mu.Unlock()
		return loom.ErrNotGuarded
	}
	fut := signal.NewFuture[struct{}]()
	j.unguardWaiters.Add(fut)
	j.mu.Unlock()
	_, err := fut.Await(ctx)
	return err
}

// onStartInternal is the loop's before-loop hook. On OnStart failure it
// routes the error hook, performs the stop cleanup itself and reports the
// failure, in which case the loop exits without running OnStop.
func (j *Job) onStartInternal(ctx context.Context) error {
	j.mu.Lock()
	j.flags.set(flagStarting)
	j.flags.clear(flagStopped | flagIdling)
	j.startErr, j.runErr, j.stopErr = nil, nil, nil
	skipHook := j.flags.has(flagExternalStartupKill)
	j.mu.Unlock()

	var err error
	if !skipHook {
		err = j.invokeHook(ctx, middleware.PhaseStart, "", j.runner.OnStart)
	}
	if err != nil {
		j.mu.Lock()
		j.startErr = err
		j.flags.set(flagToldToStop | flagStopBySelf | flagStopping)
		j.flags.clear(flagStarting)
		j.mu.Unlock()
		j.hookStartError(ctx, err)
		j.stopCleanup()
		return err
	}

	j.mu.Lock()
	j.flags.clear(flagStarting)
	j.flags.set(flagRunning)
	j.runningSince = j.cfg.now()
	j.stoppedSince = time.Time{}
	j.mu.Unlock()
	return nil
}

// onStopInternal is the loop's after-loop hook: it cancels outstanding
// mixin tasks, runs the user OnStop (unless a startup kill skipped the
// whole cycle) and always finishes with the stop cleanup.
func (j *Job) onStopInternal() {
	j.CancelAllMixinRoutines()

	j.mu.Lock()
	j.flags.set(flagStopping)
	j.flags.clear(flagRunning | flagIdling)
	skipHook := j.flags.hasAny(flagInternalStartupKill | flagExternalStartupKill)
	external := j.flags.has(flagToldToStop) && !j.flags.has(flagStopBySelf)
	timeout := j.stopTimeoutOverride
	j.stopTimeoutOverride = 0
	j.mu.Unlock()

	if timeout == 0 && external && j.binding != nil {
		timeout = j.binding.StopTimeout()
	}

	if !skipHook {
		ctx := context.Background()
		var cancel context.CancelFunc
		if external && timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
		}
		err := j.invokeHook(ctx, middleware.PhaseStop, "", j.runner.OnStop)
		timedOut := external && ctx.Err() != nil
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if timedOut {
				j.logger().Error("job on-stop hook exceeded stop timeout",
					slog.String("job_id", j.id.String()),
					slog.Duration("timeout", timeout),
				)
			} else {
				j.mu.Lock()
				j.stopErr = err
				j.mu.Unlock()
				j.hookStopError(context.Background(), err)
			}
		}
	}

	j.stopCleanup()
}

// stopCleanup finishes a stop cycle: it records the stopping reason,
// resets every transient flag, and either marks the job STOPPED or, when a
// completion or kill was requested, transitions it to its terminal state,
// releases all guard relationships, resolves every pending waiter with the
// terminal status and ejects the job from its manager. It runs exactly
// once per start-to-finish cycle.
func (j *Job) stopCleanup() {
	j.mu.Lock()
	reason := j.stoppingReasonLocked()
	j.lastStopReason = reason
	terminal := j.flags.hasAny(flagToldToComplete | flagToldToBeKilled)
	completed := j.flags.has(flagToldToComplete)

	j.flags.clear(flagStarting | flagRunning | flagIdling | flagStopping |
		flagToldToStop | flagStopBySelf | flagStopByForce | flagToldToRestart |
		flagSkipNextRun | flagInternalStartupKill | flagExternalStartupKill)

	now := j.cfg.now()
	var guardian *Job
	var guarded []*Job
	if terminal {
		j.flags.clear(flagInitialized | flagStopped | flagToldToComplete | flagToldToBeKilled)
		if completed {
			j.flags.set(flagCompleted)
		} else {
			j.flags.set(flagKilled)
		}
		j.doneSince = now
		j.runningSince = time.Time{}
		j.idlingSince = time.Time{}
		j.aliveSince = time.Time{}
		guardian = j.guardian
		j.guardian = nil
		for _, g := range j.guarded {
			guarded = append(guarded, g)
		}
		j.guarded = map[id.JobID]*Job{}
	} else {
		j.flags.set(flagStopped)
		j.stoppedSince = now
		j.runningSince = time.Time{}
		j.idlingSince = time.Time{}
	}
	status := j.statusLocked()
	binding := j.binding
	j.mu.Unlock()

	if terminal {
		if guardian != nil {
			guardian.dropGuarded(j)
			j.unguardWaiters.ResolveAll(struct{}{})
		}
		for _, g := range guarded {
			g.releaseGuardianHeldBy(j)
		}
		j.outputs.terminate(status)
		j.stopWaiters.ResolveAll(status)
		j.doneWaiters.ResolveAll(status)
		if binding != nil {
			binding.Eject(j)
		}
		j.logger().Info("job reached terminal state",
			slog.String("job_id", j.id.String()),
			slog.String("status", status.String()),
			slog.String("reason", reason.String()),
		)
	} else {
		j.stopWaiters.ResolveAll(status)
		j.logger().Debug("job stopped",
			slog.String("job_id", j.id.String()),
			slog.String("reason", reason.String()),
		)
	}
}

// shouldRestart is consulted by the loop goroutine right after a cycle
// ends to decide whether to start the next one.
func (j *Job) shouldRestart() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.flags.hasAny(flagCompleted|flagKilled) || !j.flags.has(flagInitialized) {
		return false
	}
	return j.lastStopReason == ReasonInternalRestart ||
		j.lastStopReason == ReasonExternalRestart
}

func (j *Job) noteRestarted() {
	j.mu.Lock()
	j.wasRestarted = true
	j.mu.Unlock()
}

// dropGuarded removes g from the set of jobs this one guards.
func (j *Job) dropGuarded(g *Job) {
	j.mu.Lock()
	delete(j.guarded, g.id)
	j.mu.Unlock()
}

// releaseGuardianHeldBy clears the guard held by the given job, if it
// still holds one, and wakes every pending unguard waiter.
func (j *Job) releaseGuardianHeldBy(holder *Job) {
	j.mu.Lock()
	if j.guardian != holder {
		j.mu.Unlock()
		return
	}
	j.guardian = nil
	j.mu.Unlock()
	j.unguardWaiters.ResolveAll(struct{}{})
}

func (j *Job) invokeHook(ctx context.Context, phase middleware.Phase, mixin string, fn middleware.Handler) error {
	inv := middleware.Invocation{
		JobID:     j.id.String(),
		JobClass:  j.class.Name,
		Phase:     phase,
		Iteration: j.loop.currentLoop(),
		Mixin:     mixin,
	}
	mw := middleware.Nop()
	if j.binding != nil {
		if m := j.binding.Middleware(); m != nil {
			mw = m
		}
	}
	return mw(ctx, inv, fn)
}

func (j *Job) logger() *slog.Logger {
	if j.binding != nil {
		if l := j.binding.Logger(); l != nil {
			return l
		}
	}
	return slog.Default()
}

func (j *Job) hookStartError(ctx context.Context, err error) {
	if h, ok := j.runner.(StartErrorHook); ok {
		h.OnStartError(ctx, err)
		return
	}
	j.logger().Error("job on-start hook failed",
		slog.String("job_id", j.id.String()),
		slog.String("error", err.Error()),
	)
}

func (j *Job) hookRunError(ctx context.Context, err error) {
	if h, ok := j.runner.(RunErrorHook); ok {
		h.OnRunError(ctx, err)
		return
	}
	j.logger().Error("job on-run hook failed",
		slog.String("job_id", j.id.String()),
		slog.String("error", err.Error()),
	)
}

func (j *Job) hookStopError(ctx context.Context, err error) {
	if h, ok := j.runner.(StopErrorHook); ok {
		h.OnStopError(ctx, err)
		return
	}
	j.logger().Error("job on-stop hook failed",
		slog.String("job_id", j.id.String()),
		slog.String("error", err.Error()),
	)
}

func (j *Job) hookMixinError(m *Mixin, err error) {
	if h, ok := j.runner.(MixinErrorHook); ok {
		h.OnMixinError(context.Background(), m, err)
		return
	}
	j.logger().Error("job mixin routine failed",
		slog.String("job_id", j.id.String()),
		slog.String("mixin", m.Name),
		slog.String("error", err.Error()),
	)
}
