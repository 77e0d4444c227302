package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/middleware"
)

// loop drives one job's run cycles on its own goroutine: the before-loop
// hook, the iteration body with interval/schedule/count handling and the
// reconnect policy, then the after-loop hook exactly once per cycle.
//
// Lock ordering: the loop mutex is taken while holding the job mutex,
// never the other way around.
type loop struct {
	j *Job

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	iterations int
	next       time.Time
}

func newLoop(j *Job) *loop {
	return &loop{j: j}
}

func (l *loop) isRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *loop) currentLoop() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.iterations
}

func (l *loop) addIteration() {
	l.mu.Lock()
	l.iterations++
	l.mu.Unlock()
}

func (l *loop) nextIteration() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running || l.next.IsZero() {
		return time.Time{}, false
	}
	return l.next, true
}

func (l *loop) setNext(t time.Time) {
	l.mu.Lock()
	l.next = t
	l.mu.Unlock()
}

// start launches a new run cycle. The iteration counter resets per cycle.
func (l *loop) start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return loom.ErrLoopRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.running = true
	l.cancel = cancel
	l.iterations = 0
	l.next = time.Time{}
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	go l.run(ctx, done)
	return nil
}

// waitExit blocks until the current cycle's goroutine has fully exited.
// Must not be called from the loop goroutine itself.
func (l *loop) waitExit() {
	l.mu.Lock()
	running := l.running
	done := l.done
	l.mu.Unlock()
	if running && done != nil {
		<-done
	}
}

// cancelRun interrupts the current cycle's context. The loop goroutine
// still runs its after-loop hook before exiting.
func (l *loop) cancelRun() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (l *loop) run(ctx context.Context, done chan struct{}) {
	j := l.j
	defer close(done)

	restart := false
	defer func() {
		l.mu.Lock()
		l.running = false
		l.cancel = nil
		l.next = time.Time{}
		l.mu.Unlock()
		if restart {
			j.noteRestarted()
			if err := l.start(); err != nil {
				j.logger().Error("job restart failed",
					slog.String("job_id", j.id.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}()

	if err := j.onStartInternal(ctx); err != nil {
		// onStartInternal already performed the stop cleanup; the cycle
		// ends without running OnStop.
		return
	}

	l.iterate(ctx)
	j.onStopInternal()
	restart = j.shouldRestart()
}

func (l *loop) iterate(ctx context.Context) {
	j := l.j
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		j.mu.Lock()
		startupKill := j.flags.hasAny(flagInternalStartupKill | flagExternalStartupKill)
		skip := j.flags.has(flagSkipNextRun)
		if skip {
			j.flags.clear(flagSkipNextRun)
		}
		stopRequested := j.flags.has(flagToldToStop)
		if stopRequested && !startupKill {
			j.flags.set(flagStopping)
		}
		j.mu.Unlock()
		if startupKill || stopRequested {
			return
		}

		if !skip {
			err := j.invokeHook(ctx, middleware.PhaseRun, "", j.runner.OnRun)
			if err != nil {
				if j.cfg.reconnect && allowed(j.cfg.reconnectAllow, err) {
					attempts++
					delay := j.cfg.reconnectDelay.Delay(attempts)
					j.logger().Debug("job reconnecting after allowed run error",
						slog.String("job_id", j.id.String()),
						slog.Int("attempt", attempts),
						slog.Duration("delay", delay),
						slog.String("error", err.Error()),
					)
					if !sleepCtx(ctx, delay) {
						return
					}
					continue
				}
				j.mu.Lock()
				j.runErr = err
				j.flags.set(flagToldToStop | flagStopBySelf | flagStopping)
				j.mu.Unlock()
				j.hookRunError(ctx, err)
				return
			}
			attempts = 0
			l.addIteration()
		}

		j.mu.Lock()
		if j.cfg.count > 0 && l.currentLoop() >= j.cfg.count {
			j.flags.set(flagToldToStop | flagStopBySelf | flagStopping)
			j.mu.Unlock()
			return
		}
		if j.flags.has(flagToldToStop) {
			j.flags.set(flagStopping)
			j.mu.Unlock()
			return
		}

		// Enter the idle state in the same critical section as the stop
		// check above: a concurrent graceful stop either lands before the
		// check or observes flagIdling and interrupts the sleep.
		var idle time.Duration
		idling := false
		switch {
		case j.cfg.schedule != nil:
			next := j.cfg.schedule.Next(j.cfg.now())
			l.setNext(next)
			idle = time.Until(next)
			idling = true
		case j.cfg.interval > 0:
			l.setNext(j.cfg.now().Add(j.cfg.interval))
			idle = j.cfg.interval
			idling = true
		case j.cfg.count > 0:
			// back-to-back iterations until the count limit trips
		default:
			// run once
			j.flags.set(flagToldToStop | flagStopBySelf | flagStopping)
			j.mu.Unlock()
			return
		}
		if idling {
			j.flags.set(flagIdling)
			j.idlingSince = j.cfg.now()
		}
		j.mu.Unlock()

		if idling {
			ok := sleepCtx(ctx, idle)
			j.clearIdling()
			if !ok {
				return
			}
		}
	}
}

func (j *Job) clearIdling() {
	j.mu.Lock()
	j.flags.clear(flagIdling)
	j.idlingSince = time.Time{}
	j.mu.Unlock()
}

func allowed(allow []func(error) bool, err error) bool {
	for _, fn := range allow {
		if fn(err) {
			return true
		}
	}
	return false
}

// sleepCtx sleeps for d; it reports false when the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
