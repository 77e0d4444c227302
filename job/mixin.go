package job

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/middleware"
)

// Mixin is a capability descriptor a job class composes: an independent
// concurrent routine that runs alongside the job's main loop, individually
// startable, awaitable and cancelable. Requires lists the mixins this one
// builds on; no two mixins composed into the same class may share a common
// ancestor through their Requires chains.
type Mixin struct {
	Name     string
	Requires []*Mixin
	Routine  func(ctx context.Context, j *Job) error
}

// lineage returns the mixin itself plus every ancestor reachable through
// Requires chains.
func (m *Mixin) lineage() []*Mixin {
	seen := map[*Mixin]bool{}
	var walk func(*Mixin)
	var out []*Mixin
	walk = func(x *Mixin) {
		if x == nil || seen[x] {
			return
		}
		seen[x] = true
		out = append(out, x)
		for _, r := range x.Requires {
			walk(r)
		}
	}
	walk(m)
	return out
}

// validateMixins rejects compositions in which two mixins share a common
// ancestor, which would make the same capability reachable twice.
func validateMixins(mixins []*Mixin) error {
	owner := map[*Mixin]*Mixin{}
	for _, m := range mixins {
		if m.Routine == nil {
			return fmt.Errorf("loom: mixin %q has no routine", m.Name)
		}
		for _, a := range m.lineage() {
			if prev, ok := owner[a]; ok {
				return fmt.Errorf("%w: %q and %q both reach %q",
					loom.ErrMixinConflict, prev.Name, m.Name, a.Name)
			}
			owner[a] = m
		}
	}
	return nil
}

// mixinTask is one in-flight mixin routine.
type mixinTask struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func (t *mixinTask) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *mixinTask) result() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// HandleMixinRoutines schedules each named mixin's routine as an
// independent concurrent task. It fails if the job is done or its loop is
// not running, if a mixin is not composed into the job's class, or if a
// named mixin already has an unfinished task in flight.
func (j *Job) HandleMixinRoutines(mixins ...*Mixin) error {
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		j.mu.Unlock()
		return loom.ErrJobDone
	}
	if !j.loop.isRunning() {
		j.mu.Unlock()
		return loom.ErrJobNotRunning
	}
	for _, m := range mixins {
		if !j.supportsMixin(m) {
			j.mu.Unlock()
			return fmt.Errorf("%w: %q", loom.ErrMixinUnsupported, m.Name)
		}
		if t, ok := j.mixins[m]; ok && !t.finished() {
			j.mu.Unlock()
			return fmt.Errorf("%w: %q", loom.ErrMixinBusy, m.Name)
		}
	}
	for _, m := range mixins {
		ctx, cancel := context.WithCancel(context.Background())
		task := &mixinTask{cancel: cancel, done: make(chan struct{})}
		j.mixins[m] = task
		go j.runMixin(ctx, m, task)
	}
	j.mu.Unlock()
	return nil
}

func (j *Job) runMixin(ctx context.Context, m *Mixin, task *mixinTask) {
	defer close(task.done)
	err := j.invokeHook(ctx, middleware.PhaseMixin, m.Name, func(ctx context.Context) error {
		return m.Routine(ctx, j)
	})
	if err != nil {
		j.hookMixinError(m, err)
		task.mu.Lock()
		task.err = err
		task.mu.Unlock()
	}
}

// WaitForMixinRoutines suspends until the named mixins' in-flight tasks
// finish, returning each mixin's routine error (nil on success). With
// skipNotRunning set, mixins without an in-flight task are left out of the
// result; otherwise waiting on one is an error.
func (j *Job) WaitForMixinRoutines(ctx context.Context, skipNotRunning bool, mixins ...*Mixin) (map[*Mixin]error, error) {
	j.mu.Lock()
	tasks := make(map[*Mixin]*mixinTask, len(mixins))
	for _, m := range mixins {
		if !j.supportsMixin(m) {
			j.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", loom.ErrMixinUnsupported, m.Name)
		}
		t, ok := j.mixins[m]
		if !ok {
			if skipNotRunning {
				continue
			}
			j.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", loom.ErrMixinNotRunning, m.Name)
		}
		tasks[m] = t
	}
	j.mu.Unlock()

	results := make(map[*Mixin]error, len(tasks))
	var resMu sync.Mutex

	g, waitCtx := errgroup.WithContext(ctx)
	for m, t := range tasks {
		g.Go(func() error {
			select {
			case <-t.done:
			case <-waitCtx.Done():
				return waitCtx.Err()
			}
			resMu.Lock()
			results[m] = t.result()
			resMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CancelMixinRoutines cancels the named mixins' in-flight tasks. Mixins
// without a running task are skipped silently.
func (j *Job) CancelMixinRoutines(mixins ...*Mixin) error {
	j.mu.Lock()
	var cancels []context.CancelFunc
	for _, m := range mixins {
		if !j.supportsMixin(m) {
			j.mu.Unlock()
			return fmt.Errorf("%w: %q", loom.ErrMixinUnsupported, m.Name)
		}
		if t, ok := j.mixins[m]; ok && !t.finished() {
			cancels = append(cancels, t.cancel)
		}
	}
	j.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	return nil
}

// CancelAllMixinRoutines cancels every in-flight mixin task.
func (j *Job) CancelAllMixinRoutines() {
	j.mu.Lock()
	var cancels []context.CancelFunc
	for _, t := range j.mixins {
		if !t.finished() {
			cancels = append(cancels, t.cancel)
		}
	}
	j.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (j *Job) supportsMixin(m *Mixin) bool {
	for _, c := range j.class.Mixins {
		if c == m {
			return true
		}
	}
	return false
}
