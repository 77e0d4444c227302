package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loomworks/loom"
)

func blockingMixin(name string) (*Mixin, chan struct{}) {
	release := make(chan struct{})
	m := &Mixin{
		Name: name,
		Routine: func(ctx context.Context, j *Job) error {
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	return m, release
}

func TestMixinCompositionRejectsSharedAncestor(t *testing.T) {
	base := &Mixin{Name: "conn", Routine: func(ctx context.Context, j *Job) error { return nil }}
	reader := &Mixin{Name: "reader", Requires: []*Mixin{base}, Routine: base.Routine}
	writer := &Mixin{Name: "writer", Requires: []*Mixin{base}, Routine: base.Routine}

	reg := NewRegistry()
	err := reg.Register(&Class{
		Name:   "diamond",
		New:    func() Runner { return &counterRunner{} },
		Mixins: []*Mixin{reader, writer},
	})
	if !errors.Is(err, loom.ErrMixinConflict) {
		t.Fatalf("Register = %v, want ErrMixinConflict", err)
	}

	// A single mixin with a deep Requires chain is fine.
	if err := reg.Register(&Class{
		Name:   "linear",
		New:    func() Runner { return &counterRunner{} },
		Mixins: []*Mixin{reader},
	}); err != nil {
		t.Fatalf("Register linear composition: %v", err)
	}
}

func TestHandleMixinRoutines(t *testing.T) {
	m, release := blockingMixin("pump")
	other := &Mixin{Name: "other", Routine: func(ctx context.Context, j *Job) error { return nil }}
	class := registerClass(t, &Class{
		Name:   "mixin-run",
		New:    func() Runner { return &counterRunner{} },
		Mixins: []*Mixin{m},
	})
	j, ctl, _ := newTestJob(t, class, WithInterval(time.Hour))

	// The loop must be running before mixin tasks can be scheduled.
	if err := j.HandleMixinRoutines(m); !errors.Is(err, loom.ErrJobNotRunning) {
		t.Fatalf("HandleMixinRoutines before start = %v, want ErrJobNotRunning", err)
	}
	if err := ctl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "job to idle", func() bool { return j.Idling() })

	if err := j.HandleMixinRoutines(other); !errors.Is(err, loom.ErrMixinUnsupported) {
		t.Errorf("uncomposed mixin = %v, want ErrMixinUnsupported", err)
	}
	if err := j.HandleMixinRoutines(m); err != nil {
		t.Fatalf("HandleMixinRoutines: %v", err)
	}
	if err := j.HandleMixinRoutines(m); !errors.Is(err, loom.ErrMixinBusy) {
		t.Errorf("second schedule = %v, want ErrMixinBusy", err)
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	results, err := j.WaitForMixinRoutines(ctx, false, m)
	if err != nil {
		t.Fatalf("WaitForMixinRoutines: %v", err)
	}
	if got := results[m]; got != nil {
		t.Errorf("mixin result = %v, want nil", got)
	}

	// Finished task: the slot frees up for rescheduling.
	if err := j.HandleMixinRoutines(m); err != nil {
		t.Errorf("reschedule after finish = %v, want nil", err)
	}
	if err := ctl.Stop(true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, "job to stop", func() bool { return j.Status() == StatusStopped })
}

func TestWaitForMixinRoutinesSkipNotRunning(t *testing.T) {
	m := &Mixin{Name: "lazy", Routine: func(ctx context.Context, j *Job) error { return nil }}
	class := registerClass(t, &Class{
		Name:   "mixin-skip",
		New:    func() Runner { return &counterRunner{} },
		Mixins: []*Mixin{m},
	})
	j, _, _ := newTestJob(t, class)

	ctx := context.Background()
	if _, err := j.WaitForMixinRoutines(ctx, false, m); !errors.Is(err, loom.ErrMixinNotRunning) {
		t.Errorf("strict wait = %v, want ErrMixinNotRunning", err)
	}
	results, err := j.WaitForMixinRoutines(ctx, true, m)
	if err != nil {
		t.Fatalf("lenient wait: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("lenient results = %v, want empty", results)
	}
}

func TestMixinRoutineErrorIsReported(t *testing.T) {
	boom := errors.New("pump broke")
	m := &Mixin{Name: "broken", Routine: func(ctx context.Context, j *Job) error { return boom }}
	class := registerClass(t, &Class{
		Name:   "mixin-error",
		New:    func() Runner { return &counterRunner{} },
		Mixins: []*Mixin{m},
	})
	j, ctl, _ := newTestJob(t, class, WithInterval(time.Hour))

	if err := ctl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "job to idle", func() bool { return j.Idling() })
	if err := j.HandleMixinRoutines(m); err != nil {
		t.Fatalf("HandleMixinRoutines: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	results, err := j.WaitForMixinRoutines(ctx, false, m)
	if err != nil {
		t.Fatalf("WaitForMixinRoutines: %v", err)
	}
	if !errors.Is(results[m], boom) {
		t.Errorf("mixin result = %v, want %v", results[m], boom)
	}
	if err := ctl.Stop(true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, "job to stop", func() bool { return j.Status() == StatusStopped })
}

func TestStopCancelsMixinRoutines(t *testing.T) {
	m, _ := blockingMixin("stuck")
	class := registerClass(t, &Class{
		Name:   "mixin-cancel",
		New:    func() Runner { return &counterRunner{} },
		Mixins: []*Mixin{m},
	})
	j, ctl, _ := newTestJob(t, class, WithInterval(time.Hour))

	if err := ctl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "job to idle", func() bool { return j.Idling() })
	if err := j.HandleMixinRoutines(m); err != nil {
		t.Fatalf("HandleMixinRoutines: %v", err)
	}

	if err := ctl.Stop(true); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, "job to stop", func() bool { return j.Status() == StatusStopped })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	results, err := j.WaitForMixinRoutines(ctx, false, m)
	if err != nil {
		t.Fatalf("WaitForMixinRoutines: %v", err)
	}
	if !errors.Is(results[m], context.Canceled) {
		t.Errorf("mixin result = %v, want context.Canceled", results[m])
	}
}
