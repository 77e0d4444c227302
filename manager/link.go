package manager

import (
	"context"
	"time"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/event"
	"github.com/loomworks/loom/id"
	"github.com/loomworks/loom/job"
)

// link is the per-job proxy implementing job.ManagerLink: every operation
// resolves the owning job's record fresh and runs through the same
// permission-checked paths the manager's own surface uses. Runner code
// never sees the Manager itself.
type link struct {
	m     *Manager
	owner id.JobID
}

func (m *Manager) linkFor(owner id.JobID) job.ManagerLink {
	return &link{m: m, owner: owner}
}

// invoker resolves the owning job's record. A job ejected from the
// manager loses its link.
func (l *link) invoker() (*record, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	r, ok := l.m.jobs[l.owner]
	if !ok {
		return nil, loom.ErrJobNotRegistered
	}
	return r, nil
}

func (l *link) CreateJob(class *job.Class, opts ...job.Option) (*job.Handle, error) {
	inv, err := l.invoker()
	if err != nil {
		return nil, err
	}
	return l.m.createJob(inv, class, opts...)
}

func (l *link) InitializeJob(ctx context.Context, h *job.Handle) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.initializeJob(ctx, inv, h)
}

func (l *link) RegisterJob(ctx context.Context, h *job.Handle, level loom.Permission, start bool) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.registerJob(ctx, inv, h, level, start)
}

func (l *link) CreateAndRegisterJob(ctx context.Context, class *job.Class, opts ...job.Option) (*job.Handle, error) {
	inv, err := l.invoker()
	if err != nil {
		return nil, err
	}
	return l.m.createAndRegisterJob(ctx, inv, class, opts...)
}

func (l *link) StartJob(h *job.Handle) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.startJob(inv, h)
}

func (l *link) StopJob(h *job.Handle, force bool) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.stopJob(inv, h, force, 0)
}

func (l *link) StopJobWithTimeout(h *job.Handle, force bool, timeout time.Duration) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.stopJob(inv, h, force, timeout)
}

func (l *link) RestartJob(h *job.Handle) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.restartJob(inv, h)
}

func (l *link) KillJob(h *job.Handle, awaken bool) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.killJob(inv, h, awaken)
}

func (l *link) GuardJob(h *job.Handle) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.guardJob(inv, h)
}

func (l *link) UnguardJob(h *job.Handle) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.unguardJob(inv, h)
}

func (l *link) GuardDuring(ctx context.Context, h *job.Handle, fn func(ctx context.Context) error) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.guardDuring(ctx, inv, h, fn)
}

func (l *link) DispatchEvent(ctx context.Context, ev event.Event) error {
	inv, err := l.invoker()
	if err != nil {
		return err
	}
	return l.m.dispatchEvent(ctx, inv, ev)
}

func (l *link) WaitForEvent(ctx context.Context, check event.Check, kinds ...event.Kind) (event.Event, error) {
	inv, err := l.invoker()
	if err != nil {
		return nil, err
	}
	return l.m.waitForEvent(ctx, inv, check, kinds...)
}

func (l *link) FindJobs(f job.Filter) []*job.Handle {
	return l.m.findJobs(f)
}
