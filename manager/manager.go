package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/event"
	"github.com/loomworks/loom/id"
	"github.com/loomworks/loom/job"
	"github.com/loomworks/loom/middleware"
)

// sentinelClassName is the class of the manager's internal SYSTEM-rank
// job, the implicit invoker for calls made outside any job context.
const sentinelClassName = "loom-manager"

// record is the manager's bookkeeping for one job it owns.
type record struct {
	job        *job.Job
	ctl        *job.Control
	handle     *job.Handle
	perm       loom.Permission
	creator    id.JobID
	registered bool
}

// Manager owns the live job set: it is the single point of permission
// enforcement and lifecycle mediation between jobs.
type Manager struct {
	cfg      loom.Config
	logger   *slog.Logger
	registry *job.Registry
	mw       middleware.Middleware
	limiter  *rate.Limiter
	now      func() time.Time

	extraMW []middleware.Middleware

	mu          sync.Mutex
	initialized bool
	running     bool
	jobs        map[id.JobID]*record
	instances   map[*job.Class]map[id.JobID]*record
	waiters     []*eventWaiter

	sentinel *record
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger sets the manager's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMiddleware appends middleware to the hook invocation chain. Panic
// recovery is always the outermost layer.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(m *Manager) { m.extraMW = append(m.extraMW, mws...) }
}

// WithClock overrides the manager's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// sentinelRunner backs the manager's internal job. Its loop only ever
// runs when the sentinel is awakened for a kill.
type sentinelRunner struct {
	job.Base
}

func (r *sentinelRunner) OnRun(ctx context.Context) error { return nil }

// New constructs a manager bound to the given class registry. Initialize
// must be called before any job operation.
func New(registry *job.Registry, cfg loom.Config, opts ...Option) (*Manager, error) {
	if registry == nil {
		return nil, fmt.Errorf("loom: manager requires a class registry")
	}
	if cfg.DefaultPermission == 0 {
		cfg.DefaultPermission = loom.PermDefault
	}
	if !cfg.DefaultPermission.Grantable() {
		return nil, fmt.Errorf("loom: default permission %s is not grantable", cfg.DefaultPermission)
	}

	m := &Manager{
		cfg:       cfg,
		logger:    slog.Default(),
		registry:  registry,
		now:       time.Now,
		jobs:      map[id.JobID]*record{},
		instances: map[*job.Class]map[id.JobID]*record{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.mw = middleware.Chain(append(
		[]middleware.Middleware{middleware.Recover(m.logger)}, m.extraMW...)...)
	if cfg.EventRate > 0 {
		burst := cfg.EventBurst
		if burst <= 0 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(cfg.EventRate), burst)
	}

	// The sentinel lives in a private registry so user registries stay
	// free of manager internals.
	sentReg := job.NewRegistry()
	sentClass := &job.Class{
		Name: sentinelClassName,
		New:  func() job.Runner { return &sentinelRunner{} },
	}
	if err := sentReg.Register(sentClass); err != nil {
		return nil, err
	}
	sj, err := job.New(sentClass)
	if err != nil {
		return nil, err
	}
	ctl, err := job.Bind(sj, (*binding)(m), m.linkFor(sj.RuntimeID()))
	if err != nil {
		return nil, err
	}
	m.sentinel = &record{
		job:        sj,
		ctl:        ctl,
		handle:     job.NewHandle(sj),
		perm:       loom.PermSystem,
		registered: true,
	}
	m.jobs[sj.RuntimeID()] = m.sentinel
	return m, nil
}

// Initialize readies the manager: it initializes the sentinel job and
// marks the manager running. Initializing twice is an error.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return loom.ErrManagerRunning
	}
	m.mu.Unlock()

	if err := m.sentinel.ctl.Initialize(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.initialized = true
	m.running = true
	m.mu.Unlock()
	m.logger.Info("job manager initialized")
	return nil
}

// Initialized reports whether Initialize has completed.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Running reports whether the manager currently accepts job operations.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// ShutdownMode selects what happens to live jobs when the manager stops.
type ShutdownMode int

const (
	// ModeStop force-stops every job but leaves it registered and
	// resumable.
	ModeStop ShutdownMode = iota
	// ModeKill kills every job, emptying the manager.
	ModeKill
)

// Stop suspends the manager: it stops (or kills) every job it owns and
// stops accepting job operations until Resume.
func (m *Manager) Stop(ctx context.Context, mode ShutdownMode) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return loom.ErrManagerNotInitialized
	}
	if !m.running {
		m.mu.Unlock()
		return loom.ErrManagerNotRunning
	}
	m.mu.Unlock()

	var err error
	switch mode {
	case ModeKill:
		err = m.KillAllJobs(ctx, true)
	default:
		err = m.StopAllJobs(ctx, true)
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.logger.Info("job manager stopped", slog.Int("mode", int(mode)))
	return err
}

// Resume lets an initialized, stopped manager accept job operations again.
func (m *Manager) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return loom.ErrManagerNotInitialized
	}
	m.running = true
	return nil
}

// ready gates every job operation on the manager being initialized and
// running.
func (m *Manager) ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return loom.ErrManagerNotInitialized
	}
	if !m.running {
		return loom.ErrManagerNotRunning
	}
	return nil
}

func (m *Manager) lookup(h *job.Handle) (*record, error) {
	if h == nil {
		return nil, loom.ErrJobNotRegistered
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.jobs[h.RuntimeID()]
	if !ok {
		return nil, loom.ErrJobNotRegistered
	}
	return r, nil
}

// singletonFreeLocked returns ErrSingletonLive when the class already
// has a live registered instance. Callers hold m.mu.
func (m *Manager) singletonFreeLocked(class *job.Class) error {
	if !class.Singleton {
		return nil
	}
	for _, other := range m.instances[class] {
		if other.registered && !other.job.Done() {
			return fmt.Errorf("%w: class %q", loom.ErrSingletonLive, class.Name)
		}
	}
	return nil
}

// binding adapts the Manager to the job.Binding callback surface.
type binding Manager

func (b *binding) Eject(j *job.Job) { (*Manager)(b).eject(j) }

func (b *binding) StopTimeout() time.Duration { return b.cfg.StopTimeout }

func (b *binding) Logger() *slog.Logger { return b.logger }

func (b *binding) Middleware() middleware.Middleware { return b.mw }

// eject removes a terminal job from every index. Called from the job's
// stop cleanup.
func (m *Manager) eject(j *job.Job) {
	m.mu.Lock()
	delete(m.jobs, j.RuntimeID())
	if set, ok := m.instances[j.Class()]; ok {
		delete(set, j.RuntimeID())
		if len(set) == 0 {
			delete(m.instances, j.Class())
		}
	}
	m.mu.Unlock()
	m.logger.Debug("job ejected",
		slog.String("job_id", j.RuntimeID().String()),
		slog.String("status", j.Status().String()),
	)
}

// createJob instantiates a class for the given invoker without
// registering the instance.
func (m *Manager) createJob(inv *record, class *job.Class, opts ...job.Option) (*job.Handle, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if err := m.checkCreate(inv); err != nil {
		return nil, err
	}
	j, err := job.New(class, opts...)
	if err != nil {
		return nil, err
	}
	ctl, err := job.Bind(j, (*binding)(m), m.linkFor(j.RuntimeID()))
	if err != nil {
		return nil, err
	}
	r := &record{
		job:     j,
		ctl:     ctl,
		handle:  job.NewHandle(j),
		creator: inv.job.RuntimeID(),
	}
	m.mu.Lock()
	m.jobs[j.RuntimeID()] = r
	m.mu.Unlock()
	m.logger.Debug("job created",
		slog.String("job_id", j.RuntimeID().String()),
		slog.String("class", class.Name),
	)
	return r.handle, nil
}

func (m *Manager) initializeJob(ctx context.Context, inv *record, h *job.Handle) error {
	if err := m.ready(); err != nil {
		return err
	}
	r, err := m.lookup(h)
	if err != nil {
		return err
	}
	if err := m.checkManage(loom.OpInitialize, inv, r); err != nil {
		return err
	}
	return r.ctl.Initialize(ctx)
}

func (m *Manager) registerJob(ctx context.Context, inv *record, h *job.Handle, level loom.Permission, start bool) error {
	if err := m.ready(); err != nil {
		return err
	}
	r, err := m.lookup(h)
	if err != nil {
		return err
	}
	if level == 0 {
		level = m.cfg.DefaultPermission
	}
	if err := m.checkGrant(inv, level); err != nil {
		return err
	}
	if r.job.Done() {
		return loom.ErrJobDone
	}

	m.mu.Lock()
	if r.registered {
		m.mu.Unlock()
		return loom.ErrAlreadyRegistered
	}
	class := r.job.Class()
	if err := m.singletonFreeLocked(class); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	if !r.job.Initialized() {
		if err := r.ctl.Initialize(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if r.registered {
		m.mu.Unlock()
		return loom.ErrAlreadyRegistered
	}
	// Initialize released the lock; a concurrent registration may have
	// claimed the singleton slot in the meantime.
	if err := m.singletonFreeLocked(class); err != nil {
		m.mu.Unlock()
		return err
	}
	r.registered = true
	r.perm = level
	set, ok := m.instances[class]
	if !ok {
		set = map[id.JobID]*record{}
		m.instances[class] = set
	}
	set[r.job.RuntimeID()] = r
	m.mu.Unlock()

	m.logger.Info("job registered",
		slog.String("job_id", r.job.RuntimeID().String()),
		slog.String("class", class.Name),
		slog.String("permission", level.String()),
	)
	if start {
		return r.ctl.Start()
	}
	return nil
}

func (m *Manager) createAndRegisterJob(ctx context.Context, inv *record, class *job.Class, opts ...job.Option) (*job.Handle, error) {
	h, err := m.createJob(inv, class, opts...)
	if err != nil {
		return nil, err
	}
	if err := m.registerJob(ctx, inv, h, 0, true); err != nil {
		return nil, err
	}
	return h, nil
}

func (m *Manager) startJob(inv *record, h *job.Handle) error {
	r, err := m.manageable(loom.OpStart, inv, h)
	if err != nil {
		return err
	}
	return r.ctl.Start()
}

func (m *Manager) stopJob(inv *record, h *job.Handle, force bool, timeout time.Duration) error {
	r, err := m.manageable(loom.OpStop, inv, h)
	if err != nil {
		return err
	}
	if timeout > 0 {
		return r.ctl.StopWithTimeout(force, timeout)
	}
	return r.ctl.Stop(force)
}

func (m *Manager) restartJob(inv *record, h *job.Handle) error {
	r, err := m.manageable(loom.OpRestart, inv, h)
	if err != nil {
		return err
	}
	return r.ctl.Restart()
}

func (m *Manager) killJob(inv *record, h *job.Handle, awaken bool) error {
	r, err := m.manageable(loom.OpKill, inv, h)
	if err != nil {
		return err
	}
	return r.ctl.Kill(awaken)
}

// manageable resolves the target and applies readiness, registration,
// permission and guard checks shared by the lifecycle verbs.
func (m *Manager) manageable(op loom.Op, inv *record, h *job.Handle) (*record, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	r, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	if !r.registered {
		return nil, loom.ErrJobNotRegistered
	}
	if err := m.checkManage(op, inv, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (m *Manager) guardJob(inv *record, h *job.Handle) error {
	r, err := m.manageable(loom.OpGuard, inv, h)
	if err != nil {
		return err
	}
	return r.ctl.SetGuardian(inv.job)
}

func (m *Manager) unguardJob(inv *record, h *job.Handle) error {
	if err := m.ready(); err != nil {
		return err
	}
	r, err := m.lookup(h)
	if err != nil {
		return err
	}
	holder, guarded := r.ctl.Guardian()
	if !guarded {
		return loom.ErrNotGuarded
	}
	// Only the holder may unguard, unless the invoker outranks the
	// target per the management matrix.
	if holder != inv.job.RuntimeID() {
		if err := m.checkManage(loom.OpUnguard, inv, r); err != nil {
			return err
		}
	}
	return r.ctl.ClearGuardian()
}

func (m *Manager) guardDuring(ctx context.Context, inv *record, h *job.Handle, fn func(ctx context.Context) error) error {
	if err := m.guardJob(inv, h); err != nil {
		return err
	}
	defer func() {
		if err := m.unguardJob(inv, h); err != nil {
			m.logger.Error("guard release failed",
				slog.String("job_id", h.RuntimeID().String()),
				slog.String("error", err.Error()),
			)
		}
	}()
	return fn(ctx)
}

func (m *Manager) findJobs(f job.Filter) []*job.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*job.Handle
	for _, r := range m.jobs {
		if !r.registered || r == m.sentinel {
			continue
		}
		if f.Matches(r.job) {
			out = append(out, r.handle)
		}
	}
	return out
}

// StopAllJobs force-stops every registered job except the sentinel and
// waits for their stop cycles to finish.
func (m *Manager) StopAllJobs(ctx context.Context, force bool) error {
	records := m.snapshot()
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range records {
		g.Go(func() error {
			err := r.ctl.Stop(force)
			if errors.Is(err, loom.ErrJobNotRunning) {
				return nil
			}
			if err != nil {
				return err
			}
			_, err = r.job.AwaitStop(ctx)
			if errors.Is(err, loom.ErrJobNotRunning) || errors.Is(err, loom.ErrJobDone) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// KillAllJobs kills every registered job except the sentinel, waiting for
// each to reach its terminal state. The sentinel is excluded from the bulk
// pass and stopped separately afterward so the job map is not mutated
// under the iteration that empties it.
func (m *Manager) KillAllJobs(ctx context.Context, awaken bool) error {
	records := m.snapshot()
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range records {
		g.Go(func() error {
			if err := r.ctl.Kill(awaken); err != nil && !errors.Is(err, loom.ErrJobDone) {
				return err
			}
			if !awaken && !r.job.Running() {
				return nil
			}
			_, err := r.job.AwaitDone(ctx)
			return err
		})
	}
	err := g.Wait()
	if serr := m.sentinel.ctl.Stop(true); serr != nil && !errors.Is(serr, loom.ErrJobNotRunning) {
		m.logger.Error("sentinel stop failed", slog.String("error", serr.Error()))
	}
	return err
}

// snapshot returns the registered non-sentinel records.
func (m *Manager) snapshot() []*record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*record, 0, len(m.jobs))
	for _, r := range m.jobs {
		if r == m.sentinel || !r.registered {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Public surface: calls on the Manager itself run as the SYSTEM sentinel.

// CreateJob instantiates a class without registering the instance.
func (m *Manager) CreateJob(class *job.Class, opts ...job.Option) (*job.Handle, error) {
	return m.createJob(m.sentinel, class, opts...)
}

// InitializeJob runs a created job's OnInit hook.
func (m *Manager) InitializeJob(ctx context.Context, h *job.Handle) error {
	return m.initializeJob(ctx, m.sentinel, h)
}

// RegisterJob registers a created job at the given rank (0 selects the
// configured default), initializing it first if needed, and optionally
// starts it.
func (m *Manager) RegisterJob(ctx context.Context, h *job.Handle, level loom.Permission, start bool) error {
	return m.registerJob(ctx, m.sentinel, h, level, start)
}

// CreateAndRegisterJob creates, registers at the default rank and starts
// an instance of the class.
func (m *Manager) CreateAndRegisterJob(ctx context.Context, class *job.Class, opts ...job.Option) (*job.Handle, error) {
	return m.createAndRegisterJob(ctx, m.sentinel, class, opts...)
}

// StartJob launches a registered job's execution loop.
func (m *Manager) StartJob(h *job.Handle) error { return m.startJob(m.sentinel, h) }

// StopJob stops a job, gracefully unless force is set.
func (m *Manager) StopJob(h *job.Handle, force bool) error {
	return m.stopJob(m.sentinel, h, force, 0)
}

// StopJobWithTimeout stops a job with a call-scoped OnStop deadline.
func (m *Manager) StopJobWithTimeout(h *job.Handle, force bool, timeout time.Duration) error {
	return m.stopJob(m.sentinel, h, force, timeout)
}

// RestartJob stops a job and starts it again once the stop finishes.
func (m *Manager) RestartJob(h *job.Handle) error { return m.restartJob(m.sentinel, h) }

// KillJob kills a job. With awaken set, a stopped job is started solely to
// pass through its cleanup into the KILLED state.
func (m *Manager) KillJob(h *job.Handle, awaken bool) error {
	return m.killJob(m.sentinel, h, awaken)
}

// GuardJob places the cooperative mutual-exclusion guard on a job.
func (m *Manager) GuardJob(h *job.Handle) error { return m.guardJob(m.sentinel, h) }

// UnguardJob releases the guard held on a job.
func (m *Manager) UnguardJob(h *job.Handle) error { return m.unguardJob(m.sentinel, h) }

// GuardDuring guards a job for the duration of fn, releasing the guard on
// the way out.
func (m *Manager) GuardDuring(ctx context.Context, h *job.Handle, fn func(ctx context.Context) error) error {
	return m.guardDuring(ctx, m.sentinel, h, fn)
}

// DispatchEvent fans an event out to matching one-shot waiters and
// statically subscribed jobs.
func (m *Manager) DispatchEvent(ctx context.Context, ev event.Event) error {
	return m.dispatchEvent(ctx, m.sentinel, ev)
}

// WaitForEvent suspends until the first dispatched event of any of the
// given kinds accepted by check.
func (m *Manager) WaitForEvent(ctx context.Context, check event.Check, kinds ...event.Kind) (event.Event, error) {
	return m.waitForEvent(ctx, m.sentinel, check, kinds...)
}

// FindJobs returns handles of registered jobs matching the filter.
func (m *Manager) FindJobs(f job.Filter) []*job.Handle { return m.findJobs(f) }
