package job

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loomworks/loom/backoff"
)

// scheduleParser accepts standard five-field cron expressions plus an
// optional leading seconds field and descriptors such as @hourly.
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type config struct {
	interval     time.Duration
	runTimes     []time.Time
	scheduleExpr string
	schedule     cron.Schedule

	count          int
	reconnect      bool
	reconnectAllow []func(error) bool
	reconnectDelay backoff.Strategy

	doubleDispatch bool
	maxEventQueue  int

	now func() time.Time
}

func defaultJobConfig() config {
	return config{
		maxEventQueue:  256,
		reconnectDelay: backoff.Default(),
		now:            time.Now,
	}
}

// Option configures a job instance at creation time.
type Option func(*config)

// WithInterval makes the loop re-run OnRun every d. A zero interval runs
// back-to-back when a count is set, or exactly once otherwise. Mutually
// exclusive with WithRunTimes and WithSchedule.
func WithInterval(d time.Duration) Option {
	return func(c *config) { c.interval = d }
}

// WithRunTimes makes the loop run at the given clock times of day (only
// the hour, minute and second of each time are used). Mutually exclusive
// with WithInterval and WithSchedule.
func WithRunTimes(times ...time.Time) Option {
	return func(c *config) { c.runTimes = times }
}

// WithSchedule makes the loop follow a cron expression, with an optional
// leading seconds field. Mutually exclusive with WithInterval and
// WithRunTimes.
func WithSchedule(expr string) Option {
	return func(c *config) { c.scheduleExpr = expr }
}

// WithCount stops the loop automatically after n iterations, recording the
// count limit as the stopping reason.
func WithCount(n int) Option {
	return func(c *config) { c.count = n }
}

// WithReconnect makes the loop swallow OnRun errors matched by any of the
// given predicates and continue after a backoff delay instead of stopping
// the job. Without predicates, transient network and I/O errors are
// allowed.
func WithReconnect(allow ...func(error) bool) Option {
	return func(c *config) {
		c.reconnect = true
		if len(allow) == 0 {
			allow = []func(error) bool{transientIOError}
		}
		c.reconnectAllow = allow
	}
}

// WithReconnectBackoff sets the delay strategy between reconnect attempts.
func WithReconnectBackoff(s backoff.Strategy) Option {
	return func(c *config) {
		if s != nil {
			c.reconnectDelay = s
		}
	}
}

// WithDoubleDispatch opts the job into receiving an event through its
// static subscription even when one of its own event waiters already got
// a copy of the same dispatch.
func WithDoubleDispatch() Option {
	return func(c *config) { c.doubleDispatch = true }
}

// WithMaxEventQueueSize bounds the job's pending event queue; when full,
// the oldest queued event is dropped. Non-positive sizes keep the default.
func WithMaxEventQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEventQueue = n
		}
	}
}

// WithClock overrides the job's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// transientIOError is the default reconnect allowlist: timeouts and
// connection-level failures worth retrying.
func transientIOError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed)
}

// clockTimes adapts a set of times of day to the cron Schedule interface.
type clockTimes []time.Time

func (c clockTimes) Next(t time.Time) time.Time {
	var next time.Time
	for _, ct := range c {
		cand := time.Date(t.Year(), t.Month(), t.Day(),
			ct.Hour(), ct.Minute(), ct.Second(), 0, t.Location())
		if !cand.After(t) {
			cand = cand.AddDate(0, 0, 1)
		}
		if next.IsZero() || cand.Before(next) {
			next = cand
		}
	}
	return next
}
