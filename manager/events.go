package manager

import (
	"context"
	"log/slog"

	"github.com/loomworks/loom/event"
	"github.com/loomworks/loom/id"
	"github.com/loomworks/loom/signal"
)

// eventWaiter is a pending one-shot wait-for-event registration.
type eventWaiter struct {
	kinds []event.Kind
	check event.Check
	owner id.JobID
	fut   *signal.Future[event.Event]
}

func (w *eventWaiter) wants(ev event.Event) bool {
	if len(w.kinds) > 0 {
		ok := false
		for _, k := range w.kinds {
			if k == ev.Kind() {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if w.check != nil && !w.check(ev) {
		return false
	}
	return true
}

// dispatchEvent routes an event: the invoker is permission-checked
// (custom events need MEDIUM and above, built-in HIGH and above) and
// recorded as dispatcher if none is set; matching one-shot waiters
// resolve first, each with an independent copy, noting which jobs were
// served through their own waiter; statically subscribed jobs whose check
// accepts the event then receive copies into their queues, unless they
// were already served and did not opt into double dispatch.
func (m *Manager) dispatchEvent(ctx context.Context, inv *record, ev event.Event) error {
	if err := m.ready(); err != nil {
		return err
	}
	if err := m.checkDispatch(inv, ev.Builtin()); err != nil {
		return err
	}
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	ev.SetDispatcher(inv.handle)

	served := map[id.JobID]bool{}

	m.mu.Lock()
	var kept []*eventWaiter
	var resolved []*eventWaiter
	for _, w := range m.waiters {
		if w.fut.Resolved() {
			continue
		}
		if w.wants(ev) {
			resolved = append(resolved, w)
			continue
		}
		kept = append(kept, w)
	}
	m.waiters = kept

	var targets []*record
	for _, r := range m.jobs {
		if r == m.sentinel || !r.registered {
			continue
		}
		if r.job.Class().SubscribesTo(ev.Kind()) {
			targets = append(targets, r)
		}
	}
	m.mu.Unlock()

	for _, w := range resolved {
		if w.fut.Resolve(ev.Copy()) && !w.owner.IsZero() {
			served[w.owner] = true
		}
	}

	delivered := 0
	for _, r := range targets {
		if !r.job.Alive() {
			continue
		}
		if served[r.job.RuntimeID()] && !r.job.AllowsDoubleDispatch() {
			continue
		}
		cp := ev.Copy()
		if !r.job.CheckEvent(cp) {
			continue
		}
		if err := r.ctl.AddEvent(cp); err == nil {
			delivered++
		}
	}

	m.logger.Debug("event dispatched",
		slog.String("kind", string(ev.Kind())),
		slog.Int("waiters", len(resolved)),
		slog.Int("deliveries", delivered),
	)
	return nil
}

// waitForEvent registers a one-shot waiter resolved by the first
// dispatched event of any of the given kinds accepted by check.
func (m *Manager) waitForEvent(ctx context.Context, inv *record, check event.Check, kinds ...event.Kind) (event.Event, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	w := &eventWaiter{
		kinds: kinds,
		check: check,
		fut:   signal.NewFuture[event.Event](),
	}
	if inv != m.sentinel {
		w.owner = inv.job.RuntimeID()
	}
	m.mu.Lock()
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	ev, err := w.fut.Await(ctx)
	if err != nil {
		m.removeWaiter(w)
		return nil, err
	}
	return ev, nil
}

func (m *Manager) removeWaiter(w *eventWaiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.waiters {
		if other == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}
