package job

import (
	"context"
	"sync"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/event"
	"github.com/loomworks/loom/signal"
)

// eventQueue is the bounded per-job queue of events delivered through
// static subscriptions. When full, the oldest queued event is dropped.
// The job consumes it from its own hooks via NextEvent.
type eventQueue struct {
	mu      sync.Mutex
	max     int
	items   []event.Event
	waiters signal.List[event.Event]
	dropped uint64
}

func newEventQueue(max int) *eventQueue {
	return &eventQueue{max: max}
}

func (q *eventQueue) add(ev event.Event) {
	q.mu.Lock()
	if q.waiters.ResolveNext(ev) {
		q.mu.Unlock()
		return
	}
	if len(q.items) >= q.max {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		q.dropped++
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
}

func (q *eventQueue) next(ctx context.Context) (event.Event, error) {
	q.mu.Lock()
	if len(q.items) > 0 {
		ev := q.items[0]
		q.items = q.items[:copy(q.items, q.items[1:])]
		q.mu.Unlock()
		return ev, nil
	}
	fut := signal.NewFuture[event.Event]()
	q.waiters.Add(fut)
	q.mu.Unlock()
	return fut.Await(ctx)
}

func (q *eventQueue) clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// NextEvent returns the oldest queued event delivered to the job,
// suspending until one arrives.
func (j *Job) NextEvent(ctx context.Context) (event.Event, error) {
	return j.events.next(ctx)
}

// QueuedEvents returns the number of delivered events not yet consumed.
func (j *Job) QueuedEvents() int { return j.events.len() }

// ClearEvents drops all queued events.
func (j *Job) ClearEvents() { j.events.clear() }

// addEvent delivers an event into the job's queue. Terminal jobs reject
// delivery.
func (j *Job) addEvent(ev event.Event) error {
	j.mu.Lock()
	if j.flags.hasAny(flagCompleted | flagKilled) {
		j.mu.Unlock()
		return loom.ErrJobDone
	}
	j.mu.Unlock()
	j.events.add(ev)
	return nil
}
