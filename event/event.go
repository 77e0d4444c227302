// Package event defines the typed messages the manager dispatches to jobs,
// either through static class-level subscriptions or ad hoc one-shot waiters.
package event

import (
	"time"

	"github.com/loomworks/loom/id"
)

// Kind identifies an event type. Every concrete event type returns a
// process-unique constant Kind.
type Kind string

// Dispatcher identifies the job that emitted an event.
type Dispatcher interface {
	RuntimeID() id.JobID
}

// Event is a typed message dispatched to jobs. Each delivery target must
// receive an independent copy, so concrete events implement Copy as a value
// copy of themselves.
//
// Events embedding [Base] are custom events; events embedding [SystemBase]
// are built-in ones, which require a higher rank to dispatch.
type Event interface {
	Kind() Kind
	Copy() Event

	Dispatcher() Dispatcher
	SetDispatcher(d Dispatcher) bool
	Builtin() bool
}

// Base carries the bookkeeping shared by all custom events: the dispatcher
// reference (injected once by the manager if unset) and the creation time.
// Embed it by value so Copy keeps an independent Base per delivery.
type Base struct {
	dispatcher Dispatcher
	createdAt  time.Time
}

// NewBase returns a Base stamped with the current time.
func NewBase() Base {
	return Base{createdAt: time.Now().UTC()}
}

// Dispatcher returns the job that emitted the event, if set.
func (b *Base) Dispatcher() Dispatcher { return b.dispatcher }

// SetDispatcher records the emitting job. Only the first call takes effect;
// it reports whether this call set the dispatcher.
func (b *Base) SetDispatcher(d Dispatcher) bool {
	if b.dispatcher != nil {
		return false
	}
	b.dispatcher = d
	return true
}

// CreatedAt returns the event's creation time.
func (b *Base) CreatedAt() time.Time { return b.createdAt }

// Builtin reports whether the event is a built-in kind. Custom events
// return false.
func (b *Base) Builtin() bool { return false }

// SystemBase marks an event as built-in. Dispatching built-in events
// requires a higher permission rank than custom ones.
type SystemBase struct {
	Base
}

// NewSystemBase returns a SystemBase stamped with the current time.
func NewSystemBase() SystemBase {
	return SystemBase{Base: NewBase()}
}

// Builtin reports true for built-in events.
func (b *SystemBase) Builtin() bool { return true }

// Check is a predicate applied to candidate events before delivery.
type Check func(Event) bool
