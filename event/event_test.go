package event_test

import (
	"testing"
	"time"

	"github.com/loomworks/loom/event"
	"github.com/loomworks/loom/id"
)

type ping struct {
	event.Base
	Payload string
}

func (p *ping) Kind() event.Kind { return "ping" }
func (p *ping) Copy() event.Event {
	c := *p
	return &c
}

type reload struct {
	event.SystemBase
}

func (r *reload) Kind() event.Kind { return "reload" }
func (r *reload) Copy() event.Event {
	c := *r
	return &c
}

type fakeDispatcher struct{ id id.JobID }

func (f fakeDispatcher) RuntimeID() id.JobID { return f.id }

func TestSetDispatcher_Once(t *testing.T) {
	ev := &ping{Base: event.NewBase()}

	a := fakeDispatcher{id: id.NewJobID(id.NewClassID("a", time.Now()), time.Now())}
	b := fakeDispatcher{id: id.NewJobID(id.NewClassID("b", time.Now()), time.Now())}

	if !ev.SetDispatcher(a) {
		t.Fatal("first SetDispatcher returned false")
	}
	if ev.SetDispatcher(b) {
		t.Fatal("second SetDispatcher returned true")
	}
	if got := ev.Dispatcher().RuntimeID(); got != a.id {
		t.Errorf("Dispatcher = %s, want %s", got, a.id)
	}
}

func TestCopy_IsIndependent(t *testing.T) {
	ev := &ping{Base: event.NewBase(), Payload: "original"}
	cp := ev.Copy().(*ping)

	cp.Payload = "mutated"
	if ev.Payload != "original" {
		t.Errorf("mutating the copy changed the original: %q", ev.Payload)
	}
}

func TestBuiltinMarker(t *testing.T) {
	var custom event.Event = &ping{Base: event.NewBase()}
	var builtin event.Event = &reload{SystemBase: event.NewSystemBase()}

	if custom.Builtin() {
		t.Error("custom event reported as builtin")
	}
	if !builtin.Builtin() {
		t.Error("system event not reported as builtin")
	}
}
