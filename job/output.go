package job

import (
	"context"
	"fmt"
	"sync"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/signal"
)

// outputStore holds a job's declared output fields and queues together
// with their pending waiters. Writers are the owning job only; readers go
// through the job's exported output methods or a queue proxy.
type outputStore struct {
	mu     sync.Mutex
	fields map[string]*fieldSlot
	queues map[string]*queueSlot

	terminated bool
	terminal   Status
}

type fieldSlot struct {
	disabled bool
	set      bool
	value    any
	waiters  signal.List[any]
}

type queueSlot struct {
	disabled bool
	items    []any
	waiters  signal.List[any]
	proxies  []*queueCursor
}

func newOutputStore(class *Class) *outputStore {
	s := &outputStore{
		fields: map[string]*fieldSlot{},
		queues: map[string]*queueSlot{},
	}
	for _, f := range class.OutputFields {
		s.fields[f.Name] = &fieldSlot{disabled: f.Disabled}
	}
	for _, q := range class.OutputQueues {
		s.queues[q.Name] = &queueSlot{disabled: q.Disabled}
	}
	return s
}

func (s *outputStore) field(name string) (*fieldSlot, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: output field %q", loom.ErrOutputUnsupported, name)
	}
	if f.disabled {
		return nil, fmt.Errorf("%w: output field %q", loom.ErrOutputDisabled, name)
	}
	return f, nil
}

func (s *outputStore) queue(name string) (*queueSlot, error) {
	q, ok := s.queues[name]
	if !ok {
		return nil, fmt.Errorf("%w: output queue %q", loom.ErrOutputUnsupported, name)
	}
	if q.disabled {
		return nil, fmt.Errorf("%w: output queue %q", loom.ErrOutputDisabled, name)
	}
	return q, nil
}

// terminate resolves every pending field and queue waiter with the job's
// terminal status and invalidates all queue proxies.
func (s *outputStore) terminate(status Status) {
	s.mu.Lock()
	s.terminated = true
	s.terminal = status
	fields := make([]*fieldSlot, 0, len(s.fields))
	for _, f := range s.fields {
		fields = append(fields, f)
	}
	queues := make([]*queueSlot, 0, len(s.queues))
	var cursors []*queueCursor
	for _, q := range s.queues {
		queues = append(queues, q)
		cursors = append(cursors, q.proxies...)
	}
	s.mu.Unlock()

	err := &TerminalError{Status: status}
	for _, f := range fields {
		f.waiters.FailAll(err)
	}
	for _, q := range queues {
		q.waiters.FailAll(err)
	}
	for _, c := range cursors {
		c.invalidate(err)
	}
}

// VerifyOutputFieldSupport reports an error unless the job's class
// declares the named output field and it is not disabled.
func (j *Job) VerifyOutputFieldSupport(name string) error {
	j.outputs.mu.Lock()
	defer j.outputs.mu.Unlock()
	_, err := j.outputs.field(name)
	return err
}

// VerifyOutputQueueSupport reports an error unless the job's class
// declares the named output queue and it is not disabled.
func (j *Job) VerifyOutputQueueSupport(name string) error {
	j.outputs.mu.Lock()
	defer j.outputs.mu.Unlock()
	_, err := j.outputs.queue(name)
	return err
}

// SetOutputField publishes a value under the named field. Each field is
// single-assignment: a second set on the same name fails regardless of
// intervening awaits. All pending awaiters of the field resolve with the
// value.
func (j *Job) SetOutputField(name string, value any) error {
	s := j.outputs
	s.mu.Lock()
	f, err := s.field(name)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if f.set {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", loom.ErrFieldAlreadySet, name)
	}
	f.set = true
	f.value = value
	s.mu.Unlock()

	f.waiters.ResolveAll(value)
	return nil
}

// GetOutputField returns the named field's value, failing if it has not
// been set yet.
func (j *Job) GetOutputField(name string) (any, error) {
	s := j.outputs
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.field(name)
	if err != nil {
		return nil, err
	}
	if !f.set {
		return nil, fmt.Errorf("%w: %q", loom.ErrFieldNotSet, name)
	}
	return f.value, nil
}

// GetOutputFieldOrDefault returns the named field's value, or def when the
// field is unset or unsupported.
func (j *Job) GetOutputFieldOrDefault(name string, def any) any {
	v, err := j.GetOutputField(name)
	if err != nil {
		return def
	}
	return v
}

// AwaitOutputField suspends until the named field is set, returning its
// value. If the job reaches a terminal state first, the wait fails with a
// TerminalError carrying that status. A field already set resolves
// immediately.
func (j *Job) AwaitOutputField(ctx context.Context, name string) (any, error) {
	s := j.outputs
	s.mu.Lock()
	f, err := s.field(name)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if f.set {
		v := f.value
		s.mu.Unlock()
		return v, nil
	}
	if s.terminated {
		status := s.terminal
		s.mu.Unlock()
		return nil, &TerminalError{Status: status}
	}
	fut := signal.NewFuture[any]()
	f.waiters.Add(fut)
	s.mu.Unlock()
	return fut.Await(ctx)
}

// PushOutputQueue appends a value to the named queue, resolving every
// pending add-waiter and notifying live queue proxies.
func (j *Job) PushOutputQueue(name string, value any) error {
	s := j.outputs
	s.mu.Lock()
	q, err := s.queue(name)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	q.items = append(q.items, value)
	proxies := append([]*queueCursor(nil), q.proxies...)
	s.mu.Unlock()

	q.waiters.ResolveAll(value)
	for _, c := range proxies {
		c.notify()
	}
	return nil
}

// OutputQueueContents returns a copy of the named queue's current
// contents.
func (j *Job) OutputQueueContents(name string) ([]any, error) {
	s := j.outputs
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.queue(name)
	if err != nil {
		return nil, err
	}
	return append([]any(nil), q.items...), nil
}

// ClearOutputQueue drops the named queue's contents. Pending add-waiters
// that subscribed with cancelIfCleared fail with ErrQueueCleared; the rest
// stay pending for the next push. Queue proxies reset their cursors.
func (j *Job) ClearOutputQueue(name string) error {
	s := j.outputs
	s.mu.Lock()
	q, err := s.queue(name)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	q.items = nil
	proxies := append([]*queueCursor(nil), q.proxies...)
	s.mu.Unlock()

	q.waiters.Clear(fmt.Errorf("%w: %q", loom.ErrQueueCleared, name))
	for _, c := range proxies {
		c.reset()
	}
	return nil
}

// AwaitOutputQueueAdd suspends until the next value is pushed onto the
// named queue. With cancelIfCleared set, a ClearOutputQueue fails the wait
// instead of leaving it pending. Terminal job states fail the wait with a
// TerminalError.
func (j *Job) AwaitOutputQueueAdd(ctx context.Context, name string, cancelIfCleared bool) (any, error) {
	s := j.outputs
	s.mu.Lock()
	q, err := s.queue(name)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.terminated {
		status := s.terminal
		s.mu.Unlock()
		return nil, &TerminalError{Status: status}
	}
	fut := signal.NewFuture[any]()
	q.waiters.AddWithClearPolicy(fut, cancelIfCleared)
	s.mu.Unlock()
	return fut.Await(ctx)
}

// OutputQueueProxy is an independent reader over one job's output queues:
// each proxy keeps a private cursor per queue, advanced by Next. Proxies
// are invalidated when the job reaches a terminal state.
type OutputQueueProxy struct {
	job     *Job
	mu      sync.Mutex
	cursors map[string]*queueCursor
}

type queueCursor struct {
	slot *queueSlot

	mu     sync.Mutex
	pos    int
	dead   error
	wakeup chan struct{}
}

func (c *queueCursor) notify() {
	c.mu.Lock()
	ch := c.wakeup
	c.wakeup = nil
	c.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (c *queueCursor) reset() {
	c.mu.Lock()
	c.pos = 0
	c.mu.Unlock()
}

func (c *queueCursor) invalidate(err error) {
	c.mu.Lock()
	c.dead = err
	ch := c.wakeup
	c.wakeup = nil
	c.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// NewOutputQueueProxy returns a fresh proxy over the job's output queues.
func (j *Job) NewOutputQueueProxy() (*OutputQueueProxy, error) {
	s := j.outputs
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return nil, &TerminalError{Status: s.terminal}
	}
	return &OutputQueueProxy{job: j, cursors: map[string]*queueCursor{}}, nil
}

func (p *OutputQueueProxy) cursor(name string) (*queueCursor, error) {
	s := p.job.outputs
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.cursors[name]; ok {
		return c, nil
	}
	s.mu.Lock()
	q, err := s.queue(name)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	c := &queueCursor{slot: q}
	if s.terminated {
		c.dead = &TerminalError{Status: s.terminal}
	}
	q.proxies = append(q.proxies, c)
	s.mu.Unlock()
	p.cursors[name] = c
	return c, nil
}

// Next returns the next unread value in the named queue, suspending until
// one is pushed when the cursor has caught up.
func (p *OutputQueueProxy) Next(ctx context.Context, name string) (any, error) {
	c, err := p.cursor(name)
	if err != nil {
		return nil, err
	}
	s := p.job.outputs
	for {
		s.mu.Lock()
		c.mu.Lock()
		if c.pos < len(c.slot.items) {
			v := c.slot.items[c.pos]
			c.pos++
			c.mu.Unlock()
			s.mu.Unlock()
			return v, nil
		}
		if c.dead != nil {
			err := c.dead
			c.mu.Unlock()
			s.mu.Unlock()
			return nil, err
		}
		if c.wakeup == nil {
			c.wakeup = make(chan struct{})
		}
		ch := c.wakeup
		c.mu.Unlock()
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Contents returns the unread remainder of the named queue without moving
// the cursor.
func (p *OutputQueueProxy) Contents(name string) ([]any, error) {
	c, err := p.cursor(name)
	if err != nil {
		return nil, err
	}
	s := p.job.outputs
	s.mu.Lock()
	defer s.mu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pos >= len(c.slot.items) {
		return nil, nil
	}
	return append([]any(nil), c.slot.items[c.pos:]...), nil
}

// Reset rewinds the named queue's cursor to the start of its current
// contents.
func (p *OutputQueueProxy) Reset(name string) error {
	c, err := p.cursor(name)
	if err != nil {
		return err
	}
	c.reset()
	return nil
}
