// Package signal implements the resolve-once future and waiter-list
// broadcast primitive shared by job output fields, output queues,
// stop/done/unguard waits and event waiters: a write resolves every
// pending waiter exactly once.
package signal

import (
	"context"
	"sync"
)

// Future is a single-assignment cell another goroutine can await.
// It resolves exactly once, to either a value or an error.
type Future[T any] struct {
	mu   sync.Mutex
	done chan struct{}
	val  T
	err  error
}

// NewFuture creates an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve sets the future's value. It reports whether this call resolved
// the future; later calls are no-ops.
func (f *Future[T]) Resolve(v T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return false
	default:
	}
	f.val = v
	close(f.done)
	return true
}

// Fail resolves the future with an error instead of a value.
func (f *Future[T]) Fail(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return false
	default:
	}
	f.err = err
	close(f.done)
	return true
}

// Resolved reports whether the future has been resolved or failed.
func (f *Future[T]) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future resolves or the context ends.
// A context error does not resolve the future; other waiters and a later
// Resolve are unaffected.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val, f.err
}

// List is an ordered set of pending futures resolved together on write.
// Each entry records whether it should be failed when the backing resource
// is cleared rather than written.
type List[T any] struct {
	mu      sync.Mutex
	entries []listEntry[T]
}

type listEntry[T any] struct {
	fut         *Future[T]
	failOnClear bool
}

// Add appends a pending future.
func (l *List[T]) Add(f *Future[T]) {
	l.AddWithClearPolicy(f, false)
}

// AddWithClearPolicy appends a pending future, recording whether a Clear
// should fail it.
func (l *List[T]) AddWithClearPolicy(f *Future[T], failOnClear bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, listEntry[T]{fut: f, failOnClear: failOnClear})
}

// ResolveAll resolves and drains every pending future. It returns the
// number of futures this call resolved.
func (l *List[T]) ResolveAll(v T) int {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	n := 0
	for _, e := range entries {
		if e.fut.Resolve(v) {
			n++
		}
	}
	return n
}

// FailAll fails and drains every pending future.
func (l *List[T]) FailAll(err error) int {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	n := 0
	for _, e := range entries {
		if e.fut.Fail(err) {
			n++
		}
	}
	return n
}

// Clear fails the futures registered with failOnClear and keeps the rest
// pending, per each waiter's preference recorded at subscribe time.
func (l *List[T]) Clear(err error) int {
	l.mu.Lock()
	kept := l.entries[:0]
	var failed []listEntry[T]
	for _, e := range l.entries {
		if e.failOnClear {
			failed = append(failed, e)
		} else {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	l.mu.Unlock()

	n := 0
	for _, e := range failed {
		if e.fut.Fail(err) {
			n++
		}
	}
	return n
}

// ResolveNext resolves and removes the oldest pending future. It reports
// whether a future was resolved.
func (l *List[T]) ResolveNext(v T) bool {
	for {
		l.mu.Lock()
		if len(l.entries) == 0 {
			l.mu.Unlock()
			return false
		}
		e := l.entries[0]
		l.entries = l.entries[1:]
		l.mu.Unlock()
		if e.fut.Resolve(v) {
			return true
		}
	}
}

// Len returns the number of pending futures.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
