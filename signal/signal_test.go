package signal_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/loomworks/loom/signal"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := signal.NewFuture[int]()

	if !f.Resolve(42) {
		t.Fatal("first Resolve returned false")
	}
	if f.Resolve(99) {
		t.Fatal("second Resolve returned true")
	}
	if f.Fail(errors.New("late")) {
		t.Fatal("Fail after Resolve returned true")
	}

	v, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if v != 42 {
		t.Errorf("value = %d, want 42", v)
	}
}

func TestFuture_AwaitBlocksUntilResolve(t *testing.T) {
	f := signal.NewFuture[string]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Resolve("done")
	}()

	v, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if v != "done" {
		t.Errorf("value = %q, want %q", v, "done")
	}
}

func TestFuture_AwaitContextTimeout(t *testing.T) {
	f := signal.NewFuture[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}

	// The timeout must not have resolved the future for other waiters.
	if f.Resolved() {
		t.Fatal("future resolved by a waiter timeout")
	}
	if !f.Resolve(7) {
		t.Fatal("Resolve after waiter timeout failed")
	}
}

func TestFuture_Fail(t *testing.T) {
	f := signal.NewFuture[int]()
	want := errors.New("boom")
	f.Fail(want)

	_, err := f.Await(context.Background())
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestList_ResolveAllDrains(t *testing.T) {
	var l signal.List[int]

	futs := make([]*signal.Future[int], 3)
	for i := range futs {
		futs[i] = signal.NewFuture[int]()
		l.Add(futs[i])
	}

	if n := l.ResolveAll(5); n != 3 {
		t.Fatalf("ResolveAll = %d, want 3", n)
	}
	if l.Len() != 0 {
		t.Fatalf("Len = %d after drain, want 0", l.Len())
	}
	for i, f := range futs {
		v, err := f.Await(context.Background())
		if err != nil || v != 5 {
			t.Errorf("futs[%d] = (%d, %v), want (5, nil)", i, v, err)
		}
	}

	// A second broadcast resolves nothing.
	if n := l.ResolveAll(6); n != 0 {
		t.Fatalf("second ResolveAll = %d, want 0", n)
	}
}

func TestList_ClearHonoursPolicy(t *testing.T) {
	var l signal.List[int]
	cleared := errors.New("cleared")

	keep := signal.NewFuture[int]()
	drop := signal.NewFuture[int]()
	l.AddWithClearPolicy(keep, false)
	l.AddWithClearPolicy(drop, true)

	if n := l.Clear(cleared); n != 1 {
		t.Fatalf("Clear = %d, want 1", n)
	}

	if _, err := drop.Await(context.Background()); !errors.Is(err, cleared) {
		t.Errorf("drop err = %v, want %v", err, cleared)
	}
	if keep.Resolved() {
		t.Error("keep was resolved by Clear")
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d after Clear, want 1", l.Len())
	}

	// The kept waiter still resolves on a later write.
	l.ResolveAll(9)
	if v, err := keep.Await(context.Background()); err != nil || v != 9 {
		t.Errorf("keep = (%d, %v), want (9, nil)", v, err)
	}
}

func TestList_ConcurrentAddAndResolve(t *testing.T) {
	var l signal.List[int]
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f := signal.NewFuture[int]()
			l.Add(f)
		}()
	}
	wg.Wait()

	if n := l.ResolveAll(1); n != 50 {
		t.Fatalf("ResolveAll = %d, want 50", n)
	}
}
