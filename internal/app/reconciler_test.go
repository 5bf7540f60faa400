package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestReconciler_ResolvesWhenWindowGone(t *testing.T) {
	var exists atomic.Bool
	var resolves atomic.Int32
	r := NewReconciler(ReconcilerConfig{Interval: time.Hour, Logger: quietLogger()},
		exists.Load,
		func() error {
			resolves.Add(1)
			if resolves.Load() < 2 {
				return errors.New("not yet")
			}
			exists.Store(true)
			return nil
		})

	exists.Store(true)
	r.reconcile()
	if resolves.Load() != 0 {
		t.Fatal("existing window must not be re-resolved")
	}

	exists.Store(false)
	r.reconcile()
	r.reconcile()
	if resolves.Load() != 2 {
		t.Fatalf("resolves = %d, want 2", resolves.Load())
	}
	r.reconcile()
	if resolves.Load() != 2 {
		t.Fatal("resolved window must not be re-resolved again")
	}
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	r := NewReconciler(ReconcilerConfig{Interval: 10 * time.Millisecond, Logger: quietLogger()},
		func() bool { calls.Add(1); return true },
		func() error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if calls.Load() == 0 {
		t.Fatal("expected at least one reconcile pass")
	}
}

func TestReconciler_PanicRecovered(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{Logger: quietLogger()},
		func() bool { panic("boom") },
		func() error { return nil })
	r.reconcile()
}
