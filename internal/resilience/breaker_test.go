package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errTest = errors.New("service unavailable")

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errTest })
	}

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestTransitionsToHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	// Trip the breaker
	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errTest })
	}

	// Still open
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	// Advance past timeout
	now = now.Add(2 * time.Second)

	// Half-open allows a single probe
	called := false
	err = b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error in half-open, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called in half-open")
	}

	// Success should close the circuit
	b.mu.Lock()
	if b.state != stateClosed {
		t.Fatalf("expected state closed after half-open success, got %d", b.state)
	}
	b.mu.Unlock()
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	// Trip the breaker
	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errTest })
	}

	// Advance past timeout to reach half-open
	now = now.Add(2 * time.Second)

	// Failed probe reopens
	_ = b.Execute(func() error { return errTest })

	b.mu.Lock()
	if b.state != stateOpen {
		t.Fatalf("expected state open after half-open failure, got %d", b.state)
	}
	b.mu.Unlock()

	// Calls should be rejected
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)

	// Two failures
	_ = b.Execute(func() error { return errTest })
	_ = b.Execute(func() error { return errTest })

	// One success resets
	_ = b.Execute(func() error { return nil })

	// Two more failures should not trip (only 2, need 3)
	_ = b.Execute(func() error { return errTest })
	_ = b.Execute(func() error { return errTest })

	// Still closed
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestHalfOpenAllowsSingleProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errTest })
	now = now.Add(2 * time.Second)

	release := make(chan struct{})
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- b.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected concurrent probe to be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if got := b.State(); got != "closed" {
		t.Fatalf("expected closed after successful probe, got %s", got)
	}
}

func TestCanceledIsNotAFailure(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	wrapped := fmt.Errorf("invoke: %w", context.Canceled)

	for range 3 {
		if err := b.Execute(func() error { return wrapped }); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected fn error returned, got %v", err)
		}
	}
	if got := b.State(); got != "closed" {
		t.Fatalf("caller cancellation must not open the circuit, got %s", got)
	}

	_ = b.Execute(func() error { return context.DeadlineExceeded })
	if got := b.State(); got != "open" {
		t.Fatalf("deadline exceeded should count as failure, got %s", got)
	}
}

func TestSetIsolatesKeys(t *testing.T) {
	s := NewSet(1, time.Minute)

	_ = s.For("http://a.local").Execute(func() error { return errTest })

	if err := s.For("http://a.local").Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected a to be open, got %v", err)
	}
	if err := s.For("http://b.local").Execute(func() error { return nil }); err != nil {
		t.Fatalf("b must be unaffected by a, got %v", err)
	}
	if s.For("http://a.local") != s.For("http://a.local") {
		t.Error("expected same breaker for same key")
	}

	states := s.States()
	if states["http://a.local"] != "open" || states["http://b.local"] != "closed" {
		t.Errorf("unexpected states: %v", states)
	}
}
