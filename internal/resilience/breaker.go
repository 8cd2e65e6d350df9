// Package resilience provides circuit breaking for outbound agent calls.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker opens after maxFailures consecutive failures and rejects calls
// until timeout has elapsed. It then lets a single probe through; the probe
// result closes or reopens the circuit.
type Breaker struct {
	mu          sync.Mutex
	state       state
	failures    int
	probing     bool
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time // for testing
}

// NewBreaker creates a circuit breaker.
func NewBreaker(maxFailures int, timeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open. A context.Canceled error from
// fn means the caller gave up and is not counted against the target.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case err == nil:
		b.onSuccess()
	case errors.Is(err, context.Canceled):
		b.probing = false
	default:
		b.onFailure()
	}
	return err
}

// State reports "closed", "open" or "half-open".
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.timeout {
			return false
		}
		b.state = stateHalfOpen
		fallthrough
	case stateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	b.probing = false
	if b.state == stateHalfOpen || b.failures >= b.maxFailures {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	b.probing = false
	b.state = stateClosed
}

// Set hands out one Breaker per key, created on first use.
type Set struct {
	mu          sync.Mutex
	breakers    map[string]*Breaker
	maxFailures int
	timeout     time.Duration
	now         func() time.Time
}

// NewSet creates a Set whose breakers share the given settings.
func NewSet(maxFailures int, timeout time.Duration) *Set {
	return &Set{
		breakers:    make(map[string]*Breaker),
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
}

// For returns the breaker for key.
func (s *Set) For(key string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[key]
	if !ok {
		b = NewBreaker(s.maxFailures, s.timeout)
		b.now = s.now
		s.breakers[key] = b
	}
	return b
}

// States returns the state of every breaker created so far, by key.
func (s *Set) States() map[string]string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.breakers))
	bs := make([]*Breaker, 0, len(s.breakers))
	for k, b := range s.breakers {
		keys = append(keys, k)
		bs = append(bs, b)
	}
	s.mu.Unlock()

	out := make(map[string]string, len(keys))
	for i, k := range keys {
		out[k] = bs[i].State()
	}
	return out
}
