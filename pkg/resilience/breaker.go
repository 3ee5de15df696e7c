// Package resilience protects a counter store from being hammered while it is down.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nimburion/lazycounter/pkg/adapter"
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed lets every call through
	StateClosed State = iota
	// StateOpen rejects calls until the open timeout elapses
	StateOpen
	// StateHalfOpen lets a single probe call through
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("store circuit breaker is open")

// Breaker counts consecutive store failures and opens after maxFailures of them.
// Errors describing the caller's request rather than the store do not count,
// see Trips. A store reporting adapter.ErrThrottled opens the breaker at once.
type Breaker struct {
	maxFailures int
	openTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker. maxFailures below 1 is treated as 1.
func NewBreaker(maxFailures int, openTimeout time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{
		maxFailures: maxFailures,
		openTimeout: openTimeout,
		now:         time.Now,
	}
}

// Trips reports whether err is a store failure the breaker should count.
func Trips(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, adapter.ErrNotInitialized),
		errors.Is(err, adapter.ErrDisposed),
		errors.Is(err, context.Canceled),
		errors.Is(err, ErrOpen):
		return false
	default:
		return true
	}
}

// Do runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if !b.acquire() {
		return ErrOpen
	}
	err := fn()
	b.record(err)
	return err
}

// Allow reports whether a call would currently be let through, without
// claiming the half-open probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state != StateOpen || b.now().Sub(b.openedAt) >= b.openTimeout
}

func (b *Breaker) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.openTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	default:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
		if Trips(err) {
			b.open()
			return
		}
		b.state = StateClosed
		b.failures = 0
		return
	}

	if !Trips(err) {
		b.failures = 0
		return
	}
	if errors.Is(err, adapter.ErrThrottled) {
		b.open()
		return
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.open()
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = 0
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count while closed.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probing = false
}
