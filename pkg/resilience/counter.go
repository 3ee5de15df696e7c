package resilience

import (
	"context"

	"github.com/nimburion/lazycounter/pkg/adapter"
)

type identity interface {
	ID() string
	Name() string
	Status() adapter.Status
}

// Counter guards Init, Get and Set of a wrapped counter with a Breaker.
// Dispose always reaches the wrapped counter.
type Counter struct {
	next    adapter.Counter
	breaker *Breaker
}

// Guard wraps next with breaker.
func Guard(next adapter.Counter, breaker *Breaker) *Counter {
	return &Counter{next: next, breaker: breaker}
}

// Init initialises the wrapped counter.
func (c *Counter) Init(ctx context.Context) error {
	return c.breaker.Do(func() error { return c.next.Init(ctx) })
}

// Get reads the wrapped counter.
func (c *Counter) Get(ctx context.Context) (int64, error) {
	var value int64
	err := c.breaker.Do(func() error {
		var err error
		value, err = c.next.Get(ctx)
		return err
	})
	return value, err
}

// Set writes the wrapped counter.
func (c *Counter) Set(ctx context.Context, value int64) error {
	return c.breaker.Do(func() error { return c.next.Set(ctx, value) })
}

// Dispose disposes the wrapped counter.
func (c *Counter) Dispose(ctx context.Context) error {
	return c.next.Dispose(ctx)
}

// HealthCheck reports ErrOpen while the breaker rejects calls and otherwise
// delegates. Health probes are not recorded.
func (c *Counter) HealthCheck(ctx context.Context) error {
	if !c.breaker.Allow() {
		return ErrOpen
	}
	return c.next.HealthCheck(ctx)
}

// Breaker returns the breaker guarding the counter.
func (c *Counter) Breaker() *Breaker {
	return c.breaker
}

// ID returns the wrapped counter's ID, if it has one.
func (c *Counter) ID() string {
	if id, ok := c.next.(identity); ok {
		return id.ID()
	}
	return ""
}

// Name returns the wrapped counter's name, if it has one.
func (c *Counter) Name() string {
	if id, ok := c.next.(identity); ok {
		return id.Name()
	}
	return ""
}

// Status returns the wrapped counter's status.
func (c *Counter) Status() adapter.Status {
	if id, ok := c.next.(identity); ok {
		return id.Status()
	}
	return adapter.StatusNotConnected
}
