package health

import (
	"context"
	"errors"
	"time"

	"github.com/nimburion/lazycounter/pkg/adapter"
)

const defaultCheckTimeout = 5 * time.Second

// Checkable is implemented by components that support health checks,
// adapter.Counter among them.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

type statusReporter interface {
	Status() adapter.Status
}

// AdapterChecker checks a counter adapter. The adapter's own HealthCheck
// never opens a connection, so a probe on an idle adapter stays cheap.
type AdapterChecker struct {
	name    string
	adapter Checkable
	timeout time.Duration
}

// NewAdapterChecker creates a new health checker for an adapter.
// A zero timeout means 5s.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &AdapterChecker{
		name:    name,
		adapter: adapter,
		timeout: timeout,
	}
}

// Check performs the health check on the adapter. A disposed adapter is
// unhealthy; an adapter that has not connected yet is healthy.
func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.adapter.HealthCheck(checkCtx)
	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}

	if reporter, ok := c.adapter.(statusReporter); ok {
		status := reporter.Status()
		result.Metadata = map[string]any{"adapter_status": status.String()}
		if err == nil && status == adapter.StatusNotConnected {
			result.Message = "not connected yet"
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, adapter.ErrDisposed):
		result.Status = StatusUnhealthy
		result.Message = "adapter disposed"
		result.Error = err.Error()
	default:
		result.Status = StatusUnhealthy
		result.Message = ""
		result.Error = err.Error()
	}
	return result
}

// Name returns the name of the health check
func (c *AdapterChecker) Name() string {
	return c.name
}

// PingChecker always reports healthy. It backs the liveness probe.
type PingChecker struct {
	name string
}

// NewPingChecker creates a new ping checker
func NewPingChecker(name string) *PingChecker {
	return &PingChecker{name: name}
}

// Check always returns healthy status
func (c *PingChecker) Check(context.Context) CheckResult {
	return CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "Service is alive",
		Timestamp: time.Now(),
	}
}

// Name returns the name of the health check
func (c *PingChecker) Name() string {
	return c.name
}
