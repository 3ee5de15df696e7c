package adapter

import (
	"time"

	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

// Observer receives adapter lifecycle and operation events.
// metrics.AdapterMetrics is the Prometheus implementation.
type Observer interface {
	ObserveOperation(store, operation string, duration time.Duration, err error)
	ObserveConnect(store string)
	ObserveStatus(store string, status Status)
}

// Option configures an Adapter.
type Option func(*settings)

// DefaultConnectTimeout bounds a shared connect attempt.
const DefaultConnectTimeout = 30 * time.Second

type settings struct {
	name           string
	logger         logger.Logger
	observer       Observer
	connectTimeout time.Duration
}

func defaultSettings() settings {
	return settings{
		name:           "counter",
		logger:         logger.NewNop(),
		observer:       nopObserver{},
		connectTimeout: DefaultConnectTimeout,
	}
}

// WithName sets the store label used in logs, metrics and spans.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithObserver sets the observer notified about operations and state changes.
func WithObserver(observer Observer) Option {
	return func(s *settings) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithConnectTimeout bounds the connect attempt shared by concurrent first
// use callers. Zero or negative leaves it bounded only by the driver.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.connectTimeout = d
	}
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, time.Duration, error) {}
func (nopObserver) ObserveConnect(string)                                 {}
func (nopObserver) ObserveStatus(string, Status)                          {}
