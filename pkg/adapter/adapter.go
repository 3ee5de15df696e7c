// Package adapter wraps a store driver behind a lazily connected, dispose-once
// counter interface.
//
// An Adapter does not touch the backing store when it is created. The first
// Init, Get or Set opens the connection through the driver; every later call
// reuses it. Dispose closes the connection (if one was ever opened) and moves
// the adapter into a terminal state in which every operation, including a
// second Dispose, fails with ErrDisposed.
package adapter

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/observability/tracing"
)

// Status is the lifecycle state of an Adapter.
type Status int32

const (
	// StatusNotConnected is the initial state: no connection has been opened.
	StatusNotConnected Status = iota
	// StatusConnected means the driver connection is open and reused.
	StatusConnected
	// StatusDisposed is terminal.
	StatusDisposed
)

// String returns the lowercase state name.
func (s Status) String() string {
	switch s {
	case StatusNotConnected:
		return "not_connected"
	case StatusConnected:
		return "connected"
	case StatusDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

var (
	// ErrDisposed is returned by every operation invoked after Dispose,
	// and by a second Dispose. The message text is part of the contract.
	ErrDisposed = errors.New("Adapter is already disposed")

	// ErrBadConnection reports a driver whose Connect succeeded without
	// returning a usable handle.
	ErrBadConnection = errors.New("Bad connection")
)

// Counter is the uniform surface every wrapped store exposes.
type Counter interface {
	Init(ctx context.Context) error
	Get(ctx context.Context) (int64, error)
	Set(ctx context.Context, value int64) error
	Dispose(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

const connectKey = "connect"

// Adapter enforces connect-on-demand and the dispose guard over a Driver.
// It is safe for concurrent use; the mutex is never held across a driver call.
type Adapter[C any, O any] struct {
	driver  Driver[C, O]
	options O

	id             string
	name           string
	logger         logger.Logger
	observer       Observer
	connectTimeout time.Duration

	mu     sync.Mutex
	status Status
	conn   *C

	connecting singleflight.Group
}

// New creates an adapter over driver. It does not connect.
func New[C any, O any](driver Driver[C, O], options O, opts ...Option) *Adapter[C, O] {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	id := uuid.NewString()
	a := &Adapter[C, O]{
		driver:         driver,
		options:        options,
		id:             id,
		name:           s.name,
		logger:         s.logger.With("adapter_id", id, "store", s.name),
		observer:       s.observer,
		status:         StatusNotConnected,
		connectTimeout: s.connectTimeout,
	}
	a.observer.ObserveStatus(a.name, StatusNotConnected)
	return a
}

// ID returns the identifier assigned to this adapter instance.
func (a *Adapter[C, O]) ID() string {
	return a.id
}

// Name returns the store label.
func (a *Adapter[C, O]) Name() string {
	return a.name
}

// Status returns the current lifecycle state.
func (a *Adapter[C, O]) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Init connects if needed and lets the driver create and seed the counter record.
func (a *Adapter[C, O]) Init(ctx context.Context) error {
	return a.run(ctx, tracing.SpanOperationInit, func(ctx context.Context, conn C) error {
		return a.driver.Init(ctx, conn)
	})
}

// Get connects if needed and returns the stored counter value.
func (a *Adapter[C, O]) Get(ctx context.Context) (int64, error) {
	var value int64
	err := a.run(ctx, tracing.SpanOperationGet, func(ctx context.Context, conn C) error {
		v, err := a.driver.Get(ctx, conn)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Set connects if needed and hands value to the driver. The value is not
// validated here; what a write means is up to the driver.
func (a *Adapter[C, O]) Set(ctx context.Context, value int64) error {
	return a.run(ctx, tracing.SpanOperationSet, func(ctx context.Context, conn C) error {
		return a.driver.Set(ctx, conn, value)
	})
}

// Dispose moves the adapter to StatusDisposed and, if a connection was ever
// opened, closes it through the driver. It returns ErrDisposed when the
// adapter was already disposed. The state change happens before the driver
// is called, so a failing driver Dispose still leaves the adapter disposed.
func (a *Adapter[C, O]) Dispose(ctx context.Context) (err error) {
	ctx, span := tracing.StartCounterSpan(ctx, tracing.SpanOperationDispose,
		tracing.WithStore(a.name), tracing.WithAdapterID(a.id))
	start := time.Now()
	defer func() {
		a.finish(span, tracing.SpanOperationDispose, start, err)
	}()

	a.mu.Lock()
	if a.status == StatusDisposed {
		a.mu.Unlock()
		return ErrDisposed
	}
	a.status = StatusDisposed
	conn := a.conn
	a.conn = nil
	a.mu.Unlock()

	a.observer.ObserveStatus(a.name, StatusDisposed)
	if conn == nil {
		a.logger.Debug("adapter disposed before connecting")
		return nil
	}

	a.logger.Debug("disposing adapter connection")
	return a.driver.Dispose(ctx, *conn)
}

// HealthCheck reports ErrDisposed after disposal and nil before the first
// connection; a health probe never opens a connection. Once connected it
// delegates to the driver when the driver implements Pinger.
func (a *Adapter[C, O]) HealthCheck(ctx context.Context) error {
	conn, ok, err := a.current()
	if err != nil || !ok {
		return err
	}
	if pinger, isPinger := any(a.driver).(Pinger[C]); isPinger {
		return pinger.Ping(ctx, conn)
	}
	return nil
}

func (a *Adapter[C, O]) run(ctx context.Context, op tracing.SpanOperation, fn func(context.Context, C) error) (err error) {
	ctx, span := tracing.StartCounterSpan(ctx, op, tracing.WithStore(a.name), tracing.WithAdapterID(a.id))
	start := time.Now()
	defer func() {
		a.finish(span, op, start, err)
	}()

	if err := a.guard(); err != nil {
		return err
	}
	conn, err := a.connectOnDemand(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, conn)
}

func (a *Adapter[C, O]) finish(span trace.Span, op tracing.SpanOperation, start time.Time, err error) {
	a.observer.ObserveOperation(a.name, op.Name(), time.Since(start), err)
	tracing.EndSpan(span, err)
}

func (a *Adapter[C, O]) guard() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusDisposed {
		return ErrDisposed
	}
	return nil
}

// current returns the live connection, ok=false while not connected, or
// ErrDisposed once disposed.
func (a *Adapter[C, O]) current() (C, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var zero C
	switch a.status {
	case StatusDisposed:
		return zero, false, ErrDisposed
	case StatusConnected:
		if a.conn == nil {
			return zero, false, ErrBadConnection
		}
		return *a.conn, true, nil
	default:
		return zero, false, nil
	}
}

// connectOnDemand returns the adapter connection, opening it on first use.
// Concurrent first-use callers share a single in-flight Connect. The shared
// attempt is detached from any one caller's cancellation and bounded by the
// connect timeout; each caller stops waiting when its own ctx is done.
func (a *Adapter[C, O]) connectOnDemand(ctx context.Context) (C, error) {
	var zero C
	if conn, ok, err := a.current(); err != nil || ok {
		return conn, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	flight := a.connecting.DoChan(connectKey, func() (any, error) {
		// a previous flight may have finished between current() and DoChan
		if conn, ok, err := a.current(); err != nil || ok {
			return conn, err
		}

		connectCtx, cancel := a.connectContext(ctx)
		defer cancel()

		conn, err := a.driver.Connect(connectCtx, a.options)
		if err != nil {
			return nil, err
		}
		if isNilHandle(conn) {
			return nil, ErrBadConnection
		}

		a.mu.Lock()
		if a.status == StatusDisposed {
			a.mu.Unlock()
			// Dispose ran while Connect was in flight and found nothing to close.
			if derr := a.driver.Dispose(context.WithoutCancel(ctx), conn); derr != nil {
				return nil, errors.Join(ErrDisposed, derr)
			}
			return nil, ErrDisposed
		}
		a.conn = &conn
		a.status = StatusConnected
		a.mu.Unlock()

		a.observer.ObserveConnect(a.name)
		a.observer.ObserveStatus(a.name, StatusConnected)
		a.logger.Debug("adapter connected")
		return conn, nil
	})

	select {
	case res := <-flight:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(C), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// connectContext keeps the values of ctx (trace span, request ID) but not its
// cancellation.
func (a *Adapter[C, O]) connectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if a.connectTimeout <= 0 {
		return detached, func() {}
	}
	return context.WithTimeout(detached, a.connectTimeout)
}

func isNilHandle(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
