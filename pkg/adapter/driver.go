package adapter

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by a driver's Get when the counter record
// does not exist yet, i.e. Init was never run against the resource.
var ErrNotInitialized = errors.New("counter is not initialized")

// ErrThrottled marks a driver error caused by the backing store rejecting
// requests over its throughput limits. Drivers wrap it together with the
// store's own error, so both match with errors.Is / errors.As.
var ErrThrottled = errors.New("store is throttling requests")

// Driver is the capability contract a backing store implements so it can be
// wrapped by an Adapter. C is the connection handle type, O the options type
// handed to Connect.
//
// The Adapter guarantees that Connect succeeds at most once per adapter and
// that Dispose is called at most once, only with a handle Connect returned.
type Driver[C any, O any] interface {
	// Connect opens the backing resource.
	Connect(ctx context.Context, options O) (C, error)
	// Init ensures the counter record exists, seeding it with 0 when created.
	// Calling it again against an initialized resource must not duplicate the record.
	Init(ctx context.Context, conn C) error
	// Get reads the stored counter value.
	Get(ctx context.Context, conn C) (int64, error)
	// Set applies a write to the counter.
	Set(ctx context.Context, conn C, value int64) error
	// Dispose releases the backing resource.
	Dispose(ctx context.Context, conn C) error
}

// Pinger is implemented by drivers that can verify a live connection.
// Adapter.HealthCheck uses it when the driver provides it.
type Pinger[C any] interface {
	Ping(ctx context.Context, conn C) error
}

// Funcs assembles a Driver from plain functions.
//
//	drv := adapter.Funcs[*sql.DB, Options]{ConnectFn: connect, InitFn: initTable, ...}
//	counter := adapter.New[*sql.DB, Options](drv, opts)
type Funcs[C any, O any] struct {
	ConnectFn func(ctx context.Context, options O) (C, error)
	InitFn    func(ctx context.Context, conn C) error
	GetFn     func(ctx context.Context, conn C) (int64, error)
	SetFn     func(ctx context.Context, conn C, value int64) error
	DisposeFn func(ctx context.Context, conn C) error
	PingFn    func(ctx context.Context, conn C) error
}

// Connect calls ConnectFn.
func (f Funcs[C, O]) Connect(ctx context.Context, options O) (C, error) {
	if f.ConnectFn == nil {
		var zero C
		return zero, missingPrimitive("connect")
	}
	return f.ConnectFn(ctx, options)
}

// Init calls InitFn.
func (f Funcs[C, O]) Init(ctx context.Context, conn C) error {
	if f.InitFn == nil {
		return missingPrimitive("init")
	}
	return f.InitFn(ctx, conn)
}

// Get calls GetFn.
func (f Funcs[C, O]) Get(ctx context.Context, conn C) (int64, error) {
	if f.GetFn == nil {
		return 0, missingPrimitive("get")
	}
	return f.GetFn(ctx, conn)
}

// Set calls SetFn.
func (f Funcs[C, O]) Set(ctx context.Context, conn C, value int64) error {
	if f.SetFn == nil {
		return missingPrimitive("set")
	}
	return f.SetFn(ctx, conn, value)
}

// Dispose calls DisposeFn. A nil DisposeFn means there is nothing to release.
func (f Funcs[C, O]) Dispose(ctx context.Context, conn C) error {
	if f.DisposeFn == nil {
		return nil
	}
	return f.DisposeFn(ctx, conn)
}

// Ping calls PingFn. A nil PingFn reports the connection as healthy.
func (f Funcs[C, O]) Ping(ctx context.Context, conn C) error {
	if f.PingFn == nil {
		return nil
	}
	return f.PingFn(ctx, conn)
}

func missingPrimitive(name string) error {
	return fmt.Errorf("driver does not implement %s", name)
}
