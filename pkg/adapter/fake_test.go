package adapter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type fakeConn struct {
	value  int64
	closed bool
}

type fakeOptions struct {
	Table string
}

// fakeDriver mimics the single-counter store: Set increments by one.
type fakeDriver struct {
	mu sync.Mutex

	connects   atomic.Int32
	disposes   atomic.Int32
	lastOpts   fakeOptions
	lastValues []int64

	connectErr error
	initErr    error
	getErr     error
	setErr     error
	disposeErr error
	pingErr    error

	connectDelay time.Duration
	connectGate  chan struct{}
	nilHandle    bool
}

func (d *fakeDriver) funcs() Funcs[*fakeConn, fakeOptions] {
	return Funcs[*fakeConn, fakeOptions]{
		ConnectFn: d.connect,
		InitFn: func(_ context.Context, c *fakeConn) error {
			return d.initErr
		},
		GetFn: func(_ context.Context, c *fakeConn) (int64, error) {
			if d.getErr != nil {
				return 0, d.getErr
			}
			d.mu.Lock()
			defer d.mu.Unlock()
			return c.value, nil
		},
		SetFn: func(_ context.Context, c *fakeConn, v int64) error {
			if d.setErr != nil {
				return d.setErr
			}
			d.mu.Lock()
			defer d.mu.Unlock()
			d.lastValues = append(d.lastValues, v)
			c.value++
			return nil
		},
		DisposeFn: func(_ context.Context, c *fakeConn) error {
			d.disposes.Add(1)
			d.mu.Lock()
			c.closed = true
			d.mu.Unlock()
			return d.disposeErr
		},
		PingFn: func(_ context.Context, c *fakeConn) error {
			return d.pingErr
		},
	}
}

func (d *fakeDriver) connect(ctx context.Context, opts fakeOptions) (*fakeConn, error) {
	d.connects.Add(1)
	if d.connectGate != nil {
		select {
		case <-d.connectGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.connectDelay > 0 {
		time.Sleep(d.connectDelay)
	}
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	d.mu.Lock()
	d.lastOpts = opts
	d.mu.Unlock()
	if d.nilHandle {
		return nil, nil
	}
	return &fakeConn{}, nil
}

func newFakeAdapter(d *fakeDriver, opts ...Option) *Adapter[*fakeConn, fakeOptions] {
	return New[*fakeConn, fakeOptions](d.funcs(), fakeOptions{Table: "values"}, opts...)
}

type recordingObserver struct {
	mu         sync.Mutex
	operations []string
	failures   int
	connects   int
	statuses   []Status
}

func (o *recordingObserver) ObserveOperation(_ string, operation string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, operation)
	if err != nil {
		o.failures++
	}
}

func (o *recordingObserver) ObserveConnect(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connects++
}

func (o *recordingObserver) ObserveStatus(_ string, status Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}
