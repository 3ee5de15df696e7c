package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const (
	opInit = iota
	opGet
	opSet
	opDispose
)

// Property: Lifecycle Model
// For any sequence of init/get/set/dispose calls, the adapter connects at most
// once, never connects after dispose, closes the connection at most once, and
// rejects everything after the first dispose with ErrDisposed.
func TestProperty_LifecycleModel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genOps := gen.SliceOf(gen.IntRange(opInit, opDispose))

	properties.Property("adapter follows the lifecycle model", prop.ForAll(
		func(ops []int) bool {
			ctx := context.Background()
			d := &fakeDriver{}
			a := newFakeAdapter(d)

			disposed := false
			connected := false
			var expected int64

			for i, op := range ops {
				var err error
				switch op {
				case opInit:
					err = a.Init(ctx)
				case opGet:
					var v int64
					v, err = a.Get(ctx)
					if err == nil && v != expected {
						t.Logf("step %d: Get() = %d, want %d", i, v, expected)
						return false
					}
				case opSet:
					err = a.Set(ctx, int64(i*7))
					if err == nil {
						expected++
					}
				case opDispose:
					err = a.Dispose(ctx)
				}

				if disposed {
					if !errors.Is(err, ErrDisposed) {
						t.Logf("step %d: expected ErrDisposed, got %v", i, err)
						return false
					}
					continue
				}
				if err != nil {
					t.Logf("step %d: unexpected error %v", i, err)
					return false
				}
				if op == opDispose {
					disposed = true
				} else {
					connected = true
				}
			}

			wantConnects := int32(0)
			if connected {
				wantConnects = 1
			}
			if d.connects.Load() != wantConnects {
				t.Logf("connects = %d, want %d", d.connects.Load(), wantConnects)
				return false
			}
			wantDisposes := int32(0)
			if connected && disposed {
				wantDisposes = 1
			}
			if d.disposes.Load() != wantDisposes {
				t.Logf("disposes = %d, want %d", d.disposes.Load(), wantDisposes)
				return false
			}
			return true
		},
		genOps,
	))

	properties.TestingRun(t)
}

// Property: Status Monotonicity
// Observed statuses only ever move forward.
func TestProperty_StatusMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("status never moves backwards", prop.ForAll(
		func(ops []int) bool {
			ctx := context.Background()
			a := newFakeAdapter(&fakeDriver{})
			last := a.Status()
			for _, op := range ops {
				switch op {
				case opInit:
					_ = a.Init(ctx)
				case opGet:
					_, _ = a.Get(ctx)
				case opSet:
					_ = a.Set(ctx, 1)
				case opDispose:
					_ = a.Dispose(ctx)
				}
				current := a.Status()
				if current < last {
					return false
				}
				last = current
			}
			return true
		},
		gen.SliceOf(gen.IntRange(opInit, opDispose)),
	))

	properties.TestingRun(t)
}
