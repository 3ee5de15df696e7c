package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

type mockLogger struct{}

func (m *mockLogger) Debug(string, ...any)                      {}
func (m *mockLogger) Info(string, ...any)                       {}
func (m *mockLogger) Warn(string, ...any)                       {}
func (m *mockLogger) Error(string, ...any)                      {}
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

// memoryCollection emulates the two update shapes the driver sends.
type memoryCollection struct {
	exists  bool
	value   int64
	updates []bson.M
	err     error
}

func (c *memoryCollection) UpdateOne(_ context.Context, _, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	u := update.(bson.M)
	c.updates = append(c.updates, u)

	if _, ok := u["$setOnInsert"]; ok {
		upsert := len(opts) > 0 && opts[0].Upsert != nil && *opts[0].Upsert
		if !c.exists && upsert {
			c.exists = true
			c.value = 0
			return &mongo.UpdateResult{UpsertedCount: 1}, nil
		}
		return &mongo.UpdateResult{MatchedCount: 1}, nil
	}
	if inc, ok := u["$inc"].(bson.M); ok {
		if !c.exists {
			return &mongo.UpdateResult{}, nil
		}
		c.value += inc["value"].(int64)
		return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}
	return nil, errors.New("unexpected update")
}

func (c *memoryCollection) FindOne(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	if c.err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, c.err, nil)
	}
	if !c.exists {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(bson.M{"_id": counterID, "value": c.value}, nil, nil)
}

func newMemoryAdapter(coll *memoryCollection) *Adapter {
	drv := adapter.Funcs[*Conn, Config]{
		ConnectFn: func(context.Context, Config) (*Conn, error) {
			return &Conn{collection: coll, timeout: time.Second}, nil
		},
		InitFn:    NewDriver(&mockLogger{}).Init,
		GetFn:     NewDriver(&mockLogger{}).Get,
		SetFn:     NewDriver(&mockLogger{}).Set,
		DisposeFn: NewDriver(&mockLogger{}).Dispose,
	}
	return adapter.New[*Conn, Config](drv, Config{})
}

func TestNewMongoDBAdapter_Validation(t *testing.T) {
	_, err := NewMongoDBAdapter(Config{}, &mockLogger{})
	if err == nil {
		t.Fatal("expected error for empty URL and database")
	}

	_, err = NewMongoDBAdapter(Config{URL: "mongodb://localhost:27017"}, &mockLogger{})
	if err == nil {
		t.Fatal("expected error for empty database")
	}

	counter, err := NewMongoDBAdapter(Config{URL: "mongodb://localhost:27017", Database: "app"}, &mockLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter.Status() != adapter.StatusNotConnected {
		t.Fatalf("expected not_connected, got %s", counter.Status())
	}
}

func TestMongoDBCounter_Scenario(t *testing.T) {
	ctx := context.Background()
	coll := &memoryCollection{}
	counter := newMemoryAdapter(coll)

	if err := counter.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := counter.Init(ctx); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if v, err := counter.Get(ctx); err != nil || v != 0 {
		t.Fatalf("Get() = %d, %v; want 0, nil", v, err)
	}
	if err := counter.Set(ctx, 50); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, err := counter.Get(ctx); err != nil || v != 1 {
		t.Fatalf("Get() = %d, %v; want 1, nil", v, err)
	}
	if err := counter.Dispose(ctx); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	if err := counter.Dispose(ctx); !errors.Is(err, adapter.ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}

func TestMongoDBCounter_NotInitialized(t *testing.T) {
	ctx := context.Background()
	counter := newMemoryAdapter(&memoryCollection{})

	if _, err := counter.Get(ctx); !errors.Is(err, adapter.ErrNotInitialized) {
		t.Fatalf("Get() expected ErrNotInitialized, got %v", err)
	}
	if err := counter.Set(ctx, 1); !errors.Is(err, adapter.ErrNotInitialized) {
		t.Fatalf("Set() expected ErrNotInitialized, got %v", err)
	}
}

func TestMongoDBCounter_PropagatesErrors(t *testing.T) {
	boom := errors.New("server selection timeout")
	counter := newMemoryAdapter(&memoryCollection{err: boom})

	if err := counter.Init(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestWithOperationTimeout_UsesTimeoutWhenNoDeadline(t *testing.T) {
	c := &Conn{timeout: 2 * time.Second}

	ctx, cancel := c.withOperationTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected deadline from operation timeout")
	}
	if remaining := time.Until(deadline); remaining <= 0 || remaining > 2*time.Second {
		t.Fatalf("unexpected remaining timeout: %v", remaining)
	}
}

func TestWithOperationTimeout_PreservesCallerDeadline(t *testing.T) {
	c := &Conn{timeout: 2 * time.Second}
	parentCtx, parentCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer parentCancel()

	ctx, cancel := c.withOperationTimeout(parentCtx)
	defer cancel()

	parentDeadline, _ := parentCtx.Deadline()
	gotDeadline, _ := ctx.Deadline()
	if !gotDeadline.Equal(parentDeadline) {
		t.Fatalf("expected caller deadline to be preserved, got %v want %v", gotDeadline, parentDeadline)
	}
}
