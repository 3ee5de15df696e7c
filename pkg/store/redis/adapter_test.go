package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

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

// memoryRedis keeps keys in a map and answers with prebuilt command results.
type memoryRedis struct {
	keys    map[string]string
	err     error
	closed  bool
	pingErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{keys: map[string]string{}}
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if m.err != nil {
		return redis.NewBoolResult(false, m.err)
	}
	if _, ok := m.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.keys[key] = strconv.Itoa(value.(int))
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.keys[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	n, _ := strconv.ParseInt(m.keys[key], 10, 64)
	n++
	m.keys[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.pingErr)
}

func (m *memoryRedis) Close() error {
	m.closed = true
	return nil
}

func newMemoryAdapter(mem *memoryRedis) *Adapter {
	d := NewDriver(&mockLogger{})
	drv := adapter.Funcs[*Conn, Config]{
		ConnectFn: func(context.Context, Config) (*Conn, error) {
			return &Conn{client: mem, key: DefaultKey}, nil
		},
		InitFn:    d.Init,
		GetFn:     d.Get,
		SetFn:     d.Set,
		DisposeFn: d.Dispose,
		PingFn:    d.Ping,
	}
	return adapter.New[*Conn, Config](drv, Config{})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty URL", cfg: Config{}, wantErr: true},
		{name: "bad scheme", cfg: Config{URL: "http://localhost:6379"}, wantErr: true},
		{name: "valid", cfg: Config{URL: "redis://localhost:6379/0"}, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedisCounter_Scenario(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryRedis()
	counter := newMemoryAdapter(mem)

	if err := counter.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if v, err := counter.Get(ctx); err != nil || v != 0 {
		t.Fatalf("Get() = %d, %v; want 0, nil", v, err)
	}
	if err := counter.Set(ctx, 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := counter.Init(ctx); err != nil {
		t.Fatalf("repeated Init() error = %v", err)
	}
	if v, err := counter.Get(ctx); err != nil || v != 1 {
		t.Fatalf("Get() = %d, %v; want 1, nil", v, err)
	}
	if err := counter.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if err := counter.Dispose(ctx); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	if !mem.closed {
		t.Fatal("expected client to be closed")
	}
	if err := counter.Dispose(ctx); !errors.Is(err, adapter.ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}

func TestRedisCounter_GetMissingKey(t *testing.T) {
	counter := newMemoryAdapter(newMemoryRedis())
	if _, err := counter.Get(context.Background()); !errors.Is(err, adapter.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestRedisCounter_ErrorsAreWrapped(t *testing.T) {
	mem := newMemoryRedis()
	mem.err = errors.New("READONLY")
	counter := newMemoryAdapter(mem)

	if err := counter.Set(context.Background(), 1); !errors.Is(err, mem.err) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestDriver_ConnectUnreachable(t *testing.T) {
	d := NewDriver(&mockLogger{})
	_, err := d.Connect(context.Background(), Config{
		URL:              "redis://localhost:9999/0",
		OperationTimeout: time.Second,
	})
	if err == nil {
		t.Fatal("expected error when connecting to non-existent Redis")
	}
}

func TestNewRedisAdapter_DoesNotConnect(t *testing.T) {
	counter, err := NewRedisAdapter(Config{URL: "redis://localhost:9999/0"}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewRedisAdapter() error = %v", err)
	}
	if err := counter.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
}
