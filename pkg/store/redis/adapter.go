// Package redis implements the counter driver on Redis. The counter is a
// single integer key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

// DefaultKey holds the counter when no key is configured.
const DefaultKey = "values"

// Config holds Redis connection configuration
type Config struct {
	URL              string
	Key              string
	MaxConns         int
	OperationTimeout time.Duration
}

// Validate reports configuration errors that would make Connect fail.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if _, err := redis.ParseURL(c.URL); err != nil {
		return fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return nil
}

// commands is the subset of *redis.Client the counter uses.
type commands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Conn is a Redis counter connection.
type Conn struct {
	client commands
	key    string
}

// Key returns the counter key.
func (c *Conn) Key() string {
	return c.key
}

// Driver opens Redis counter connections.
type Driver struct {
	logger logger.Logger
}

// NewDriver creates a Redis driver.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{logger: log}
}

// Connect creates the client and verifies it with a ping.
func (d *Driver) Connect(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		opts.PoolSize = cfg.MaxConns
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = cfg.OperationTimeout
	opts.WriteTimeout = cfg.OperationTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	d.logger.Info("Redis connection established",
		"max_conns", cfg.MaxConns,
		"operation_timeout", cfg.OperationTimeout,
		"key", key,
	)

	return &Conn{client: client, key: key}, nil
}

// Init writes 0 unless the key already exists.
func (d *Driver) Init(ctx context.Context, c *Conn) error {
	if err := c.client.SetNX(ctx, c.key, 0, 0).Err(); err != nil {
		return fmt.Errorf("failed to initialize key %s: %w", c.key, err)
	}
	return nil
}

// Get reads the counter key.
func (d *Driver) Get(ctx context.Context, c *Conn) (int64, error) {
	val, err := c.client.Get(ctx, c.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, adapter.ErrNotInitialized
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get key %s: %w", c.key, err)
	}
	return val, nil
}

// Set atomically increments the counter by 1. The value argument is ignored.
func (d *Driver) Set(ctx context.Context, c *Conn, _ int64) error {
	if err := c.client.Incr(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to increment key %s: %w", c.key, err)
	}
	return nil
}

// Dispose gracefully closes the Redis connection
func (d *Driver) Dispose(_ context.Context, c *Conn) error {
	d.logger.Info("closing Redis connection")

	if err := c.client.Close(); err != nil {
		d.logger.Error("failed to close Redis connection", "error", err)
		return fmt.Errorf("failed to close redis connection: %w", err)
	}

	d.logger.Info("Redis connection closed successfully")
	return nil
}

// Ping verifies the Redis connection is healthy with a timeout
func (d *Driver) Ping(ctx context.Context, c *Conn) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Adapter is a lifecycle-wrapped Redis counter.
type Adapter = adapter.Adapter[*Conn, Config]

// NewRedisAdapter creates a counter that connects to Redis on first use.
func NewRedisAdapter(cfg Config, log logger.Logger, opts ...adapter.Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []adapter.Option{adapter.WithName("redis"), adapter.WithLogger(log)}
	return adapter.New[*Conn, Config](NewDriver(log), cfg, append(base, opts...)...), nil
}
