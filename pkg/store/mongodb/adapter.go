// Package mongodb implements the counter driver on MongoDB. The counter is a
// single document {_id: "counter", value: n} in the configured collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

const (
	// DefaultCollection holds the counter document when none is configured.
	DefaultCollection = "values"

	counterID = "counter"
)

// Config holds MongoDB counter configuration.
type Config struct {
	URL              string
	Database         string
	Collection       string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// Validate reports configuration errors that would make Connect fail.
func (c Config) Validate() error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, fmt.Errorf("mongodb URL is required"))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("mongodb database is required"))
	}
	return errors.Join(errs...)
}

func (c Config) withDefaults() Config {
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 5 * time.Second
	}
	return c
}

// collection is the subset of *mongo.Collection the counter uses.
type collection interface {
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// Conn is a MongoDB counter connection.
type Conn struct {
	client     *mongo.Client
	collection collection
	timeout    time.Duration
}

// Client returns the underlying client; nil for connections built in tests.
func (c *Conn) Client() *mongo.Client {
	return c.client
}

func (c *Conn) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

type counterDocument struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// Driver opens MongoDB counter connections.
type Driver struct {
	logger logger.Logger
}

// NewDriver creates a MongoDB driver.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{logger: log}
}

// Cosa fa: connette il client MongoDB e verifica connettività via ping.
// Cosa NON fa: non crea indici; la collection nasce al primo Init.
// Esempio minimo: conn, err := mongodb.NewDriver(log).Connect(ctx, cfg)
func (d *Driver) Connect(ctx context.Context, cfg Config) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	d.logger.Info("MongoDB connection established", "database", cfg.Database, "collection", cfg.Collection)
	return &Conn{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    cfg.OperationTimeout,
	}, nil
}

// Init upserts the counter document, writing value 0 only when it is created.
func (d *Driver) Init(ctx context.Context, c *Conn) error {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	_, err := c.collection.UpdateOne(opCtx,
		bson.M{"_id": counterID},
		bson.M{"$setOnInsert": bson.M{"value": int64(0)}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize mongodb counter: %w", err)
	}
	return nil
}

// Get reads the counter document.
func (d *Driver) Get(ctx context.Context, c *Conn) (int64, error) {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	var doc counterDocument
	if err := c.collection.FindOne(opCtx, bson.M{"_id": counterID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, adapter.ErrNotInitialized
		}
		return 0, fmt.Errorf("failed to read mongodb counter: %w", err)
	}
	return doc.Value, nil
}

// Set increments the counter by one. The value argument is ignored.
func (d *Driver) Set(ctx context.Context, c *Conn, _ int64) error {
	opCtx, cancel := c.withOperationTimeout(ctx)
	defer cancel()

	res, err := c.collection.UpdateOne(opCtx, bson.M{"_id": counterID}, bson.M{"$inc": bson.M{"value": int64(1)}})
	if err != nil {
		return fmt.Errorf("failed to increment mongodb counter: %w", err)
	}
	if res != nil && res.MatchedCount == 0 {
		return adapter.ErrNotInitialized
	}
	return nil
}

// Dispose disconnects the client.
func (d *Driver) Dispose(ctx context.Context, c *Conn) error {
	d.logger.Info("closing MongoDB connection")
	if c.client == nil {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.client.Disconnect(closeCtx); err != nil {
		d.logger.Error("failed to close MongoDB connection", "error", err)
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	d.logger.Info("MongoDB connection closed successfully")
	return nil
}

// Ping verifies the primary is reachable.
func (d *Driver) Ping(ctx context.Context, c *Conn) error {
	if c.client == nil {
		return nil
	}
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Ping(hcCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// Adapter is a lifecycle-wrapped MongoDB counter.
type Adapter = adapter.Adapter[*Conn, Config]

// NewMongoDBAdapter creates a counter that connects to MongoDB on first use.
func NewMongoDBAdapter(cfg Config, log logger.Logger, opts ...adapter.Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []adapter.Option{adapter.WithName("mongodb"), adapter.WithLogger(log)}
	return adapter.New[*Conn, Config](NewDriver(log), cfg.withDefaults(), append(base, opts...)...), nil
}
