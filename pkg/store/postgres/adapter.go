// Package postgres implements the counter driver on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/store/sqlcounter"
)

// undefinedTable is the SQLSTATE for a relation that does not exist.
const undefinedTable = "42P01"

var dialect = func() sqlcounter.Dialect {
	d := sqlcounter.PostgreSQL
	d.MissingTable = func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
	}
	return d
}()

// Config holds PostgreSQL connection configuration
type Config struct {
	URL             string
	TableName       string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// Validate reports configuration errors that would make Connect fail.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	return nil
}

// Driver opens PostgreSQL counter connections.
type Driver struct {
	sqlcounter.Primitives
	logger logger.Logger
	open   func(driverName, dsn string) (*sql.DB, error)
}

// NewDriver creates a PostgreSQL driver.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{logger: log, open: sql.Open}
}

// Connect opens the connection pool and verifies it with a ping.
func (d *Driver) Connect(ctx context.Context, cfg Config) (*sqlcounter.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := d.open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlcounter.ConfigurePool(db, sqlcounter.Pool{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d.logger.Info("PostgreSQL connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
		"conn_max_lifetime", cfg.ConnMaxLifetime,
		"conn_max_idle_time", cfg.ConnMaxIdleTime,
	)

	return sqlcounter.NewConn(db, cfg.TableName, dialect, cfg.QueryTimeout, d.logger), nil
}

// Adapter is a lifecycle-wrapped PostgreSQL counter.
type Adapter = adapter.Adapter[*sqlcounter.Conn, Config]

// NewPostgreSQLAdapter creates a counter that connects to PostgreSQL on first use.
func NewPostgreSQLAdapter(cfg Config, log logger.Logger, opts ...adapter.Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []adapter.Option{adapter.WithName("postgres"), adapter.WithLogger(log)}
	return adapter.New[*sqlcounter.Conn, Config](NewDriver(log), cfg, append(base, opts...)...), nil
}
