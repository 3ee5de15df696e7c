// Package mysql implements the counter driver on MySQL.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/store/sqlcounter"
)

// ansiQuotesMode makes MySQL treat double quotes as identifier quotes,
// which the shared counter statements rely on.
const ansiQuotesMode = "CONCAT(@@sql_mode, ',ANSI_QUOTES')"

// errNoSuchTable is ER_NO_SUCH_TABLE.
const errNoSuchTable = 1146

var dialect = func() sqlcounter.Dialect {
	d := sqlcounter.MySQL
	d.MissingTable = func(err error) bool {
		var myErr *gomysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == errNoSuchTable
	}
	return d
}()

// Config holds MySQL configuration.
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
	if _, err := gomysql.ParseDSN(c.URL); err != nil {
		return fmt.Errorf("invalid mysql DSN: %w", err)
	}
	return nil
}

// counterDSN rewrites dsn so every session runs with ANSI_QUOTES enabled.
func counterDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["sql_mode"] = ansiQuotesMode
	return cfg.FormatDSN(), nil
}

// Driver opens MySQL counter connections.
type Driver struct {
	sqlcounter.Primitives
	logger logger.Logger
	open   func(driverName, dsn string) (*sql.DB, error)
}

// NewDriver creates a MySQL driver.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{logger: log, open: sql.Open}
}

// Cosa fa: apre il pool MySQL con ANSI_QUOTES e verifica la connessione con un ping.
// Cosa NON fa: non esegue migrazioni schema né provisioning database.
// Esempio minimo: conn, err := mysql.NewDriver(log).Connect(ctx, cfg)
func (d *Driver) Connect(ctx context.Context, cfg Config) (*sqlcounter.Conn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	dsn, err := counterDSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := d.open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
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
		return nil, fmt.Errorf("failed to ping mysql database: %w", err)
	}

	d.logger.Info("MySQL connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
		"conn_max_lifetime", cfg.ConnMaxLifetime,
		"conn_max_idle_time", cfg.ConnMaxIdleTime,
	)

	return sqlcounter.NewConn(db, cfg.TableName, dialect, cfg.QueryTimeout, d.logger), nil
}

// Adapter is a lifecycle-wrapped MySQL counter.
type Adapter = adapter.Adapter[*sqlcounter.Conn, Config]

// NewMySQLAdapter creates a counter that connects to MySQL on first use.
func NewMySQLAdapter(cfg Config, log logger.Logger, opts ...adapter.Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []adapter.Option{adapter.WithName("mysql"), adapter.WithLogger(log)}
	return adapter.New[*sqlcounter.Conn, Config](NewDriver(log), cfg, append(base, opts...)...), nil
}
