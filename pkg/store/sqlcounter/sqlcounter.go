// Package sqlcounter holds the counter primitives shared by the database/sql
// backed drivers (SQLite, PostgreSQL, MySQL).
//
// The counter lives in a single-column table holding one row. Init creates
// the table when missing and seeds the row with 0 only when the table is
// empty, so running it again never duplicates the record. Set ignores the
// value it is given and increments the stored counter by one.
package sqlcounter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

// DefaultTableName is used when no table name is configured.
const DefaultTableName = "values"

// Dialect describes the SQL differences between backends.
type Dialect struct {
	// Name is the human readable backend name used in log messages.
	Name string
	// SeedFrom is appended to the seed SELECT; MySQL needs "FROM DUAL"
	// before a WHERE clause.
	SeedFrom string
	// MissingTable reports whether err means the counter table does not
	// exist. Get and Set turn such errors into adapter.ErrNotInitialized.
	MissingTable func(err error) bool
}

var (
	// SQLite dialect.
	SQLite = Dialect{Name: "SQLite", MissingTable: func(err error) bool {
		return strings.Contains(err.Error(), "no such table")
	}}
	// PostgreSQL dialect.
	PostgreSQL = Dialect{Name: "PostgreSQL"}
	// MySQL dialect. Requires the session to run with ANSI_QUOTES.
	MySQL = Dialect{Name: "MySQL", SeedFrom: " FROM DUAL"}
)

// Pool holds database/sql pool limits. Zero values keep the database/sql
// defaults instead of disabling pooling.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ConfigurePool applies the positive limits of p to db.
func ConfigurePool(db *sql.DB, p Pool) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
	if p.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
	}
}

// QuoteIdentifier wraps name in double quotes, doubling any embedded double
// quote, so configured table names cannot break out of the identifier.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Conn is the connection handle the SQL drivers hand to the adapter.
type Conn struct {
	db           *sql.DB
	table        string
	dialect      Dialect
	queryTimeout time.Duration
	logger       logger.Logger
}

// NewConn binds an open database to a counter table. An empty table falls
// back to DefaultTableName.
func NewConn(db *sql.DB, table string, dialect Dialect, queryTimeout time.Duration, log logger.Logger) *Conn {
	if table == "" {
		table = DefaultTableName
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Conn{
		db:           db,
		table:        table,
		dialect:      dialect,
		queryTimeout: queryTimeout,
		logger:       log,
	}
}

// DB returns the underlying *sql.DB for direct access when needed
func (c *Conn) DB() *sql.DB {
	return c.db
}

// Table returns the unquoted counter table name.
func (c *Conn) Table() string {
	return c.table
}

func (c *Conn) createTableSQL() string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (value BIGINT NOT NULL)", QuoteIdentifier(c.table))
}

func (c *Conn) seedSQL() string {
	table := QuoteIdentifier(c.table)
	return fmt.Sprintf("INSERT INTO %s (value) SELECT 0%s WHERE NOT EXISTS (SELECT 1 FROM %s)", table, c.dialect.SeedFrom, table)
}

func (c *Conn) selectSQL() string {
	return fmt.Sprintf("SELECT value FROM %s", QuoteIdentifier(c.table))
}

func (c *Conn) incrementSQL() string {
	return fmt.Sprintf("UPDATE %s SET value = value + 1", QuoteIdentifier(c.table))
}

func (c *Conn) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.queryTimeout)
}

// Primitives implements the Init, Get, Set, Dispose and Ping driver
// primitives over a *Conn. SQL drivers embed it and add Connect.
type Primitives struct{}

// Init creates the counter table if missing and seeds it with 0 when empty.
func (Primitives) Init(ctx context.Context, c *Conn) error {
	ctx, cancel := c.withQueryTimeout(ctx)
	defer cancel()

	if _, err := c.db.ExecContext(ctx, c.createTableSQL()); err != nil {
		return fmt.Errorf("failed to create counter table %q: %w", c.table, err)
	}
	if _, err := c.db.ExecContext(ctx, c.seedSQL()); err != nil {
		return fmt.Errorf("failed to seed counter table %q: %w", c.table, err)
	}
	return nil
}

// notInitialized reports whether err says Init has not run.
func (c *Conn) notInitialized(err error) bool {
	return c.dialect.MissingTable != nil && c.dialect.MissingTable(err)
}

// Get reads the counter. It returns adapter.ErrNotInitialized when the table
// is missing or holds no row.
func (Primitives) Get(ctx context.Context, c *Conn) (int64, error) {
	ctx, cancel := c.withQueryTimeout(ctx)
	defer cancel()

	var value int64
	if err := c.db.QueryRowContext(ctx, c.selectSQL()).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) || c.notInitialized(err) {
			return 0, adapter.ErrNotInitialized
		}
		return 0, fmt.Errorf("failed to read counter from %q: %w", c.table, err)
	}
	return value, nil
}

// Set increments the stored counter by one. The value argument is ignored.
func (Primitives) Set(ctx context.Context, c *Conn, _ int64) error {
	ctx, cancel := c.withQueryTimeout(ctx)
	defer cancel()

	if _, err := c.db.ExecContext(ctx, c.incrementSQL()); err != nil {
		if c.notInitialized(err) {
			return adapter.ErrNotInitialized
		}
		return fmt.Errorf("failed to increment counter in %q: %w", c.table, err)
	}
	return nil
}

// Dispose closes the database.
func (Primitives) Dispose(_ context.Context, c *Conn) error {
	c.logger.Info(fmt.Sprintf("closing %s connection", c.dialect.Name))

	if err := c.db.Close(); err != nil {
		c.logger.Error(fmt.Sprintf("failed to close %s connection", c.dialect.Name), "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	c.logger.Info(fmt.Sprintf("%s connection closed successfully", c.dialect.Name))
	return nil
}

// Ping verifies the database connection is alive.
func (Primitives) Ping(ctx context.Context, c *Conn) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
