// Package sqlite is the reference counter driver, backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/store/sqlcounter"
)

const (
	// DefaultFileName opens a private in-memory database.
	DefaultFileName = ":memory:"
	// DefaultTableName is the counter table used when none is configured.
	DefaultTableName = sqlcounter.DefaultTableName

	driverName = "sqlite"
)

// Config holds SQLite counter configuration.
type Config struct {
	// FileName is the database path; ":memory:" or empty means in-memory.
	FileName     string
	TableName    string
	BusyTimeout  time.Duration
	QueryTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.FileName) == "" {
		c.FileName = DefaultFileName
	}
	if strings.TrimSpace(c.TableName) == "" {
		c.TableName = DefaultTableName
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
	return c
}

type pragma struct {
	name  string
	value string
}

func pragmasFor(cfg Config) []pragma {
	busy := pragma{name: "busy_timeout", value: fmt.Sprintf("%d", cfg.BusyTimeout.Milliseconds())}
	if cfg.FileName == DefaultFileName {
		return []pragma{
			busy,
			{name: "temp_store", value: "MEMORY"},
		}
	}
	return []pragma{
		busy,
		{name: "journal_mode", value: "WAL"},
		{name: "synchronous", value: "NORMAL"},
	}
}

// uriPathEscaper escapes the characters SQLite's URI parser gives meaning to
// in the path part; SQLite decodes %HH sequences back when opening the file.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// buildDSN renders path and pragmas in modernc syntax:
// file:path?_pragma=name(value)&_pragma=name2(value2)
func buildDSN(path string, pragmas []pragma) string {
	var sb strings.Builder
	sb.WriteString("file:")
	sb.WriteString(uriPathEscaper.Replace(path))
	for i, p := range pragmas {
		if i == 0 {
			sb.WriteString("?")
		} else {
			sb.WriteString("&")
		}
		fmt.Fprintf(&sb, "_pragma=%s(%s)", p.name, p.value)
	}
	return sb.String()
}

// Driver opens SQLite counter connections.
type Driver struct {
	sqlcounter.Primitives
	logger logger.Logger
}

// NewDriver creates a SQLite driver.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Driver{logger: log}
}

// Connect opens the database and verifies it. The pool is pinned to a single
// connection: an in-memory database exists only inside the connection that
// created it.
func (d *Driver) Connect(ctx context.Context, cfg Config) (*sqlcounter.Conn, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open(driverName, buildDSN(cfg.FileName, pragmasFor(cfg)))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	d.logger.Info("SQLite connection established",
		"file", cfg.FileName,
		"table", cfg.TableName,
	)

	return sqlcounter.NewConn(db, cfg.TableName, sqlcounter.SQLite, cfg.QueryTimeout, d.logger), nil
}

// Adapter is a lifecycle-wrapped SQLite counter.
type Adapter = adapter.Adapter[*sqlcounter.Conn, Config]

// Cosa fa: costruisce un counter SQLite che si connette al primo utilizzo.
// Cosa NON fa: non apre il database finché non viene chiamato Init, Get o Set.
// Esempio minimo: counter := sqlite.NewSQLiteAdapter(sqlite.Config{}, log)
func NewSQLiteAdapter(cfg Config, log logger.Logger, opts ...adapter.Option) *Adapter {
	base := []adapter.Option{adapter.WithName("sqlite"), adapter.WithLogger(log)}
	return adapter.New[*sqlcounter.Conn, Config](NewDriver(log), cfg.withDefaults(), append(base, opts...)...)
}
