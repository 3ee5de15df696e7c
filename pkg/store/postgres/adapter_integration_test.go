package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/testutil"
)

// TestPostgreSQLAdapter_Integration runs the counter against a real database
// using testcontainers.
func TestPostgreSQLAdapter_Integration(t *testing.T) {
	testutil.RequireDocker(t)

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	log, err := logger.NewZapLogger(logger.Config{
		Level:  logger.InfoLevel,
		Format: logger.JSONFormat,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	cfg := Config{
		URL:             connStr,
		TableName:       "values",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		QueryTimeout:    10 * time.Second,
	}

	t.Run("Scenario", func(t *testing.T) {
		counter, err := NewPostgreSQLAdapter(cfg, log)
		if err != nil {
			t.Fatalf("Failed to create adapter: %v", err)
		}

		if err := counter.Init(ctx); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		if v, err := counter.Get(ctx); err != nil || v != 0 {
			t.Fatalf("Get = %d, %v; want 0", v, err)
		}
		if err := counter.Set(ctx, 1); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if v, err := counter.Get(ctx); err != nil || v != 1 {
			t.Fatalf("Get = %d, %v; want 1", v, err)
		}
		if err := counter.HealthCheck(ctx); err != nil {
			t.Errorf("Health check failed: %v", err)
		}
		if err := counter.Dispose(ctx); err != nil {
			t.Fatalf("Dispose failed: %v", err)
		}
		if err := counter.Dispose(ctx); !errors.Is(err, adapter.ErrDisposed) {
			t.Fatalf("expected ErrDisposed, got %v", err)
		}
	})

	t.Run("InitIsIdempotent", func(t *testing.T) {
		counter, err := NewPostgreSQLAdapter(cfg, log)
		if err != nil {
			t.Fatalf("Failed to create adapter: %v", err)
		}
		defer counter.Dispose(ctx)

		// the table already holds the value written by Scenario
		for i := 0; i < 2; i++ {
			if err := counter.Init(ctx); err != nil {
				t.Fatalf("Init #%d failed: %v", i, err)
			}
		}
		if v, err := counter.Get(ctx); err != nil || v != 1 {
			t.Fatalf("Get = %d, %v; want 1", v, err)
		}

		db, err := sql.Open("postgres", connStr)
		if err != nil {
			t.Fatalf("sql.Open failed: %v", err)
		}
		defer db.Close()
		var rows int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "values"`).Scan(&rows); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if rows != 1 {
			t.Fatalf("expected exactly one counter row, got %d", rows)
		}
	})
}
