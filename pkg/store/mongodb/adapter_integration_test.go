package mongodb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
	"github.com/nimburion/lazycounter/pkg/testutil"
)

// TestMongoDBAdapter_Integration runs the counter against the MongoDB
// instance named by COUNTER_TEST_MONGODB_URL.
func TestMongoDBAdapter_Integration(t *testing.T) {
	url := testutil.RequireEnv(t, "COUNTER_TEST_MONGODB_URL")
	ctx := context.Background()

	cfg := Config{
		URL:              url,
		Database:         "counter_test",
		Collection:       "values_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		ConnectTimeout:   10 * time.Second,
		OperationTimeout: 5 * time.Second,
	}

	counter, err := NewMongoDBAdapter(cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	if _, err := counter.Get(ctx); !errors.Is(err, adapter.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized before Init, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := counter.Init(ctx); err != nil {
			t.Fatalf("Init #%d failed: %v", i, err)
		}
	}
	if err := counter.Set(ctx, 42); err != nil {
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
	if err := counter.Init(ctx); !errors.Is(err, adapter.ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}
