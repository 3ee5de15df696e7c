package testutil

import "testing"

func TestRequireEnv_ReturnsValue(t *testing.T) {
	if testing.Short() {
		t.Skip("RequireEnv skips in short mode")
	}
	t.Setenv("CI", "")
	t.Setenv("COUNTER_TESTUTIL_VALUE", "  mongodb://localhost:27017  ")

	if got := RequireEnv(t, "COUNTER_TESTUTIL_VALUE"); got != "mongodb://localhost:27017" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestRequireEnv_SkipsWhenUnset(t *testing.T) {
	t.Setenv("COUNTER_TESTUTIL_MISSING", "")

	ran := t.Run("inner", func(t *testing.T) {
		RequireEnv(t, "COUNTER_TESTUTIL_MISSING")
		t.Fatal("expected RequireEnv to skip")
	})
	if !ran {
		t.Fatal("expected skipped subtest to count as passed")
	}
}
