// Package testutil holds skip helpers shared by the store integration tests.
package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// SkipIfShort skips the test if running in short mode
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// RequireIntegration skips the test in short mode, and in CI unless
// INTEGRATION_TESTS=1 is set.
func RequireIntegration(t *testing.T) {
	t.Helper()
	SkipIfShort(t)
	if os.Getenv("INTEGRATION_TESTS") == "" && os.Getenv("CI") != "" {
		t.Skip("skipping integration test (set INTEGRATION_TESTS=1 to run)")
	}
}

// RequireDocker skips container backed tests when no container runtime
// is reachable.
func RequireDocker(t *testing.T) {
	t.Helper()
	RequireIntegration(t)
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// RequireEnv returns the value of key or skips the test when it is unset.
// Used for stores that are tested against an externally provided instance.
func RequireEnv(t *testing.T, key string) string {
	t.Helper()
	RequireIntegration(t)
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		t.Skipf("skipping integration test (%s is not set)", key)
	}
	return value
}
