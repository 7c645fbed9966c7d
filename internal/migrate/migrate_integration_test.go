//go:build integration

package migrate

import (
	"context"
	"testing"

	"github.com/perflog/perflog/internal/testutil"
)

func TestIntegrationRunner_UpIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dsn := testutil.RequireEnv(t, "DATABASE_URL")

	runner, err := New(dsn, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := runner.Up(ctx); err != nil {
			t.Fatalf("Up #%d failed: %v", i+1, err)
		}
	}

	version, err := runner.Version(ctx)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version < 1 {
		t.Errorf("version = %d, want >= 1", version)
	}
}
