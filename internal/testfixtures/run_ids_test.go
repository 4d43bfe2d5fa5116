package testfixtures

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/stepmigrate/internal/migration"
)

func TestRunIDsFollowEngineRuns(t *testing.T) {
	set := NewUnitSet("20240101_000000")
	ids := NewRunIDs()
	engine := migration.NewEngine(set.Registry, migration.NewMemoryStore(),
		migration.WithLogger(DiscardLogger()),
		ids.Option(),
	)

	ctx := context.Background()
	if _, err := engine.MigrateToVersion(ctx, "20240101_000000"); err != nil {
		t.Fatalf("MigrateToVersion failed: %v", err)
	}
	if err := engine.Clean(ctx); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if diff := cmp.Diff([]string{"run-1", "run-2"}, ids.Issued()); diff != "" {
		t.Fatalf("unexpected run ids (-want +got):\n%s", diff)
	}
	if got := ids.Next(); got != "run-3" {
		t.Fatalf("expected run-3, got %q", got)
	}
}
