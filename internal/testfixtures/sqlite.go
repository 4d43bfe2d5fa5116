package testfixtures

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/example/stepmigrate/internal/persistence/sqlite"
)

// SQLiteHarness provides a temporary SQLite database together with a version
// store kept in the same file, for integration-style tests.
type SQLiteHarness struct {
	Path  string
	DB    *sql.DB
	Store *sqlite.VersionStore

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a database in a temporary directory and creates the
// state tables. Callers may optionally invoke Close, but the helper also
// registers a cleanup callback with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "stepmigrate.db")
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	store, err := sqlite.NewVersionStore(ctx, db, path)
	if err != nil {
		_ = db.Close()
		tb.Fatalf("failed to create version store: %v", err)
	}

	harness := &SQLiteHarness{
		Path:  path,
		DB:    db,
		Store: store,
		cleanup: func() {
			_ = db.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// TableExists reports whether the named table exists in the harness database.
func (h *SQLiteHarness) TableExists(tb testing.TB, name string) bool {
	tb.Helper()

	var count int
	err := h.DB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		tb.Fatalf("failed to inspect schema: %v", err)
	}
	return count > 0
}
