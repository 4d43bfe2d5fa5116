package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/stepmigrate/internal/config"
	"github.com/example/stepmigrate/internal/migration"
	"github.com/example/stepmigrate/internal/persistence/sqlite"
	"github.com/example/stepmigrate/internal/testfixtures"
)

func writeScripts(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"20240101_000000_create_users.up.sql":   "CREATE TABLE users (id INTEGER PRIMARY KEY);",
		"20240101_000000_create_users.down.sql": "DROP TABLE users;",
		"20240102_000000_create_teams.up.sql":   "CREATE TABLE teams (id INTEGER PRIMARY KEY);",
		"20240102_000000_create_teams.down.sql": "DROP TABLE teams;",
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.MigrationsDir = filepath.Join(root, "migrations")
	cfg.Store.VersionFile = filepath.Join(root, ".stepmigrate_version")
	cfg.Target.DSN = filepath.Join(root, "app.db")
	writeScripts(t, cfg.MigrationsDir)
	return cfg
}

func newRuntime(t *testing.T, cfg config.Config, delegate migration.Delegate) *Runtime {
	t.Helper()
	rt, err := New(context.Background(), cfg, delegate, testfixtures.DiscardLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func tableExists(t *testing.T, dsn, table string) bool {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(dsn))
	if err != nil {
		t.Fatalf("failed to open %s: %v", dsn, err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count); err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	return count > 0
}

func TestNew_FileStoreDefaults(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	rt := newRuntime(t, cfg, migration.Delegate{})

	if _, ok := rt.Store.(*migration.FileStore); !ok {
		t.Fatalf("expected file store, got %T", rt.Store)
	}
	if rt.LockPath != cfg.Store.VersionFile+".lock" {
		t.Fatalf("unexpected lock path %q", rt.LockPath)
	}

	got, err := rt.Engine.MigrateToVersion(ctx, rt.Catalog.Latest())
	if err != nil {
		t.Fatalf("MigrateToVersion returned error: %v", err)
	}
	if got != "20240102_000000" {
		t.Fatalf("expected latest version, got %s", got)
	}
	raw, err := os.ReadFile(cfg.Store.VersionFile)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(raw) != "20240102_000000\n" {
		t.Fatalf("unexpected version file content %q", raw)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !tableExists(t, cfg.Target.DSN, "teams") {
		t.Fatalf("expected scripts to run against the target database")
	}
}

func TestNew_SQLiteStoreSharesTargetDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Store.Kind = config.StoreSQLite
	cfg.Store.DSN = cfg.Target.DSN
	rt := newRuntime(t, cfg, migration.Delegate{})

	if len(rt.closers) != 1 {
		t.Fatalf("expected one shared database handle, got %d", len(rt.closers))
	}
	store, ok := rt.Store.(*sqlite.VersionStore)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", rt.Store)
	}

	if _, err := rt.Engine.MigrateToVersion(ctx, "20240101_000000"); err != nil {
		t.Fatalf("MigrateToVersion returned error: %v", err)
	}
	history, err := store.History(ctx)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 1 || history[0].Version != "20240101_000000" {
		t.Fatalf("expected one recorded step, got %+v", history)
	}
}

func TestNew_DelegateOverrides(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	otherDir := filepath.Join(t.TempDir(), "other")
	writeScripts(t, otherDir)
	if err := os.Remove(filepath.Join(otherDir, "20240102_000000_create_teams.up.sql")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	store := migration.NewMemoryStore()
	var resets, storeCalls, dirCalls int
	delegate := migration.Delegate{
		VersionStore: func() (migration.VersionStore, error) {
			storeCalls++
			return store, nil
		},
		MigrationsDir: func() string {
			dirCalls++
			return otherDir
		},
		Clean: func(context.Context) error {
			resets++
			return nil
		},
	}
	rt := newRuntime(t, cfg, delegate)

	if rt.MigrationsDir != otherDir || rt.Catalog.Len() != 1 {
		t.Fatalf("expected delegate directory with one migration, got %s (%d)", rt.MigrationsDir, rt.Catalog.Len())
	}
	if _, err := rt.Engine.MigrateToVersion(ctx, "20240101_000000"); err != nil {
		t.Fatalf("MigrateToVersion returned error: %v", err)
	}
	if err := rt.Engine.Clean(ctx); err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}

	if resets != 1 {
		t.Fatalf("expected delegate clean to run once, got %d", resets)
	}
	if storeCalls != 1 || dirCalls != 1 {
		t.Fatalf("expected delegate to be resolved once, got store=%d dir=%d", storeCalls, dirCalls)
	}
	if v, _ := store.Get(ctx); v != migration.Zero {
		t.Fatalf("expected delegate store to be reset, got %s", v)
	}
	if _, err := os.Stat(cfg.Store.VersionFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("default version file must not be used")
	}
}

func TestNew_DelegateStoreFailure(t *testing.T) {
	boom := errors.New("no credentials")
	_, err := New(context.Background(), testConfig(t), migration.Delegate{
		VersionStore: func() (migration.VersionStore, error) { return nil, boom },
	}, testfixtures.DiscardLogger())
	if !errors.Is(err, boom) {
		t.Fatalf("expected delegate error, got %v", err)
	}
}

func TestNew_ResetScript(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Target.ResetSQL = filepath.Join(t.TempDir(), "reset.sql")
	if err := os.WriteFile(cfg.Target.ResetSQL, []byte("DROP TABLE IF EXISTS teams;\nDROP TABLE IF EXISTS users;"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	rt := newRuntime(t, cfg, migration.Delegate{})

	if _, err := rt.Engine.MigrateToVersion(ctx, rt.Catalog.Latest()); err != nil {
		t.Fatalf("MigrateToVersion returned error: %v", err)
	}
	if err := rt.Engine.Clean(ctx); err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if v, err := rt.Store.Get(ctx); err != nil || v != migration.Zero {
		t.Fatalf("expected version 0 after clean, got %s, %v", v, err)
	}

	// Every migration can be applied again on the clean slate.
	if _, err := rt.Engine.MigrateToVersion(ctx, rt.Catalog.Latest()); err != nil {
		t.Fatalf("MigrateToVersion after clean returned error: %v", err)
	}
}

func TestNew_MissingResetScript(t *testing.T) {
	cfg := testConfig(t)
	cfg.Target.ResetSQL = filepath.Join(t.TempDir(), "absent.sql")

	_, err := New(context.Background(), cfg, migration.Delegate{}, testfixtures.DiscardLogger())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing reset script error, got %v", err)
	}
}
