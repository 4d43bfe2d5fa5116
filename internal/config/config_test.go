package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	EnvConfigPath,
	"STEPMIGRATE_MIGRATIONS_DIR",
	"STEPMIGRATE_STORE",
	"STEPMIGRATE_VERSION_FILE",
	"STEPMIGRATE_STORE_DSN",
	"STEPMIGRATE_LOCK_FILE",
	"STEPMIGRATE_TARGET_DSN",
	"STEPMIGRATE_RESET_SQL",
	"STEPMIGRATE_LOG_LEVEL",
	"STEPMIGRATE_LOG_FORMAT",
}

// isolate clears the environment and moves into an empty directory so no
// stray stepmigrate.toml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults when nothing is configured", func(t *testing.T) {
		isolate(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if diff := cmp.Diff(Default(), cfg, cmp.AllowUnexported(Config{})); diff != "" {
			t.Fatalf("unexpected config (-want +got):\n%s", diff)
		}
		if cfg.LockPath() != ".stepmigrate_version.lock" {
			t.Fatalf("unexpected lock path %q", cfg.LockPath())
		}
	})

	t.Run("reads the file from the working directory", func(t *testing.T) {
		dir := isolate(t)
		writeConfig(t, filepath.Join(dir, DefaultFileName), `
migrations_dir = "db/migrations"

[store]
kind = "sqlite"
dsn = "state.db"

[target]
dsn = "app.db"
reset_sql = "reset.sql"

[log]
level = "debug"
format = "json"
`)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		want := Default()
		want.MigrationsDir = "db/migrations"
		want.Store.Kind = StoreSQLite
		want.Store.DSN = "state.db"
		want.Target = TargetConfig{DSN: "app.db", ResetSQL: "reset.sql"}
		want.Log = LogConfig{Level: "debug", Format: "json"}
		want.path = DefaultFileName
		if diff := cmp.Diff(want, cfg, cmp.AllowUnexported(Config{})); diff != "" {
			t.Fatalf("unexpected config (-want +got):\n%s", diff)
		}
		if cfg.LockPath() != "state.db.lock" {
			t.Fatalf("expected lock next to the sqlite store, got %q", cfg.LockPath())
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "custom.toml")
		writeConfig(t, path, "migrations_dir = \"from-file\"\n")
		t.Setenv(EnvConfigPath, path)
		t.Setenv("STEPMIGRATE_MIGRATIONS_DIR", "from-env")
		t.Setenv("STEPMIGRATE_LOCK_FILE", "/tmp/run.lock")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.MigrationsDir != "from-env" {
			t.Fatalf("expected env to win, got %q", cfg.MigrationsDir)
		}
		if cfg.Path() != path {
			t.Fatalf("expected config path %q, got %q", path, cfg.Path())
		}
		if cfg.LockPath() != "/tmp/run.lock" {
			t.Fatalf("expected explicit lock file, got %q", cfg.LockPath())
		}
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		dir := isolate(t)

		_, err := Load(filepath.Join(dir, "absent.toml"))
		if err == nil || !strings.Contains(err.Error(), "no config file found") {
			t.Fatalf("expected missing file error, got %v", err)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "typo.toml")
		writeConfig(t, path, "migration_dir = \"oops\"\n")

		if _, err := Load(path); err == nil {
			t.Fatalf("expected error for unknown key")
		}
	})

	t.Run("aggregates invalid values", func(t *testing.T) {
		isolate(t)
		t.Setenv("STEPMIGRATE_STORE", "redis")
		t.Setenv("STEPMIGRATE_LOG_LEVEL", "loud")
		t.Setenv("STEPMIGRATE_LOG_FORMAT", "xml")

		_, err := Load("")
		if err == nil {
			t.Fatalf("expected validation error")
		}
		expected := "config: invalid values: store.kind, log.level, log.format"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports missing values before invalid ones", func(t *testing.T) {
		isolate(t)
		t.Setenv("STEPMIGRATE_STORE", "sqlite")
		t.Setenv("STEPMIGRATE_RESET_SQL", "reset.sql")
		t.Setenv("STEPMIGRATE_LOG_FORMAT", "xml")

		_, err := Load("")
		expected := "config: missing required values: store.dsn, target.dsn"
		if err == nil || err.Error() != expected {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestLoadUnvalidated(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "partial.toml")
	writeConfig(t, path, "[store]\nkind = \"sqlite\"\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject the missing store.dsn")
	}

	cfg, err := LoadUnvalidated(path)
	if err != nil {
		t.Fatalf("LoadUnvalidated returned error: %v", err)
	}
	if cfg.Store.Kind != StoreSQLite || cfg.Store.DSN != "" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}

	cfg.Store.DSN = "state.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("completed config should validate: %v", err)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.Store.Kind = StoreSQLite
	cfg.Store.DSN = "state.db"

	raw, err := Render(cfg)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(string(raw), "# Version store: 'file' or 'sqlite'") {
		t.Fatalf("expected rendered config to carry comments:\n%s", raw)
	}

	path := filepath.Join(dir, "rendered.toml")
	writeConfig(t, path, string(raw))

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.path = path
	if diff := cmp.Diff(cfg, loaded, cmp.AllowUnexported(Config{})); diff != "" {
		t.Fatalf("unexpected config after round trip (-want +got):\n%s", diff)
	}
}
