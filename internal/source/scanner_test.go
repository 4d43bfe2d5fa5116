package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/stepmigrate/internal/migration"
	"github.com/example/stepmigrate/internal/testfixtures"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func TestScanner_GroupsScriptsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"20240102_000000_add_email.up.sql":             "ALTER TABLE users ADD COLUMN email TEXT;",
		"20240102_000000_add_email.down.sql":           "-- stepmigrate:irreversible\n",
		"20240101_000000_create_users.up.sql":          "-- Description: Create the users table\nCREATE TABLE users (id INTEGER);",
		"20240101_000000_create_users.down.sql":        "DROP TABLE users;",
		"20240101_000000_create_users.up_rollback.sql": "DROP TABLE IF EXISTS users;",
		"20240103_000000.up.sql":                       "CREATE TABLE audit (id INTEGER);",
		"README.md":                                    "not a migration",
		"001_legacy.sql":                               "SELECT 1;",
		"20240104_000000_bad.sideways.sql":             "SELECT 1;",
		"20240105_000000_orphan.down.sql":              "DROP TABLE orphan;",
	})
	if err := os.Mkdir(filepath.Join(dir, "20240106_000000_dir.up.sql"), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}

	migrations, err := NewScanner(testfixtures.DiscardLogger()).Scan(dir)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	type summary struct {
		Version      migration.Version
		Name         string
		Description  string
		Irreversible bool
		Kinds        []Kind
	}
	got := make([]summary, 0, len(migrations))
	for _, m := range migrations {
		s := summary{Version: m.Version, Name: m.Name, Description: m.Description, Irreversible: m.Irreversible}
		for _, kind := range []Kind{KindUp, KindDown, KindUpRollback, KindDownRollback} {
			if m.Script(kind) != nil {
				s.Kinds = append(s.Kinds, kind)
			}
		}
		got = append(got, s)
	}

	want := []summary{
		{Version: "20240101_000000", Name: "create_users", Description: "Create the users table", Kinds: []Kind{KindUp, KindDown, KindUpRollback}},
		{Version: "20240102_000000", Name: "add_email", Description: "add email", Irreversible: true, Kinds: []Kind{KindUp, KindDown}},
		{Version: "20240103_000000", Description: "", Irreversible: true, Kinds: []Kind{KindUp}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected migrations (-want +got):\n%s", diff)
	}
}

func TestScanner_ConflictingNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"20240101_000000_first.up.sql":  "SELECT 1;",
		"20240101_000000_second.up.sql": "SELECT 2;",
	})

	_, err := NewScanner(testfixtures.DiscardLogger()).Scan(dir)
	if !errors.Is(err, migration.ErrDuplicateVersion) {
		t.Fatalf("expected ErrDuplicateVersion, got %v", err)
	}
}

func TestScanner_MissingDirectory(t *testing.T) {
	migrations, err := NewScanner(nil).Scan(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("expected missing directory to be empty, got %v", err)
	}
	if len(migrations) != 0 {
		t.Fatalf("expected no migrations, got %d", len(migrations))
	}
}

func TestChecksum(t *testing.T) {
	a := checksum([]byte("CREATE TABLE t (id INTEGER);"))
	b := checksum([]byte("CREATE TABLE t (id INTEGER);"))
	c := checksum([]byte("CREATE TABLE u (id INTEGER);"))

	if a != b {
		t.Fatalf("expected identical content to share a checksum")
	}
	if a == c {
		t.Fatalf("expected different content to differ")
	}
	if len(a) != 64 {
		t.Fatalf("expected 256-bit hex digest, got %d characters", len(a))
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "header", content: "-- Description: Add index\nCREATE INDEX i ON t (id);", want: "Add index"},
		{name: "after other comments", content: "-- Author: ops\n-- Description: Seed data\nINSERT INTO t VALUES (1);", want: "Seed data"},
		{name: "after first statement", content: "SELECT 1;\n-- Description: too late", want: ""},
		{name: "empty value", content: "-- Description:\nSELECT 1;", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDescription(tt.content); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHasIrreversibleMarker(t *testing.T) {
	if !hasIrreversibleMarker("\n-- Description: drop data\n-- stepmigrate:irreversible\n") {
		t.Fatalf("expected marker in leading comments to be detected")
	}
	if hasIrreversibleMarker("DROP TABLE t;\n-- stepmigrate:irreversible\n") {
		t.Fatalf("marker after the first statement must be ignored")
	}
}
