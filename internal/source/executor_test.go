package source

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/stepmigrate/internal/testfixtures"
)

func TestParseSQL(t *testing.T) {
	content := `-- Description: create tables
CREATE TABLE a (
  id INTEGER -- inline comments stay
);

-- a comment only statement;
CREATE TABLE b (id INTEGER);
`
	want := []string{
		"CREATE TABLE a (\nid INTEGER -- inline comments stay\n)",
		"CREATE TABLE b (id INTEGER)",
	}
	if diff := cmp.Diff(want, parseSQL(content)); diff != "" {
		t.Fatalf("unexpected statements (-want +got):\n%s", diff)
	}
}

func TestExecutor_RunIsTransactional(t *testing.T) {
	ctx := context.Background()
	h := testfixtures.NewSQLiteHarness(t)
	exec := NewExecutor(h.DB)

	err := exec.Run(ctx, &Script{
		Path: "broken.up.sql",
		SQL:  "CREATE TABLE widgets (id INTEGER);\nINSERT INTO missing VALUES (1);",
	})
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected ScriptError, got %v", err)
	}
	if scriptErr.Statement != 2 || scriptErr.Path != "broken.up.sql" {
		t.Fatalf("unexpected error location: %+v", scriptErr)
	}
	if h.TableExists(t, "widgets") {
		t.Fatalf("expected first statement to be rolled back")
	}

	if err := exec.Run(ctx, &Script{SQL: "CREATE TABLE widgets (id INTEGER);"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !h.TableExists(t, "widgets") {
		t.Fatalf("expected widgets table to exist")
	}
}

func TestExecutor_WithoutDatabase(t *testing.T) {
	exec := NewExecutor(nil)
	ctx := context.Background()

	if err := exec.Run(ctx, &Script{SQL: "-- nothing to do\n"}); err != nil {
		t.Fatalf("expected comment-only script to be a no-op, got %v", err)
	}
	if err := exec.Run(ctx, &Script{SQL: "SELECT 1;"}); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
}
