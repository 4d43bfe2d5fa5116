package source

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/stepmigrate/internal/persistence/sqlite"
)

// Executor runs scripts against the target database.
type Executor struct {
	db *sql.DB
}

// NewExecutor creates an Executor for db. A nil db makes every run fail with
// ErrNoDatabase.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Run executes every statement of script inside one transaction.
func (e *Executor) Run(ctx context.Context, script *Script) error {
	statements := parseSQL(script.SQL)
	if len(statements) == 0 {
		return nil
	}
	if e.db == nil {
		return &ScriptError{Path: script.Path, Err: ErrNoDatabase}
	}

	err := sqlite.WithTransaction(ctx, e.db, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return &ScriptError{Path: script.Path, Statement: i + 1, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var scriptErr *ScriptError
		if errors.As(err, &scriptErr) {
			return err
		}
		return &ScriptError{Path: script.Path, Err: err}
	}
	return nil
}

// parseSQL splits content into statements on ";" and drops comment-only lines.
// Semicolons inside string literals or trigger bodies are not supported.
func parseSQL(content string) []string {
	var statements []string
	for _, stmt := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
