package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/stepmigrate/internal/migration"
)

const (
	createVersionTableSQL = `
		CREATE TABLE IF NOT EXISTS stepmigrate_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`

	createHistoryTableSQL = `
		CREATE TABLE IF NOT EXISTS stepmigrate_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			version TEXT NOT NULL,
			direction TEXT NOT NULL,
			result TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			finished_at TEXT NOT NULL
		)`

	selectVersionSQL = `SELECT version FROM stepmigrate_version WHERE id = 1`

	upsertVersionSQL = `
		INSERT INTO stepmigrate_version (id, version, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version, updated_at = excluded.updated_at`

	insertHistorySQL = `
		INSERT INTO stepmigrate_history (run_id, version, direction, result, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	selectHistorySQL = `
		SELECT run_id, version, direction, result, duration_ms, finished_at
		FROM stepmigrate_history
		ORDER BY id ASC`
)

// VersionStore is a migration.VersionStore kept in a SQLite database. It also
// records completed steps, so engines pick it up as their StepRecorder.
type VersionStore struct {
	db       *sql.DB
	location string
	now      func() time.Time
}

var (
	_ migration.VersionStore = (*VersionStore)(nil)
	_ migration.StepRecorder = (*VersionStore)(nil)
)

// StoreOption configures a VersionStore.
type StoreOption func(*VersionStore)

// WithStoreClock sets the time source for updated_at stamps.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *VersionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewVersionStore creates the state tables when missing. location names the
// database in errors.
func NewVersionStore(ctx context.Context, db *sql.DB, location string, opts ...StoreOption) (*VersionStore, error) {
	s := &VersionStore{db: db, location: location, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	for _, stmt := range []string{createVersionTableSQL, createHistoryTableSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, migration.NewStorageError("bootstrap", location, err)
		}
	}
	return s, nil
}

// Get returns the stored version, inserting Zero when the table is empty.
func (s *VersionStore) Get(ctx context.Context) (migration.Version, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, selectVersionSQL).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.Set(ctx, migration.Zero); err != nil {
			return "", err
		}
		return migration.Zero, nil
	}
	if err != nil {
		return "", migration.NewStorageError("get", s.location, err)
	}

	v, err := migration.ParseVersion(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s holds %q", migration.ErrCorruptVersionState, s.location, raw)
	}
	return v, nil
}

// Set replaces the stored version.
func (s *VersionStore) Set(ctx context.Context, v migration.Version) error {
	if _, err := s.db.ExecContext(ctx, upsertVersionSQL, string(v), s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return migration.NewStorageError("set", s.location, err)
	}
	return nil
}

// RecordStep appends a completed step to the history table.
func (s *VersionStore) RecordStep(ctx context.Context, rec migration.StepRecord) error {
	_, err := s.db.ExecContext(ctx, insertHistorySQL,
		rec.RunID,
		string(rec.Version),
		string(rec.Direction),
		string(rec.Result),
		rec.Duration.Milliseconds(),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return migration.NewStorageError("record step", s.location, err)
	}
	return nil
}

// History returns every recorded step, oldest first.
func (s *VersionStore) History(ctx context.Context) ([]migration.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectHistorySQL)
	if err != nil {
		return nil, migration.NewStorageError("history", s.location, err)
	}
	defer rows.Close()

	var records []migration.StepRecord
	for rows.Next() {
		var (
			runID, version, direction, result, finishedAt string
			durationMs                                    int64
		)
		if err := rows.Scan(&runID, &version, &direction, &result, &durationMs, &finishedAt); err != nil {
			return nil, migration.NewStorageError("history", s.location, err)
		}

		finished, err := time.Parse(time.RFC3339Nano, finishedAt)
		if err != nil {
			return nil, migration.NewStorageError("history", s.location, fmt.Errorf("parse finished_at %q: %w", finishedAt, err))
		}

		records = append(records, migration.StepRecord{
			RunID:      runID,
			Version:    migration.Version(version),
			Direction:  migration.Direction(direction),
			Result:     migration.Version(result),
			Duration:   time.Duration(durationMs) * time.Millisecond,
			FinishedAt: finished,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, migration.NewStorageError("history", s.location, err)
	}
	return records, nil
}
