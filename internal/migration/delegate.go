package migration

import (
	"context"
	"time"
)

// Delegate carries optional environment overrides. Every nil field falls back
// to the default behaviour of whoever resolves the delegate.
type Delegate struct {
	// VersionStore replaces the default file-backed version store.
	VersionStore func() (VersionStore, error)

	// MigrationsDir replaces the configured migrations directory.
	MigrationsDir func() string

	// Clean resets the application to a clean slate. It runs before the
	// version store is reset to Zero.
	Clean func(ctx context.Context) error
}

// StepRecord describes one successfully completed step.
type StepRecord struct {
	RunID      string
	Version    Version // Unit that ran
	Direction  Direction
	Result     Version // Version stored after the step
	Duration   time.Duration
	FinishedAt time.Time
}

// StepRecorder is implemented by version stores that keep a step history.
type StepRecorder interface {
	RecordStep(ctx context.Context, rec StepRecord) error
}
