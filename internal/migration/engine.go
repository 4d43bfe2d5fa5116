package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/stepmigrate/internal/logging"
)

// Engine moves the version store between catalog versions one unit at a time.
type Engine struct {
	catalog  Catalog
	store    VersionStore
	locker   Locker
	reset    func(ctx context.Context) error
	recorder StepRecorder
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
	newRunID func() string

	mu              sync.Mutex
	state           State
	initialVersion  Version
	initialCaptured bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker sets the lock held for the duration of MigrateToVersion and Clean.
func WithLocker(l Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithReset sets the environment reset callback run by Clean.
func WithReset(fn func(ctx context.Context) error) Option {
	return func(e *Engine) { e.reset = fn }
}

// WithStepRecorder overrides the step history sink. By default the version
// store is used when it implements StepRecorder.
func WithStepRecorder(r StepRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the base logger. A logger carried by the context wins.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers a callback for state transitions.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithClock sets the time source used for step durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunIDGenerator sets the generator of run identifiers.
func WithRunIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// NewEngine creates an Engine over catalog and store. Without WithLocker runs
// are not protected against concurrent processes.
func NewEngine(catalog Catalog, store VersionStore, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		store:    store,
		locker:   nopLocker{},
		logger:   slog.Default(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	if r, ok := store.(StepRecorder); ok {
		e.recorder = r
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the state of the latest run.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// InitialVersion returns the version read from the store by the first run of
// this engine, and false if the store was never read.
func (e *Engine) InitialVersion() (Version, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialVersion, e.initialCaptured
}

// MigrateToVersion applies or reverts units until the store holds target.
//
// It returns the version the store holds when the call ends, which is the
// last fully applied (or not yet reverted) unit on failure. The returned
// version is empty when the store was never read.
func (e *Engine) MigrateToVersion(ctx context.Context, target Version) (Version, error) {
	runID := e.newRunID()
	logger := e.runLogger(ctx, "migrate", runID).With("target", target)

	e.transition(Resolving, "")

	if _, err := ParseVersion(string(target)); err != nil {
		return "", e.fail(logger, "", err)
	}
	if !target.IsZero() && !e.catalog.Contains(target) {
		return "", e.fail(logger, "", fmt.Errorf("%w: target %s", ErrUnknownMigration, target))
	}

	release, err := e.locker.TryAcquire(ctx)
	if err != nil {
		return "", e.fail(logger, "", err)
	}
	defer e.release(logger, release)

	current, err := e.readCurrent(ctx)
	if err != nil {
		return current, e.fail(logger, current, err)
	}
	logger = logger.With("from", current)

	switch target.Compare(current) {
	case 0:
		logger.Info("already at target version")
		e.transition(Succeeded, current)
		return current, nil
	case 1:
		logger.Info("migrating up")
		return e.migrateUp(ctx, logger, runID, current, target)
	default:
		logger.Info("migrating down")
		return e.migrateDown(ctx, logger, runID, current, target)
	}
}

// Clean runs the environment reset callback, if any, and resets the store to
// Zero. It is never called by MigrateToVersion.
func (e *Engine) Clean(ctx context.Context) error {
	runID := e.newRunID()
	logger := e.runLogger(ctx, "clean", runID)

	e.transition(Resolving, "")

	release, err := e.locker.TryAcquire(ctx)
	if err != nil {
		return e.fail(logger, "", err)
	}
	defer e.release(logger, release)

	previous, err := e.store.Get(ctx)
	if err != nil {
		// A corrupt marker is exactly what Clean is for.
		logger.Warn("could not read current version before clean", "error", err)
	} else {
		e.captureInitial(previous)
		logger = logger.With("from", previous)
	}

	if e.reset != nil {
		logger.Info("resetting environment")
		if err := e.reset(ctx); err != nil {
			return e.fail(logger, previous, fmt.Errorf("reset environment: %w", err))
		}
	}

	if err := e.store.Set(ctx, Zero); err != nil {
		return e.fail(logger, previous, err)
	}

	logger.Info("environment cleaned", "version", Zero)
	e.transition(Succeeded, Zero)
	return nil
}

// Status describes the current version and every catalog entry.
type Status struct {
	Current Version
	Pending int
	Entries []StatusEntry
}

// StatusEntry describes one catalog entry.
type StatusEntry struct {
	Version     Version
	Description string
	Applied     bool
}

// Status reports which catalog entries are applied. It does not take the lock
// and never runs a unit. Reading a store that was never written stores Zero,
// as every VersionStore.Get does.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	current, err := e.readCurrent(ctx)
	if err != nil {
		return Status{}, err
	}

	versions := e.catalog.OrderedVersions()
	status := Status{
		Current: current,
		Entries: make([]StatusEntry, 0, len(versions)),
	}
	for _, v := range versions {
		entry := StatusEntry{Version: v, Applied: v.Compare(current) <= 0}
		if unit, err := e.catalog.UnitFor(v); err == nil {
			entry.Description = describe(unit)
		}
		if !entry.Applied {
			status.Pending++
		}
		status.Entries = append(status.Entries, entry)
	}
	return status, nil
}

func (e *Engine) migrateUp(ctx context.Context, logger *slog.Logger, runID string, current, target Version) (Version, error) {
	cur := current
	for cur.Less(target) {
		if err := ctx.Err(); err != nil {
			return cur, e.fail(logger, cur, fmt.Errorf("%w: stopped at %s: %w", ErrCanceled, cur, err))
		}

		next, ok := e.catalog.Next(cur)
		if !ok || target.Less(next) {
			return cur, e.fail(logger, cur, fmt.Errorf("%w: no migration after %s leads to %s", ErrUnknownMigration, cur, target))
		}
		unit, err := e.catalog.UnitFor(next)
		if err != nil {
			return cur, e.fail(logger, cur, err)
		}

		if err := e.upStep(ctx, logger, runID, next, unit); err != nil {
			return cur, e.fail(logger, cur, err)
		}
		cur = next
	}

	logger.Info("migration run completed", "version", cur)
	e.transition(Succeeded, cur)
	return cur, nil
}

func (e *Engine) migrateDown(ctx context.Context, logger *slog.Logger, runID string, current, target Version) (Version, error) {
	cur := current
	for target.Less(cur) {
		if err := ctx.Err(); err != nil {
			return cur, e.fail(logger, cur, fmt.Errorf("%w: stopped at %s: %w", ErrCanceled, cur, err))
		}

		unit, err := e.catalog.UnitFor(cur)
		if err != nil {
			return cur, e.fail(logger, cur, err)
		}

		prev, err := e.downStep(ctx, logger, runID, cur, unit)
		if err != nil {
			return cur, e.fail(logger, cur, err)
		}
		cur = prev
	}

	logger.Info("migration run completed", "version", cur)
	e.transition(Succeeded, cur)
	return cur, nil
}

// upStep applies one unit and persists its version. The unit, its rollback
// and the store write are shielded from cancellation.
func (e *Engine) upStep(ctx context.Context, logger *slog.Logger, runID string, v Version, unit Unit) error {
	stepCtx := context.WithoutCancel(ctx)
	stepLogger := logger.With("version", v, "direction", Up)

	e.transition(Applying, v)
	stepLogger.Info("applying migration", "description", describe(unit))
	start := e.now()

	if err := unit.Up(stepCtx); err != nil {
		stepLogger.Error("migration up failed", "error", err)
		merr := NewMigrationError(ErrApplyFailed, v, Up, err)

		e.transition(RollingBack, v)
		if rbErr := upRollback(stepCtx, unit); rbErr != nil {
			stepLogger.Warn("up rollback failed", "error", rbErr)
			merr.RollbackErr = rbErr
		}
		return merr
	}

	if err := e.store.Set(stepCtx, v); err != nil {
		return NewMigrationError(ErrStorage, v, Up, err)
	}

	duration := e.now().Sub(start)
	e.record(stepCtx, stepLogger, StepRecord{
		RunID:      runID,
		Version:    v,
		Direction:  Up,
		Result:     v,
		Duration:   duration,
		FinishedAt: e.now(),
	})
	stepLogger.Info("migration applied", "duration", duration)
	return nil
}

// downStep reverts one unit and persists the next lower version.
func (e *Engine) downStep(ctx context.Context, logger *slog.Logger, runID string, v Version, unit Unit) (Version, error) {
	stepCtx := context.WithoutCancel(ctx)
	stepLogger := logger.With("version", v, "direction", Down)

	e.transition(Applying, v)
	stepLogger.Info("reverting migration", "description", describe(unit))
	start := e.now()

	if err := unit.Down(stepCtx); err != nil {
		if errors.Is(err, ErrIrreversible) {
			stepLogger.Error("migration is one-way, halting")
			return "", NewMigrationError(ErrOneWayMigration, v, Down, err)
		}

		stepLogger.Error("migration down failed", "error", err)
		merr := NewMigrationError(ErrRevertFailed, v, Down, err)

		e.transition(RollingBack, v)
		if rbErr := downRollback(stepCtx, unit); rbErr != nil {
			stepLogger.Warn("down rollback failed", "error", rbErr)
			merr.RollbackErr = rbErr
		}
		return "", merr
	}

	prev, ok := e.catalog.Prev(v)
	if !ok {
		prev = Zero
	}
	if err := e.store.Set(stepCtx, prev); err != nil {
		return "", NewMigrationError(ErrStorage, v, Down, err)
	}

	duration := e.now().Sub(start)
	e.record(stepCtx, stepLogger, StepRecord{
		RunID:      runID,
		Version:    v,
		Direction:  Down,
		Result:     prev,
		Duration:   duration,
		FinishedAt: e.now(),
	})
	stepLogger.Info("migration reverted", "duration", duration, "stored", prev)
	return prev, nil
}

// readCurrent reads the store and checks the value against the catalog.
func (e *Engine) readCurrent(ctx context.Context) (Version, error) {
	current, err := e.store.Get(ctx)
	if err != nil {
		return "", err
	}
	e.captureInitial(current)

	if !current.IsZero() && !e.catalog.Contains(current) {
		return current, fmt.Errorf("%w: stored version %s is not a known migration", ErrCorruptVersionState, current)
	}
	return current, nil
}

func (e *Engine) record(ctx context.Context, logger *slog.Logger, rec StepRecord) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordStep(ctx, rec); err != nil {
		logger.Warn("failed to record migration step", "error", err)
	}
}

func (e *Engine) release(logger *slog.Logger, release func() error) {
	if err := release(); err != nil {
		logger.Warn("failed to release migration lock", "error", err)
	}
}

func (e *Engine) fail(logger *slog.Logger, v Version, err error) error {
	logger.Error("migration run failed", "version", v, "error_kind", ErrorKind(err), "error", err)
	e.transition(Failed, v)
	return err
}

func (e *Engine) transition(s State, v Version) {
	e.mu.Lock()
	e.state = s
	observer := e.observer
	e.mu.Unlock()

	if observer != nil {
		observer(s, v)
	}
}

func (e *Engine) captureInitial(v Version) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialCaptured {
		e.initialVersion, e.initialCaptured = v, true
	}
}

func (e *Engine) runLogger(ctx context.Context, operation, runID string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = e.logger
	}
	return logger.With("component", "engine", "operation", operation, "run_id", runID)
}
