// Package bootstrap resolves configuration and delegate overrides into a
// ready-to-run migration engine.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/stepmigrate/internal/config"
	"github.com/example/stepmigrate/internal/migration"
	"github.com/example/stepmigrate/internal/persistence/sqlite"
	"github.com/example/stepmigrate/internal/source"
)

// Runtime holds an engine and the resources it depends on.
type Runtime struct {
	Engine        *migration.Engine
	Catalog       *source.Catalog
	Store         migration.VersionStore
	MigrationsDir string
	LockPath      string

	closers []func() error
}

// Close releases database handles opened by New.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// New resolves every delegate override once and builds the engine. Delegate
// fields left nil fall back to cfg. Extra options are applied last.
func New(ctx context.Context, cfg config.Config, delegate migration.Delegate, logger *slog.Logger, opts ...migration.Option) (_ *Runtime, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{
		MigrationsDir: cfg.MigrationsDir,
		LockPath:      cfg.LockPath(),
	}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	if delegate.MigrationsDir != nil {
		rt.MigrationsDir = delegate.MigrationsDir()
	}

	databases := make(map[string]*sql.DB)
	open := func(dsn string) (*sql.DB, error) {
		if db, ok := databases[dsn]; ok {
			return db, nil
		}
		db, err := sqlite.Open(ctx, sqlite.DefaultConfig(dsn))
		if err != nil {
			return nil, err
		}
		databases[dsn] = db
		rt.closers = append(rt.closers, db.Close)
		return db, nil
	}

	var target *sql.DB
	if cfg.Target.DSN != "" {
		if target, err = open(cfg.Target.DSN); err != nil {
			return nil, fmt.Errorf("open target database: %w", err)
		}
	}

	if rt.Store, err = resolveStore(ctx, cfg, delegate, open); err != nil {
		return nil, err
	}

	exec := source.NewExecutor(target)
	if rt.Catalog, err = source.Load(rt.MigrationsDir, exec, logger); err != nil {
		return nil, fmt.Errorf("load migrations from %s: %w", rt.MigrationsDir, err)
	}

	reset, err := resolveReset(cfg, delegate, exec)
	if err != nil {
		return nil, err
	}

	engineOpts := []migration.Option{
		migration.WithLocker(migration.NewFileLock(rt.LockPath)),
		migration.WithLogger(logger),
		migration.WithReset(reset),
	}
	rt.Engine = migration.NewEngine(rt.Catalog, rt.Store, append(engineOpts, opts...)...)

	logger.Debug("migration runtime ready",
		"component", "bootstrap",
		"migrations_dir", rt.MigrationsDir,
		"migrations", rt.Catalog.Len(),
		"lock_file", rt.LockPath,
	)
	return rt, nil
}

func resolveStore(ctx context.Context, cfg config.Config, delegate migration.Delegate, open func(string) (*sql.DB, error)) (migration.VersionStore, error) {
	if delegate.VersionStore != nil {
		store, err := delegate.VersionStore()
		if err != nil {
			return nil, fmt.Errorf("delegate version store: %w", err)
		}
		if store == nil {
			return nil, errors.New("delegate version store: nil store")
		}
		return store, nil
	}

	switch cfg.Store.Kind {
	case config.StoreFile:
		return migration.NewFileStore(cfg.Store.VersionFile), nil
	case config.StoreSQLite:
		db, err := open(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open version store: %w", err)
		}
		return sqlite.NewVersionStore(ctx, db, cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown version store kind %q", cfg.Store.Kind)
	}
}

func resolveReset(cfg config.Config, delegate migration.Delegate, exec *source.Executor) (func(context.Context) error, error) {
	if delegate.Clean != nil {
		return delegate.Clean, nil
	}
	if cfg.Target.ResetSQL == "" {
		return nil, nil
	}

	content, err := os.ReadFile(filepath.Clean(cfg.Target.ResetSQL))
	if err != nil {
		return nil, source.NewFileSystemError(cfg.Target.ResetSQL, "read reset script", err)
	}
	script := &source.Script{Path: cfg.Target.ResetSQL, SQL: string(content)}
	return func(ctx context.Context) error {
		return exec.Run(ctx, script)
	}, nil
}
