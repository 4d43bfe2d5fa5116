package migration_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/stepmigrate/internal/migration"
	"github.com/example/stepmigrate/internal/testfixtures"
)

func TestFileLock_ExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "migrate.lock")
	ctx := context.Background()

	first := migration.NewFileLock(path)
	second := migration.NewFileLock(path)

	release, err := first.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("TryAcquire returned error: %v", err)
	}
	if _, err := second.TryAcquire(ctx); !errors.Is(err, migration.ErrLockContention) {
		t.Fatalf("expected ErrLockContention, got %v", err)
	}

	if err := release(); err != nil {
		t.Fatalf("release returned error: %v", err)
	}
	release, err = second.TryAcquire(ctx)
	if err != nil {
		t.Fatalf("expected lock to be free after release, got %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("release returned error: %v", err)
	}
}

func TestFileLock_GuardsEngines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.lock")
	set := testfixtures.NewUnitSet(v1)
	engine := newEngine(set, migration.NewMemoryStore(), migration.WithLocker(migration.NewFileLock(path)))
	ctx := context.Background()

	release, err := migration.NewFileLock(path).TryAcquire(ctx)
	if err != nil {
		t.Fatalf("TryAcquire returned error: %v", err)
	}
	defer func() { _ = release() }()

	_, err = engine.MigrateToVersion(ctx, v1)
	if !errors.Is(err, migration.ErrLockContention) {
		t.Fatalf("expected ErrLockContention, got %v", err)
	}
	if migration.ErrorKind(err) != "lock_contention" {
		t.Fatalf("expected lock_contention kind")
	}
}

func TestLockers_RejectCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lockers := map[string]migration.Locker{
		"process": migration.NewProcessLock(),
		"file":    migration.NewFileLock(filepath.Join(t.TempDir(), "lock")),
	}
	for name, l := range lockers {
		if _, err := l.TryAcquire(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got %v", name, err)
		}
	}
}
