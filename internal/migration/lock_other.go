//go:build !unix

package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileLock is a Locker backed by the exclusive creation of a lock file. A
// crashed run leaves the file behind and it must be removed by hand.
type FileLock struct {
	path string
}

var _ Locker = (*FileLock)(nil)

// NewFileLock creates a FileLock on path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// TryAcquire creates the lock file or reports contention if it exists.
func (l *FileLock) TryAcquire(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire file lock: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLockContention, l.path)
		}
		return nil, fmt.Errorf("create lock file %s: %w", l.path, err)
	}

	return func() error {
		return errors.Join(f.Close(), os.Remove(l.path))
	}, nil
}
