package migration

import (
	"context"
	"fmt"
	"sync"
)

// Locker provides mutual exclusion between migration runs.
type Locker interface {
	// TryAcquire obtains the lock without waiting. It fails with an error
	// matching ErrLockContention when the lock is already held. The returned
	// release function must be called once the run is over.
	TryAcquire(ctx context.Context) (release func() error, err error)
}

// ProcessLock is a Locker for runs sharing one process.
type ProcessLock struct {
	mu sync.Mutex
}

var _ Locker = (*ProcessLock)(nil)

// NewProcessLock creates a new ProcessLock.
func NewProcessLock() *ProcessLock {
	return &ProcessLock{}
}

// TryAcquire obtains the mutex or reports contention.
func (l *ProcessLock) TryAcquire(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire process lock: %w", err)
	}
	if !l.mu.TryLock() {
		return nil, fmt.Errorf("%w: in-process run active", ErrLockContention)
	}
	return func() error {
		l.mu.Unlock()
		return nil
	}, nil
}

type nopLocker struct{}

func (nopLocker) TryAcquire(context.Context) (func() error, error) {
	return func() error { return nil }, nil
}
