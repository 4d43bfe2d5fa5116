package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage indicates that the version store could not be read or written
	ErrStorage = errors.New("version store failure")

	// ErrUnknownMigration indicates that a version is not present in the catalog
	ErrUnknownMigration = errors.New("unknown migration")

	// ErrCorruptVersionState indicates that the stored version does not match any catalog entry
	ErrCorruptVersionState = errors.New("stored version does not match the catalog")

	// ErrApplyFailed indicates that a unit's up step failed
	ErrApplyFailed = errors.New("migration apply failed")

	// ErrRevertFailed indicates that a unit's down step failed
	ErrRevertFailed = errors.New("migration revert failed")

	// ErrOneWayMigration indicates that a down traversal reached an irreversible unit
	ErrOneWayMigration = errors.New("one-way migration cannot be reverted")

	// ErrLockContention indicates that another run holds the migration lock
	ErrLockContention = errors.New("migration lock is held by another run")

	// ErrCanceled indicates that a run stopped at a step boundary because its context was done
	ErrCanceled = errors.New("migration run canceled")

	// ErrIrreversible is returned by Unit.Down when the unit cannot be reverted
	ErrIrreversible = errors.New("migration is irreversible")

	// ErrInvalidVersion indicates that a version identifier is malformed
	ErrInvalidVersion = errors.New("invalid migration version")

	// ErrDuplicateVersion indicates that multiple migrations share a version
	ErrDuplicateVersion = errors.New("duplicate migration version")
)

// Direction is the traversal direction of a step.
type Direction string

const (
	// Up applies units in ascending order.
	Up Direction = "up"
	// Down reverts units in descending order.
	Down Direction = "down"
)

// MigrationError reports which unit failed, in which direction, and why.
type MigrationError struct {
	Kind        error     // One of the package sentinels
	Version     Version   // Unit that failed
	Direction   Direction // Direction of the failed step
	Err         error     // Original cause
	RollbackErr error     // Failure of the rollback hook, if any
}

// Error implements the error interface
func (e *MigrationError) Error() string {
	msg := fmt.Sprintf("migration %s (%s): %v", e.Version, e.Direction, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback also failed: %v)", e.RollbackErr)
	}
	return msg
}

// Unwrap exposes both the kind and the original cause.
func (e *MigrationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewMigrationError creates a new MigrationError
func NewMigrationError(kind error, version Version, direction Direction, err error) *MigrationError {
	return &MigrationError{
		Kind:      kind,
		Version:   version,
		Direction: direction,
		Err:       err,
	}
}

// StorageError wraps version store failures
type StorageError struct {
	Operation string // get, set, bootstrap
	Location  string // File path or DSN
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("version store %s (%s): %v", e.Operation, e.Location, e.Err)
	}
	return fmt.Sprintf("version store %s: %v", e.Operation, e.Err)
}

// Unwrap returns ErrStorage and the underlying error
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NewStorageError creates a new StorageError
func NewStorageError(operation, location string, err error) *StorageError {
	return &StorageError{
		Operation: operation,
		Location:  location,
		Err:       err,
	}
}

// ErrorKind maps engine errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrLockContention):
		return "lock_contention"
	case errors.Is(err, ErrCorruptVersionState):
		return "corrupt_version_state"
	case errors.Is(err, ErrUnknownMigration):
		return "unknown_migration"
	case errors.Is(err, ErrOneWayMigration):
		return "one_way"
	case errors.Is(err, ErrApplyFailed):
		return "apply"
	case errors.Is(err, ErrRevertFailed):
		return "revert"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrInvalidVersion):
		return "invalid_version"
	}
	return "unexpected"
}
