package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDatabase indicates that a script unit ran without a target database
	ErrNoDatabase = errors.New("no target database configured")

	// ErrInvalidName indicates that a scaffold name contains unsupported characters
	ErrInvalidName = errors.New("invalid migration name")
)

// FileSystemError wraps file system related errors
type FileSystemError struct {
	Path      string // File or directory path
	Operation string // File system operation
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *FileSystemError) Error() string {
	return fmt.Sprintf("file system error (%s): %s: %v", e.Path, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error unwrapping
func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// NewFileSystemError creates a new FileSystemError
func NewFileSystemError(path, operation string, err error) *FileSystemError {
	return &FileSystemError{
		Path:      path,
		Operation: operation,
		Err:       err,
	}
}

// ScriptError reports a failure while executing a script statement
type ScriptError struct {
	Path      string // Script file
	Statement int    // 1-based statement index, 0 for transaction errors
	Err       error  // Underlying database error
}

// Error implements the error interface
func (e *ScriptError) Error() string {
	if e.Statement > 0 {
		return fmt.Sprintf("script %s: statement %d: %v", e.Path, e.Statement, e.Err)
	}
	return fmt.Sprintf("script %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping
func (e *ScriptError) Unwrap() error {
	return e.Err
}
