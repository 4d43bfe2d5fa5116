package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// VersionStore durably holds the current version.
type VersionStore interface {
	// Get returns the stored version. When nothing was ever stored it persists
	// Zero first and returns it.
	Get(ctx context.Context) (Version, error)

	// Set durably replaces the stored version.
	Set(ctx context.Context, v Version) error
}

// FileStore keeps the current version as a single line in a text file.
type FileStore struct {
	path string
}

var _ VersionStore = (*FileStore)(nil)

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads the stored version, bootstrapping the file with Zero on first use.
func (s *FileStore) Get(ctx context.Context) (Version, error) {
	raw, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", NewStorageError("get", s.path, err)
		}
		if err := s.Set(ctx, Zero); err != nil {
			return "", err
		}
		return Zero, nil
	}

	v, err := ParseVersion(string(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %s holds %q", ErrCorruptVersionState, s.path, strings.TrimSpace(string(raw)))
	}
	return v, nil
}

// Set writes v through a temporary file and renames it over the old value,
// so readers never observe a partial write.
func (s *FileStore) Set(_ context.Context, v Version) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewStorageError("set", s.path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return NewStorageError("set", s.path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(string(v) + "\n"); err != nil {
		_ = tmp.Close()
		cleanup()
		return NewStorageError("set", s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return NewStorageError("set", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return NewStorageError("set", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return NewStorageError("set", s.path, err)
	}

	// Persist the rename itself; not every platform can fsync a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// MemoryStore is a VersionStore held in memory.
type MemoryStore struct {
	mu     sync.Mutex
	value  Version
	set    bool
	writes int
}

var _ VersionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreAt creates a MemoryStore that already holds v.
func NewMemoryStoreAt(v Version) *MemoryStore {
	return &MemoryStore{value: v, set: true}
}

// Get returns the stored version, storing Zero on first use.
func (s *MemoryStore) Get(context.Context) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		s.value, s.set = Zero, true
		s.writes++
	}
	return s.value, nil
}

// Set replaces the stored version.
func (s *MemoryStore) Set(_ context.Context, v Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.set = v, true
	s.writes++
	return nil
}

// Writes returns how many times the value was written.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
