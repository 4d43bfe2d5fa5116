package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/example/stepmigrate/internal/migration"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const upTemplate = `-- Description: %s

`

const downTemplate = `-- Description: revert %s
-- Replace this file's content with "%s" if the migration cannot be reverted.

`

// Scaffold creates empty up and down scripts for a new migration stamped with
// now in UTC, and returns their paths. It never overwrites: if any script for
// the version already exists it fails with migration.ErrDuplicateVersion.
func Scaffold(dir string, now time.Time, name string) ([]string, error) {
	name = normalizeName(name)
	if name != "" && !namePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q may only contain letters, digits, '_' and '-'", ErrInvalidName, name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewFileSystemError(dir, "create directory", err)
	}

	version := migration.VersionAt(now)
	existing, err := filepath.Glob(filepath.Join(dir, string(version)+"*.sql"))
	if err != nil {
		return nil, NewFileSystemError(dir, "glob", err)
	}
	for _, path := range existing {
		if scriptPattern.MatchString(filepath.Base(path)) {
			return nil, fmt.Errorf("%w: %s already exists", migration.ErrDuplicateVersion, path)
		}
	}

	base := string(version)
	if name != "" {
		base += "_" + name
	}
	description := strings.ReplaceAll(name, "_", " ")
	if description == "" {
		description = base
	}

	files := []struct {
		kind    Kind
		content string
	}{
		{KindUp, fmt.Sprintf(upTemplate, description)},
		{KindDown, fmt.Sprintf(downTemplate, description, IrreversibleMarker)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, fmt.Sprintf("%s.%s.sql", base, f.kind))
		if err := writeNew(path, f.content); err != nil {
			for _, created := range paths {
				_ = os.Remove(created)
			}
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s already exists", migration.ErrDuplicateVersion, path)
		}
		return NewFileSystemError(path, "create file", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return NewFileSystemError(path, "write file", err)
	}
	if err := f.Close(); err != nil {
		return NewFileSystemError(path, "close file", err)
	}
	return nil
}
