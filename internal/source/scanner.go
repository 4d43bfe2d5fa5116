package source

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/example/stepmigrate/internal/migration"
)

// scriptPattern matches {version}[_{name}].{kind}.sql
var scriptPattern = regexp.MustCompile(`^([0-9]{8}_[0-9]{6})(?:_([a-zA-Z0-9_-]+))?\.(up|down|up_rollback|down_rollback)\.sql$`)

// Scanner reads migration scripts from a directory.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner creates a Scanner. A nil logger discards debug output.
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger.With("component", "source")}
}

// Scan returns the migrations found in dir in ascending version order.
// A missing directory yields no migrations.
func (s *Scanner) Scan(dir string) ([]*Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("migrations directory does not exist", "dir", dir)
			return nil, nil
		}
		return nil, NewFileSystemError(dir, "read directory", err)
	}

	byVersion := make(map[migration.Version]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := scriptPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			s.logger.Debug("ignoring file with non-conforming name", "file", entry.Name())
			continue
		}
		version, name, kind := migration.Version(matches[1]), matches[2], Kind(matches[3])

		path := filepath.Join(dir, entry.Name())
		script, err := readScript(path, kind)
		if err != nil {
			return nil, err
		}

		m, exists := byVersion[version]
		if !exists {
			m = &Migration{Version: version, Name: name, Scripts: make(map[Kind]*Script)}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("%w: %s is used by %q and %q", migration.ErrDuplicateVersion, version, m.Name, name)
		}
		m.Scripts[kind] = script
	}

	migrations := make([]*Migration, 0, len(byVersion))
	checksums := make(map[string]migration.Version)
	for _, m := range byVersion {
		up := m.Script(KindUp)
		if up == nil {
			s.logger.Warn("ignoring migration without up script", "version", m.Version)
			continue
		}

		m.Description = extractDescription(up.SQL)
		if m.Description == "" {
			m.Description = strings.ReplaceAll(m.Name, "_", " ")
		}
		down := m.Script(KindDown)
		m.Irreversible = down == nil || hasIrreversibleMarker(down.SQL)

		migrations = append(migrations, m)
	}

	slices.SortFunc(migrations, func(a, b *Migration) int {
		return a.Version.Compare(b.Version)
	})
	for _, m := range migrations {
		if other, dup := checksums[m.Checksum()]; dup {
			s.logger.Warn("migrations have identical up scripts", "version", m.Version, "duplicate_of", other)
			continue
		}
		checksums[m.Checksum()] = m.Version
	}
	return migrations, nil
}

func readScript(path string, kind Kind) (*Script, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewFileSystemError(path, "read file", err)
	}
	return &Script{
		Kind:     kind,
		Path:     path,
		SQL:      string(content),
		Checksum: checksum(content),
	}, nil
}

// checksum returns the hex encoded blake2b-256 digest of content.
func checksum(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// extractDescription reads a "-- Description:" line from the leading comment block.
func extractDescription(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			if description := strings.TrimSpace(rest); description != "" {
				return description
			}
		}
	}
	return ""
}

// hasIrreversibleMarker reports whether the leading comment block carries
// IrreversibleMarker.
func hasIrreversibleMarker(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			return false
		}
		if strings.EqualFold(line, IrreversibleMarker) {
			return true
		}
	}
	return false
}
