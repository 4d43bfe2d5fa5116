package source

import (
	"fmt"
	"log/slog"

	"github.com/example/stepmigrate/internal/migration"
)

// Catalog is a registry of script units together with the scanned scripts.
type Catalog struct {
	*migration.Registry
	migrations map[migration.Version]*Migration
}

// Lookup returns the scanned migration for v.
func (c *Catalog) Lookup(v migration.Version) (*Migration, bool) {
	m, ok := c.migrations[v]
	return m, ok
}

// Load scans dir and registers one unit per migration, executed by exec.
func Load(dir string, exec *Executor, logger *slog.Logger) (*Catalog, error) {
	migrations, err := NewScanner(logger).Scan(dir)
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{
		Registry:   migration.NewRegistry(),
		migrations: make(map[migration.Version]*Migration, len(migrations)),
	}
	for _, m := range migrations {
		if err := catalog.Register(m.Version, migration.Static(NewUnit(m, exec))); err != nil {
			return nil, fmt.Errorf("register %s: %w", m.Version, err)
		}
		catalog.migrations[m.Version] = m
	}
	return catalog, nil
}
