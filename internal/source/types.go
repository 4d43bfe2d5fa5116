package source

import (
	"github.com/example/stepmigrate/internal/migration"
)

// Kind identifies the role of a script within a migration.
type Kind string

const (
	KindUp           Kind = "up"
	KindDown         Kind = "down"
	KindUpRollback   Kind = "up_rollback"
	KindDownRollback Kind = "down_rollback"
)

// IrreversibleMarker marks a down script as one-way.
const IrreversibleMarker = "-- stepmigrate:irreversible"

// Script is one SQL file of a migration.
type Script struct {
	Kind     Kind
	Path     string // Path to the script file
	SQL      string // Script content
	Checksum string // blake2b-256 of the content, hex encoded
}

// Migration is the set of scripts sharing one version.
type Migration struct {
	Version      migration.Version
	Name         string // Name part of the file names, may be empty
	Description  string // From the "-- Description:" header, else from Name
	Irreversible bool   // Down is refused
	Scripts      map[Kind]*Script
}

// Script returns the script of the given kind, or nil.
func (m *Migration) Script(kind Kind) *Script {
	if m == nil {
		return nil
	}
	return m.Scripts[kind]
}

// Checksum returns the checksum of the up script.
func (m *Migration) Checksum() string {
	if up := m.Script(KindUp); up != nil {
		return up.Checksum
	}
	return ""
}
