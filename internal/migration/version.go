package migration

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Version identifies a point in the migration sequence.
type Version string

// Zero is the version that precedes every migration.
const Zero Version = "0"

// VersionLayout is the time layout of a version identifier.
const VersionLayout = "20060102_150405"

var versionPattern = regexp.MustCompile(`^[0-9]{8}_[0-9]{6}$`)

// ParseVersion validates s and returns it as a Version.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == string(Zero) {
		return Zero, nil
	}
	if !versionPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q does not match YYYYMMDD_HHMMSS", ErrInvalidVersion, s)
	}
	return Version(s), nil
}

// IsValidIdentifier reports whether s is a real migration identifier.
// Zero is not an identifier.
func IsValidIdentifier(s string) bool {
	return versionPattern.MatchString(s)
}

// VersionAt returns the identifier stamped with t in UTC.
func VersionAt(t time.Time) Version {
	return Version(t.UTC().Format(VersionLayout))
}

// IsZero reports whether v is Zero.
func (v Version) IsZero() bool {
	return v == Zero
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to or
// after other. Zero sorts before every identifier.
func (v Version) Compare(other Version) int {
	switch {
	case v == other:
		return 0
	case v == Zero:
		return -1
	case other == Zero:
		return 1
	case v < other:
		return -1
	default:
		return 1
	}
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func (v Version) String() string {
	return string(v)
}
