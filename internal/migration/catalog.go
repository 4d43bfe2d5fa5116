package migration

import (
	"fmt"
	"slices"
	"sync"
)

// Catalog is the ordered set of known migrations.
type Catalog interface {
	// OrderedVersions returns every known version in ascending order
	OrderedVersions() []Version

	// UnitFor resolves a version to its unit
	UnitFor(v Version) (Unit, error)

	// Next returns the smallest version strictly greater than after
	Next(after Version) (Version, bool)

	// Prev returns the largest version strictly lower than before
	Prev(before Version) (Version, bool)

	// Contains reports whether v is a known version
	Contains(v Version) bool
}

// Registry is a Catalog populated explicitly with one factory per version.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[Version]Factory
}

var _ Catalog = (*Registry)(nil)

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Version]Factory)}
}

// Register adds the factory for version v.
func (r *Registry) Register(v Version, factory Factory) error {
	if !IsValidIdentifier(string(v)) {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	if factory == nil {
		return fmt.Errorf("migration %s: nil factory", v)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[v]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateVersion, v)
	}
	r.factories[v] = factory
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// build-time migration lists.
func (r *Registry) MustRegister(v Version, factory Factory) {
	if err := r.Register(v, factory); err != nil {
		panic(err)
	}
}

// OrderedVersions returns every registered version in ascending order.
func (r *Registry) OrderedVersions() []Version {
	r.mu.RLock()
	versions := make([]Version, 0, len(r.factories))
	for v := range r.factories {
		versions = append(versions, v)
	}
	r.mu.RUnlock()

	slices.SortFunc(versions, Version.Compare)
	return versions
}

// UnitFor builds the unit registered for v.
func (r *Registry) UnitFor(v Version) (Unit, error) {
	r.mu.RLock()
	factory, ok := r.factories[v]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMigration, v)
	}
	unit, err := factory()
	if err != nil {
		return nil, fmt.Errorf("build migration %s: %w", v, err)
	}
	if unit == nil {
		return nil, fmt.Errorf("build migration %s: factory returned nil unit", v)
	}
	return unit, nil
}

// Next returns the smallest registered version strictly greater than after.
func (r *Registry) Next(after Version) (Version, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var next Version
	found := false
	for v := range r.factories {
		if after.Less(v) && (!found || v.Less(next)) {
			next, found = v, true
		}
	}
	return next, found
}

// Prev returns the largest registered version strictly lower than before.
func (r *Registry) Prev(before Version) (Version, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var prev Version
	found := false
	for v := range r.factories {
		if v.Less(before) && (!found || prev.Less(v)) {
			prev, found = v, true
		}
	}
	return prev, found
}

// Contains reports whether v is registered.
func (r *Registry) Contains(v Version) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[v]
	return ok
}

// Latest returns the highest registered version, or Zero when empty.
func (r *Registry) Latest() Version {
	versions := r.OrderedVersions()
	if len(versions) == 0 {
		return Zero
	}
	return versions[len(versions)-1]
}

// Len returns the number of registered versions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
