// Package migration provides a versioned migration engine.
//
// The engine moves an application's persistent state between versions by
// running migration units one at a time, in chronological order:
//
//   - Version identifiers are timestamps of the form YYYYMMDD_HHMMSS; "0"
//     marks the state before any migration
//   - Up traversals apply units in ascending order, down traversals revert
//     them in descending order
//   - The current version is persisted after every successful step
//   - A failing step invokes that unit's rollback hook and stops the run
//   - A down step returning ErrIrreversible halts the run without touching
//     the version store
//
// Example usage:
//
//	registry := migration.NewRegistry()
//	registry.MustRegister("20240101_000000", newCreateUsers)
//	engine := migration.NewEngine(registry, migration.NewFileStore(".version"),
//		migration.WithLocker(migration.NewFileLock(".version.lock")))
//	if _, err := engine.MigrateToVersion(ctx, registry.Latest()); err != nil {
//		log.Fatalf("Migration failed: %v", err)
//	}
package migration
