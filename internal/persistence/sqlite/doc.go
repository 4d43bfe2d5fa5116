// Package sqlite keeps migration state in a SQLite database through the pure
// Go modernc.org/sqlite driver.
//
// It provides the connection setup shared by every database the tool talks
// to, a transaction helper used by SQL script units, and VersionStore, which
// stores the current version in a single-row table and records every
// completed step in a history table:
//
//	db, err := sqlite.Open(ctx, sqlite.DefaultConfig("state.db"))
//	if err != nil {
//		return err
//	}
//	store, err := sqlite.NewVersionStore(ctx, db, "state.db")
//	if err != nil {
//		return err
//	}
//	engine := migration.NewEngine(registry, store)
package sqlite
