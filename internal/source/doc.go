// Package source discovers migration units stored as SQL scripts in a
// directory and registers them into a migration.Registry.
//
// Each migration is a group of files sharing one version:
//
//	20240101_120000_create_users.up.sql
//	20240101_120000_create_users.down.sql
//	20240101_120000_create_users.up_rollback.sql   (optional)
//	20240101_120000_create_users.down_rollback.sql (optional)
//
// Files that do not follow this naming are ignored. A migration without a down
// script, or whose down script carries the "-- stepmigrate:irreversible"
// marker, is one-way. Each script runs inside a single transaction.
package source
