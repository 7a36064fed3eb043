// Package progress persists migration outcomes in SQLite and makes
// interrupted runs safely resumable.
//
// The journal is keyed by action identity (target path) and is the only
// mutable state the migrator shares between workers. Entries are written with
// synchronous=FULL durability after copy-and-verify succeeds for an action,
// so a crash mid-run can never leave the journal claiming success for bytes
// that were not committed. The manifest itself is never touched.
//
// Treat this package as the single source of truth for journal semantics;
// schema changes bump the version in schema.go.
package progress
