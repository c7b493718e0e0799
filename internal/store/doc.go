// Package store persists computed fingerprints so repeated and interrupted
// scans never recompute work for unchanged files.
//
// Records are keyed by absolute path and carry the size and mtime they were
// computed for. A lookup whose identity no longer matches the stored row is a
// miss, and the next Put replaces the row wholesale. Each Put is a single
// upsert statement, so a crash never leaves a half-written record.
//
// Two backends implement Store: an in-memory map for tests and a SQLite file
// (WAL journal, synchronous=FULL) guarded by an advisory lock so only one
// process writes at a time. An unreadable or mismatched database fails Open
// with ErrCorrupt or ErrSchemaMismatch instead of silently starting empty;
// Reset is the sanctioned way to discard it.
package store
