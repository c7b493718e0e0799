package store

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing caches must then be cleared.
const schemaVersion = 1

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return classifyOpenError(s.path, "check schema_version table", err)
	}

	if tableExists == 0 {
		var otherTables int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sqlite_master WHERE type='table'").Scan(&otherTables); err != nil {
			return classifyOpenError(s.path, "inspect tables", err)
		}
		if otherTables > 0 {
			return fmt.Errorf("%w: %s has no schema_version table; %s", ErrCorrupt, s.path, resetHint)
		}
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("%w: read schema version from %s: %v; %s", ErrCorrupt, s.path, err, resetHint)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d; %s",
			ErrSchemaMismatch, version, schemaVersion, resetHint)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
