package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"imagededup/internal/fingerprint"
	"imagededup/internal/identity"
)

// SQLite is the durable Store backed by a single database file.
type SQLite struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

const (
	sqliteBusyCode          = 5
	sqliteCorruptCode       = 11
	sqliteNotADBCode        = 26
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open acquires the store lock and opens (or creates) the database at path.
func Open(path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("fingerprint store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &SQLite{db: db, path: path, lock: lock}
	ctx := context.Background()
	if err := s.verify(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.initSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	pragmas := []string{
		"journal_mode(WAL)",
		"synchronous(FULL)",
		"busy_timeout(5000)",
	}
	var b strings.Builder
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

func (s *SQLite) verify(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.db.PingContext(checkCtx); err != nil {
		return classifyOpenError(s.path, "connect", err)
	}
	var result string
	if err := s.db.QueryRowContext(checkCtx, "PRAGMA quick_check").Scan(&result); err != nil {
		return classifyOpenError(s.path, "quick_check", err)
	}
	if !strings.EqualFold(result, "ok") {
		return fmt.Errorf("%w: %s failed integrity check (%s); %s", ErrCorrupt, s.path, result, resetHint)
	}
	return nil
}

func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code() & 0xff, true
	}
	return 0, false
}

func classifyOpenError(path, op string, err error) error {
	code, ok := sqliteCode(err)
	msg := err.Error()
	if (ok && (code == sqliteCorruptCode || code == sqliteNotADBCode)) ||
		strings.Contains(msg, "not a database") || strings.Contains(msg, "malformed") {
		return fmt.Errorf("%w: %s: %s: %v; %s", ErrCorrupt, path, op, err, resetHint)
	}
	return fmt.Errorf("open fingerprint store %s: %s: %w", path, op, err)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

const selectColumns = `path, size, mod_time, sha256, phash, dhash, perceptual, decode_error, computed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		path        string
		size        int64
		modTime     int64
		digest      []byte
		phash       sql.NullInt64
		dhash       sql.NullInt64
		perceptual  string
		decodeError string
		computedAt  int64
	)
	if err := row.Scan(&path, &size, &modTime, &digest, &phash, &dhash, &perceptual, &decodeError, &computedAt); err != nil {
		return Record{}, err
	}
	rec := Record{
		Identity:    identity.New(path, size, time.Unix(0, modTime)),
		Perceptual:  fingerprint.ParsePerceptualState(perceptual),
		DecodeError: decodeError,
		ComputedAt:  time.Unix(0, computedAt),
	}
	if len(digest) == len(rec.SHA256) {
		copy(rec.SHA256[:], digest)
	}
	if phash.Valid {
		rec.PHash = fingerprint.Hash(uint64(phash.Int64))
	}
	if dhash.Valid {
		rec.DHash = fingerprint.Hash(uint64(dhash.Int64))
	}
	// Hashes without a valid state are never trusted.
	if rec.Perceptual == fingerprint.Valid && (!phash.Valid || !dhash.Valid) {
		rec.Perceptual = fingerprint.NotComputed
	}
	return rec, nil
}

// Get returns the stored record when its identity matches id exactly.
func (s *SQLite) Get(ctx context.Context, id identity.FileIdentity) (Record, bool, error) {
	var rec Record
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM fingerprints WHERE path = ?`, id.Path)
		var scanErr error
		rec, scanErr = scanRecord(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get fingerprint %s: %w", id.Path, err)
	}
	if !rec.Identity.Matches(id) {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Contains reports whether a record exists for the exact identity. It is a
// COUNT query, so the review page can check many files without decoding blobs.
func (s *SQLite) Contains(ctx context.Context, id identity.FileIdentity) (bool, error) {
	var n int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM fingerprints WHERE path = ? AND size = ? AND mod_time = ?`,
			id.Path, id.Size, id.ModTime.UnixNano(),
		).Scan(&n)
	})
	if err != nil {
		return false, fmt.Errorf("lookup fingerprint %s: %w", id.Path, err)
	}
	return n > 0, nil
}

// Put upserts rec in one statement.
func (s *SQLite) Put(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	var digest any
	if rec.HasDigest() {
		digest = rec.SHA256[:]
	}
	var phash, dhash any
	if rec.Perceptual == fingerprint.Valid {
		phash = int64(rec.PHash)
		dhash = int64(rec.DHash)
	}
	computedAt := rec.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
INSERT INTO fingerprints (path, size, mod_time, sha256, phash, dhash, perceptual, decode_error, computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    size = excluded.size,
    mod_time = excluded.mod_time,
    sha256 = excluded.sha256,
    phash = excluded.phash,
    dhash = excluded.dhash,
    perceptual = excluded.perceptual,
    decode_error = excluded.decode_error,
    computed_at = excluded.computed_at`,
			rec.Identity.Path, rec.Identity.Size, rec.Identity.ModTime.UnixNano(),
			digest, phash, dhash, rec.Perceptual.String(), rec.DecodeError, computedAt.UnixNano(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("put fingerprint %s: %w", rec.Identity.Path, err)
	}
	return nil
}

// Clear deletes every record.
func (s *SQLite) Clear(ctx context.Context) (int, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM fingerprints`)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clear fingerprints: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear fingerprints: %w", err)
	}
	return int(n), nil
}

// All returns every record ordered by path.
func (s *SQLite) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM fingerprints ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database and releases the process lock.
func (s *SQLite) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
		s.lock = nil
	}
	return err
}
