package store

import (
	"context"
	"errors"
	"time"

	"imagededup/internal/fingerprint"
	"imagededup/internal/identity"
)

var (
	// ErrCorrupt indicates the database file cannot be read as a fingerprint store.
	ErrCorrupt = errors.New("fingerprint store is corrupt")
	// ErrSchemaMismatch indicates the database was written by an incompatible version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrLocked indicates another process holds the store.
	ErrLocked = errors.New("fingerprint store is locked by another process")
)

// resetHint is appended to fatal open errors.
const resetHint = "run 'imagededup cache clear --force' to discard it"

// Record holds every fingerprint computed for one file identity.
type Record struct {
	Identity identity.FileIdentity
	// SHA256 is zero when no exact-mode pass has run for this identity.
	SHA256      fingerprint.Digest
	PHash       fingerprint.Hash
	DHash       fingerprint.Hash
	Perceptual  fingerprint.PerceptualState
	DecodeError string
	ComputedAt  time.Time
}

// HasDigest reports whether the SHA-256 digest was computed.
func (r Record) HasDigest() bool {
	return !r.SHA256.IsZero()
}

// Covers reports whether r holds everything a pass needs.
func (r Record) Covers(needDigest, needPerceptual bool) bool {
	if needDigest && !r.HasDigest() {
		return false
	}
	if needPerceptual && r.Perceptual == fingerprint.NotComputed {
		return false
	}
	return true
}

// Stats summarizes store contents.
type Stats struct {
	Records    int
	WithDigest int
	// WithPerceptual counts records whose hashes are valid.
	WithPerceptual int
	Unreadable     int
	Path           string
	SizeBytes      int64
}

// Store is the fingerprint persistence contract.
type Store interface {
	// Get returns the record for id. ok is false when nothing is stored for
	// the exact (path, size, mtime) tuple.
	Get(ctx context.Context, id identity.FileIdentity) (Record, bool, error)
	// Put replaces the record for rec.Identity.Path atomically.
	Put(ctx context.Context, rec Record) error
	// Contains reports an exact-identity hit without loading the record. The
	// review page reaches it through identity.NeedsRecompute to flag files
	// that changed after a scan.
	Contains(ctx context.Context, id identity.FileIdentity) (bool, error)
	// Clear removes every record and returns how many were deleted.
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
	// All returns every stored record ordered by path.
	All(ctx context.Context) ([]Record, error)
	Close() error
}

func tally(stats *Stats, rec Record) {
	stats.Records++
	if rec.HasDigest() {
		stats.WithDigest++
	}
	switch rec.Perceptual {
	case fingerprint.Valid:
		stats.WithPerceptual++
	case fingerprint.Unreadable:
		stats.Unreadable++
	}
}
