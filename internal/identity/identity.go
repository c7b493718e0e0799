// Package identity derives the cheap metadata key that decides whether a
// file's fingerprints can be reused.
//
// A FileIdentity is (absolute path, size, modification time). Equal
// identities are assumed to have equal content. A rewrite that preserves
// path, size, and mtime is not detected; that limitation is accepted.
package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imagededup/internal/faults"
)

// FileIdentity keys fingerprint records.
type FileIdentity struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Stat re-reads the identity of path from the filesystem.
func Stat(path string) (FileIdentity, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileIdentity{}, faults.Wrap(faults.ErrUnreadable, "identity", "resolve", path, err)
	}
	abs = filepath.Clean(abs)
	info, err := os.Stat(abs)
	if err != nil {
		return FileIdentity{}, faults.Wrap(faults.ErrUnreadable, "identity", "stat", abs, err)
	}
	if !info.Mode().IsRegular() {
		return FileIdentity{}, faults.Wrap(faults.ErrUnreadable, "identity", "stat", abs, fmt.Errorf("not a regular file (%s)", info.Mode().Type()))
	}
	return New(abs, info.Size(), info.ModTime()), nil
}

// New builds an identity with mtime normalized to nanosecond wall time.
func New(path string, size int64, modTime time.Time) FileIdentity {
	return FileIdentity{Path: path, Size: size, ModTime: time.Unix(0, modTime.UnixNano())}
}

// Matches reports whether other describes the same path, size, and mtime.
func (id FileIdentity) Matches(other FileIdentity) bool {
	return id.Path == other.Path &&
		id.Size == other.Size &&
		id.ModTime.UnixNano() == other.ModTime.UnixNano()
}

// Lookup answers whether fingerprints are stored for an exact identity.
type Lookup interface {
	Contains(ctx context.Context, id FileIdentity) (bool, error)
}

// NeedsRecompute reports whether id has no stored record. Lookup failures
// are returned, never treated as a miss. The scanner needs the record itself
// and calls Get; this is the check used when only staleness matters, as on
// the review page.
func NeedsRecompute(ctx context.Context, id FileIdentity, lookup Lookup) (bool, error) {
	if lookup == nil {
		return true, nil
	}
	ok, err := lookup.Contains(ctx, id)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
