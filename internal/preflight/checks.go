package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"imagededup/internal/store"
)

// Access selects the permissions CheckDirectoryAccess requires.
type Access int

const (
	// AccessRead requires list and traverse permission.
	AccessRead Access = iota
	// AccessReadWrite additionally requires write permission.
	AccessReadWrite
)

func (a Access) mask() uint32 {
	if a == AccessReadWrite {
		return unix.R_OK | unix.W_OK | unix.X_OK
	}
	return unix.R_OK | unix.X_OK
}

func (a Access) label() string {
	if a == AccessReadWrite {
		return "read/write ok"
	}
	return "read ok"
}

// CheckDirectoryAccess verifies that the directory exists with the requested access.
func CheckDirectoryAccess(name, path string, access Access) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, access.mask()); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, access.label())}
}

// CheckCreatableDirectory passes when path is a writable directory, or when
// it does not exist yet but its nearest existing ancestor is writable.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path, AccessReadWrite)
	}
	ancestor := path
	for {
		next := filepath.Dir(ancestor)
		if next == ancestor {
			break
		}
		ancestor = next
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
	}
	res := CheckDirectoryAccess(name, ancestor, AccessReadWrite)
	if !res.Passed {
		res.Detail = fmt.Sprintf("%s cannot be created: %s", path, res.Detail)
		return res
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckStore opens the fingerprint database and reports its record count.
// A missing database passes; it is created on the first scan.
func CheckStore(ctx context.Context, path string) Result {
	const name = "Fingerprint cache"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	st, err := store.Open(path)
	if err != nil {
		return Result{Name: name, Detail: summarizeStoreError(err)}
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return Result{Name: name, Detail: summarizeStoreError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d records)", path, stats.Records)}
}

// summarizeStoreError produces a human-readable summary for store open failures.
func summarizeStoreError(err error) string {
	switch {
	case errors.Is(err, store.ErrLocked):
		return "in use by another imagededup process"
	case errors.Is(err, store.ErrCorrupt):
		return "database is corrupt; run 'imagededup cache clear --force'"
	case errors.Is(err, store.ErrSchemaMismatch):
		return "database was written by an incompatible version; run 'imagededup cache clear --force'"
	default:
		return err.Error()
	}
}
