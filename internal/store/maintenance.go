package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gofrs/flock"
)

// Stats returns record counts by completeness plus the on-disk footprint.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}
	row := s.db.QueryRowContext(ctx, `
SELECT
    COUNT(1),
    COALESCE(SUM(CASE WHEN sha256 IS NOT NULL THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN perceptual = 'valid' THEN 1 ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN perceptual = 'unreadable' THEN 1 ELSE 0 END), 0)
FROM fingerprints`)
	if err := row.Scan(&stats.Records, &stats.WithDigest, &stats.WithPerceptual, &stats.Unreadable); err != nil {
		return stats, fmt.Errorf("fingerprint stats: %w", err)
	}
	stats.SizeBytes = diskUsage(s.path)
	return stats, nil
}

func diskUsage(path string) int64 {
	var total int64
	for _, p := range databaseFiles(path) {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	return total
}

func databaseFiles(path string) []string {
	return []string{path, path + "-wal", path + "-shm"}
}

func acquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return lock, nil
}

// Reset deletes the database at path, including WAL side files. It refuses
// to run while another process holds the store.
func Reset(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("fingerprint store path cannot be empty")
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	lock, err := acquireLock(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(path + ".lock")
	}()

	for _, p := range databaseFiles(path) {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
