package testsupport

import (
	"path/filepath"
	"testing"

	"imagededup/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CachePath = filepath.Join(base, "cache", "cache.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Scan.Workers = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMode sets scan.mode.
func WithMode(mode string) ConfigOption {
	return func(c *config.Config) { c.Scan.Mode = mode }
}

// WithThreshold sets scan.threshold.
func WithThreshold(threshold int) ConfigOption {
	return func(c *config.Config) { c.Scan.Threshold = threshold }
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Paths.CachePath))
}
