package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		return errors.New("paths.cache_path must be set")
	}
	return nil
}

func (c *Config) validateScan() error {
	switch c.Scan.Mode {
	case ModeBoth, ModeExact, ModeSimilar:
	default:
		return fmt.Errorf("scan.mode must be one of %q, %q or %q (got %q)", ModeBoth, ModeExact, ModeSimilar, c.Scan.Mode)
	}
	if err := ValidateThreshold(c.Scan.Threshold); err != nil {
		return err
	}
	if c.Scan.Workers < 1 {
		return errors.New("scan.workers must be positive")
	}
	if c.Scan.BruteForceLimit < 0 {
		return errors.New("scan.brute_force_limit must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

// ValidateThreshold rejects Hamming thresholds outside 0-64.
func ValidateThreshold(threshold int) error {
	if threshold < MinThreshold || threshold > MaxThreshold {
		return fmt.Errorf("scan.threshold must be between %d and %d (got %d)", MinThreshold, MaxThreshold, threshold)
	}
	return nil
}
