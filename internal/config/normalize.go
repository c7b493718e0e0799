package config

import (
	"fmt"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOrganize(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		c.Paths.CachePath = defaultCachePath()
	}
	if c.Paths.CachePath, err = expandPath(strings.TrimSpace(c.Paths.CachePath)); err != nil {
		return fmt.Errorf("paths.cache_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOrganize() error {
	var err error
	if c.Organize.MoveTo, err = expandPath(strings.TrimSpace(c.Organize.MoveTo)); err != nil {
		return fmt.Errorf("organize.move_to: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	c.Scan.Mode = NormalizeMode(c.Scan.Mode)
	if c.Scan.Workers == 0 {
		c.Scan.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Scan.BruteForceLimit <= 0 {
		c.Scan.BruteForceLimit = defaultBruteForceLimit
	}
	c.Scan.Extensions = NormalizeExtensions(c.Scan.Extensions)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// NormalizeMode lowercases a mode value and maps the empty string to "both".
// Unknown values are returned as-is so Validate can reject them.
func NormalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "":
		return ModeBoth
	case "exact-only", "exact_only":
		return ModeExact
	case "similar-only", "similar_only":
		return ModeSimilar
	default:
		return mode
	}
}

// NormalizeExtensions lowercases, dot-prefixes, and deduplicates extensions.
// An empty input yields DefaultExtensions.
func NormalizeExtensions(values []string) []string {
	if len(values) == 0 {
		out := make([]string, len(DefaultExtensions))
		copy(out, DefaultExtensions)
		return out
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, ext := range values {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		out = make([]string, len(DefaultExtensions))
		copy(out, DefaultExtensions)
	}
	return out
}
