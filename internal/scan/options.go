package scan

import (
	"fmt"

	"imagededup/internal/config"
	"imagededup/internal/faults"
	"imagededup/internal/grouping"
)

// Options controls one scan invocation.
type Options struct {
	Roots           []string
	Recursive       bool
	Mode            string
	Threshold       int
	UseCache        bool
	Workers         int
	Extensions      []string
	SkipExactCopies bool
	BruteForceLimit int
}

// OptionsFromConfig copies the [scan] section and attaches roots.
func OptionsFromConfig(cfg *config.Config, roots []string) Options {
	return Options{
		Roots:           append([]string(nil), roots...),
		Recursive:       cfg.Scan.Recursive,
		Mode:            cfg.Scan.Mode,
		Threshold:       cfg.Scan.Threshold,
		UseCache:        cfg.Scan.UseCache,
		Workers:         cfg.Scan.Workers,
		Extensions:      append([]string(nil), cfg.Scan.Extensions...),
		SkipExactCopies: cfg.Scan.SkipExactCopies,
		BruteForceLimit: cfg.Scan.BruteForceLimit,
	}
}

func (o *Options) normalize() error {
	o.Mode = config.NormalizeMode(o.Mode)
	switch o.Mode {
	case config.ModeBoth, config.ModeExact, config.ModeSimilar:
	default:
		return faults.Wrap(faults.ErrConfiguration, "scan", "options", fmt.Sprintf("unknown mode %q", o.Mode), nil)
	}
	if err := config.ValidateThreshold(o.Threshold); err != nil {
		return faults.Wrap(faults.ErrConfiguration, "scan", "options", "", err)
	}
	if o.Workers < 1 {
		return faults.Wrap(faults.ErrConfiguration, "scan", "options", fmt.Sprintf("workers must be positive (got %d)", o.Workers), nil)
	}
	if len(o.Roots) == 0 {
		return faults.Wrap(faults.ErrConfiguration, "scan", "options", "at least one directory is required", nil)
	}
	if o.BruteForceLimit <= 0 {
		o.BruteForceLimit = grouping.DefaultBruteForceLimit
	}
	o.Extensions = config.NormalizeExtensions(o.Extensions)
	return nil
}

func (o Options) wantExact() bool {
	return o.Mode != config.ModeSimilar
}

func (o Options) wantSimilar() bool {
	return o.Mode != config.ModeExact
}

// needDigest reports whether SHA-256 must be available for every file.
func (o Options) needDigest() bool {
	return o.wantExact() || (o.wantSimilar() && o.SkipExactCopies)
}
