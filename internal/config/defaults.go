package config

import "runtime"

// Scan modes accepted by scan.mode.
const (
	ModeBoth    = "both"
	ModeExact   = "exact"
	ModeSimilar = "similar"
)

// Threshold bounds for 64-bit perceptual hashes.
const (
	MinThreshold = 0
	MaxThreshold = 64
)

const (
	defaultThreshold       = 10
	defaultMode            = ModeBoth
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultBruteForceLimit = 256
)

// DefaultExtensions is the image extension allowlist, including camera RAW variants.
var DefaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif",
	".webp", ".heic", ".heif", ".raw", ".cr2", ".nef", ".arw",
	".dng", ".orf", ".rw2", ".pef", ".sr2",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	extensions := make([]string, len(DefaultExtensions))
	copy(extensions, DefaultExtensions)
	return Config{
		Paths: Paths{
			CachePath: defaultCachePath(),
		},
		Scan: Scan{
			Recursive:       true,
			Mode:            defaultMode,
			Threshold:       defaultThreshold,
			UseCache:        true,
			Workers:         runtime.GOMAXPROCS(0),
			Extensions:      extensions,
			BruteForceLimit: defaultBruteForceLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
