package preflight

import (
	"context"
	"path/filepath"

	"imagededup/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the checks relevant to scanning roots with cfg.
// Optional paths are only checked when configured.
func RunAll(ctx context.Context, cfg *config.Config, roots []string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	for _, root := range roots {
		results = append(results, CheckDirectoryAccess("Scan root", root, AccessRead))
	}

	results = append(results, CheckCreatableDirectory("Cache directory", filepath.Dir(cfg.Paths.CachePath)))
	results = append(results, CheckStore(ctx, cfg.Paths.CachePath))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckCreatableDirectory("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Organize.MoveTo != "" {
		results = append(results, CheckCreatableDirectory("Move destination", cfg.Organize.MoveTo))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
