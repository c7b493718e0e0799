package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imagededup/internal/store"
)

type cacheStatsView struct {
	Path           string `json:"path"`
	SizeBytes      int64  `json:"size_bytes"`
	Records        int    `json:"records"`
	WithDigest     int    `json:"with_sha256"`
	WithPerceptual int    `json:"with_perceptual"`
	Unreadable     int    `json:"unreadable"`
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the fingerprint cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fingerprint cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, cacheStatsView{
					Path:           stats.Path,
					SizeBytes:      stats.SizeBytes,
					Records:        stats.Records,
					WithDigest:     stats.WithDigest,
					WithPerceptual: stats.WithPerceptual,
					Unreadable:     stats.Unreadable,
				})
			}
			renderCacheStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached fingerprints",
		Long: `Remove all cached fingerprints. The next scan recomputes everything.

With --force the database file itself is deleted without being opened, which
recovers from a corrupt or incompatible cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if force {
				if err := store.Reset(cfg.Paths.CachePath); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"path": cfg.Paths.CachePath, "deleted": true})
				}
				fmt.Fprintf(out, "Deleted fingerprint cache %s\n", cfg.Paths.CachePath)
				return nil
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			removed, err := st.Clear(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"path": cfg.Paths.CachePath, "removed": removed})
			}
			fmt.Fprintf(out, "Removed %s cached fingerprints\n", counts.Sprintf("%d", removed))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete the database file instead of emptying it")
	return cmd
}
