package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"imagededup/internal/config"
	"imagededup/internal/fingerprint"
	"imagededup/internal/logging"
	"imagededup/internal/organizer"
	"imagededup/internal/scan"
)

type scanFlags struct {
	noRecursive     bool
	mode            string
	exactOnly       bool
	similarOnly     bool
	threshold       int
	noCache         bool
	workers         int
	skipExactCopies bool
	moveTo          string
	dryRun          bool
}

// scanOutput is the --json document for a scan.
type scanOutput struct {
	*scan.Result
	Organize *organizer.Report `json:"organize,omitempty"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan DIR...",
		Short: "Scan directories for duplicate and similar images",
		Example: `  imagededup scan ~/Photos
  imagededup scan ~/Photos ~/Downloads --threshold 5
  imagededup scan ~/Photos --exact-only --move-to ~/Duplicates --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := scan.OptionsFromConfig(cfg, args)
			applyScanFlags(cmd, &opts, flags)

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			progress := newScanProgress(cmd.ErrOrStderr(), !ctx.jsonOutput())
			scanner := scan.New(st, fingerprint.NewCodec(), logger, scan.WithProgress(progress.update))
			result, err := scanner.Run(cmd.Context(), opts)
			progress.finish()
			if err != nil {
				return err
			}

			output := scanOutput{Result: result}
			moveTo := cfg.Organize.MoveTo
			if cmd.Flags().Changed("move-to") {
				moveTo = strings.TrimSpace(flags.moveTo)
			}
			if moveTo != "" {
				dryRun := cfg.Organize.DryRun || flags.dryRun
				report, err := organize(cmd, logger, moveTo, dryRun, result)
				if err != nil {
					return err
				}
				output.Organize = &report
			} else if flags.dryRun {
				logger.Warn("--dry-run has no effect without a move destination",
					logging.String(logging.FieldEventType, "dry_run_ignored"),
					logging.String(logging.FieldErrorHint, "pass --move-to or set organize.move_to"),
					logging.String(logging.FieldImpact, "nothing is moved"),
				)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, output)
			}
			out := cmd.OutOrStdout()
			renderScanResult(out, result)
			if output.Organize != nil {
				renderOrganizeReport(out, *output.Organize)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.noRecursive, "no-recursive", "n", false, "Don't scan subdirectories")
	f.StringVar(&flags.mode, "mode", "", "Duplicate classes to report: both, exact or similar")
	f.BoolVarP(&flags.exactOnly, "exact-only", "e", false, "Only find byte-identical files (skips perceptual hashing)")
	f.BoolVarP(&flags.similarOnly, "similar-only", "s", false, "Only find visually similar images")
	f.IntVarP(&flags.threshold, "threshold", "t", 0, "Maximum Hamming distance for similar images (0-64, lower is stricter)")
	f.BoolVar(&flags.noCache, "no-cache", false, "Recompute every fingerprint (results are still cached)")
	f.IntVarP(&flags.workers, "workers", "w", 0, "Number of hashing workers")
	f.BoolVar(&flags.skipExactCopies, "skip-exact-copies", false, "Cluster only one copy of each exact duplicate set")
	f.StringVarP(&flags.moveTo, "move-to", "m", "", "Move non-representative duplicates to this directory")
	f.BoolVarP(&flags.dryRun, "dry-run", "d", false, "Show what would be moved without moving")
	cmd.MarkFlagsMutuallyExclusive("mode", "exact-only", "similar-only")

	return cmd
}

// applyScanFlags overlays explicitly set flags on config-derived options.
func applyScanFlags(cmd *cobra.Command, opts *scan.Options, flags scanFlags) {
	f := cmd.Flags()
	if flags.noRecursive {
		opts.Recursive = false
	}
	switch {
	case flags.exactOnly:
		opts.Mode = config.ModeExact
	case flags.similarOnly:
		opts.Mode = config.ModeSimilar
	case f.Changed("mode"):
		opts.Mode = flags.mode
	}
	if f.Changed("threshold") {
		opts.Threshold = flags.threshold
	}
	if flags.noCache {
		opts.UseCache = false
	}
	if f.Changed("workers") {
		opts.Workers = flags.workers
	}
	if flags.skipExactCopies {
		opts.SkipExactCopies = true
	}
}

func organize(cmd *cobra.Command, logger *slog.Logger, dest string, dryRun bool, result *scan.Result) (organizer.Report, error) {
	org, err := organizer.New(dest, dryRun, logger)
	if err != nil {
		return organizer.Report{}, err
	}
	moves, err := org.Plan(result.Exact, result.Similar)
	if err != nil {
		return organizer.Report{}, err
	}
	return org.Apply(cmd.Context(), moves)
}
