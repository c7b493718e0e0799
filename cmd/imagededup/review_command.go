package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"imagededup/internal/fingerprint"
	"imagededup/internal/logging"
	"imagededup/internal/review"
	"imagededup/internal/store"
)

type reviewView struct {
	Path   string       `json:"path"`
	ScanID string       `json:"scan_id"`
	Groups int          `json:"groups"`
	Stats  review.Stats `json:"stats"`
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var output string
	var noPreviews bool

	cmd := &cobra.Command{
		Use:   "review REPORT.json",
		Short: "Render a saved scan report as an HTML page with thumbnails",
		Long: `Render the output of "imagededup scan --json" as a standalone HTML page.

Thumbnails are embedded in the page. Files that changed or disappeared since
the scan are flagged when the fingerprint cache still holds their records.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			report, err := review.LoadReport(args[0])
			if err != nil {
				return err
			}
			target := strings.TrimSpace(output)
			if target == "" {
				target = review.DefaultOutputPath(args[0])
			}

			opts := review.Options{Workers: cfg.Scan.Workers}
			if !noPreviews {
				opts.PreviewSize = review.DefaultPreviewSize
			}
			if st := openReviewLookup(cmd.Context(), ctx, logger); st != nil {
				defer st.Close()
				opts.Lookup = st
			}

			page, err := review.New(fingerprint.NewCodec(), logger, opts).WriteFile(cmd.Context(), target, report)
			if err != nil {
				return err
			}
			groups := len(page.Exact) + len(page.Similar)
			if ctx.jsonOutput() {
				return writeJSON(cmd, reviewView{Path: target, ScanID: report.ScanID, Groups: groups, Stats: page.Stats})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote review page to %s\n", target)
			counts.Fprintf(out, "%d groups, %d files", groups, page.Stats.Files)
			if page.Stats.Changed > 0 || page.Stats.Missing > 0 {
				fmt.Fprintf(out, " (%d changed, %d missing since scan)", page.Stats.Changed, page.Stats.Missing)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "HTML output path (default: report path with .html)")
	cmd.Flags().BoolVar(&noPreviews, "no-previews", false, "Embed thumbnails only, without full-size lightbox previews")
	return cmd
}

// openReviewLookup returns the fingerprint cache when it exists and holds
// records. The page is still written without it.
func openReviewLookup(ctx context.Context, cc *commandContext, logger *slog.Logger) *store.SQLite {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(cfg.Paths.CachePath); err != nil {
		return nil
	}
	st, err := cc.openStore()
	if err != nil {
		logging.WarnWithContext(logger, "fingerprint cache unavailable", "review_cache_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "changed-file badges omitted"),
			logging.String(logging.FieldErrorHint, "close other imagededup processes or run 'imagededup cache clear --force'"),
		)
		return nil
	}
	stats, err := st.Stats(ctx)
	if err != nil || stats.Records == 0 {
		_ = st.Close()
		return nil
	}
	return st
}
