package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"imagededup/internal/grouping"
	"imagededup/internal/organizer"
	"imagededup/internal/scan"
	"imagededup/internal/store"
)

const maxListedErrors = 10

var counts = message.NewPrinter(language.English)

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func renderScanResult(out io.Writer, r *scan.Result) {
	s := r.Summary
	rows := [][]string{
		{"Images scanned", counts.Sprintf("%d (%s)", s.TotalImages, humanBytes(s.TotalBytes))},
		{"Exact duplicates", counts.Sprintf("%d files in %d groups", s.ExactDuplicateFiles, s.ExactGroups)},
		{"Similar groups", counts.Sprintf("%d", s.SimilarGroups)},
		{"Reclaimable", humanBytes(s.ReclaimableExact + s.ReclaimableSimilar)},
		{"Fingerprints", counts.Sprintf("%d reused, %d computed", s.Reused, s.Computed)},
		{"Errors", counts.Sprintf("%d", s.Errors)},
		{"Duration", r.Duration().Round(time.Millisecond).String()},
	}
	fmt.Fprintln(out, renderTable([]string{"Scan", r.Mode}, rows, []columnAlignment{alignLeft, alignRight}))

	renderGroups(out, "Exact duplicates", r.Exact)
	renderGroups(out, "Similar images", r.Similar)
	renderErrors(out, r.Errors)
}

func renderGroups(out io.Writer, title string, groups []grouping.Group) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for i, g := range groups {
		header := fmt.Sprintf("Group %d: %s reclaimable", i+1, humanBytes(g.ReclaimableBytes()))
		if g.Kind == grouping.Similar {
			header += fmt.Sprintf(", max distance %d", g.MaxDistance())
		}
		fmt.Fprintln(out, header)

		rows := make([][]string, 0, len(g.Members))
		for _, m := range g.Members {
			role := "duplicate"
			if m.Path == g.Representative.Path {
				role = "keep"
			}
			rows = append(rows, []string{m.Path, humanBytes(m.Size), role})
		}
		fmt.Fprintln(out, renderTable([]string{"File", "Size", "Role"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	}
}

func renderErrors(out io.Writer, errs []scan.FileError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(out, "\nErrors:")
	for i, fe := range errs {
		if i == maxListedErrors {
			fmt.Fprintf(out, "  ... and %d more\n", len(errs)-maxListedErrors)
			break
		}
		fmt.Fprintf(out, "  %s [%s]: %s\n", fe.Path, fe.Class, fe.Message)
	}
}

func renderOrganizeReport(out io.Writer, rep organizer.Report) {
	fmt.Fprintln(out)
	failed := make(map[string]string, len(rep.Failures))
	for _, f := range rep.Failures {
		failed[f.Source] = f.Error
	}
	verb := "Moved"
	if rep.DryRun {
		verb = "Would move"
	}
	for _, m := range rep.Moves {
		if msg, ok := failed[m.Source]; ok {
			fmt.Fprintf(out, "  Failed: %s: %s\n", m.Source, msg)
			continue
		}
		fmt.Fprintf(out, "  %s: %s -> %s\n", verb, m.Source, m.Target)
	}
	if rep.DryRun {
		fmt.Fprintf(out, "Dry run: would move %s files (%s)\n", counts.Sprintf("%d", rep.Moved), humanBytes(rep.MovedBytes))
		return
	}
	fmt.Fprintf(out, "Moved %s files (%s)\n", counts.Sprintf("%d", rep.Moved), humanBytes(rep.MovedBytes))
}

func renderCacheStats(out io.Writer, stats store.Stats) {
	rows := [][]string{
		{"Path", stats.Path},
		{"Size on disk", humanBytes(stats.SizeBytes)},
		{"Records", counts.Sprintf("%d", stats.Records)},
		{"With SHA-256", counts.Sprintf("%d", stats.WithDigest)},
		{"With perceptual hashes", counts.Sprintf("%d", stats.WithPerceptual)},
		{"Unreadable", strconv.Itoa(stats.Unreadable)},
	}
	fmt.Fprintln(out, renderTable([]string{"Cache", ""}, rows, []columnAlignment{alignLeft, alignRight}))
}
