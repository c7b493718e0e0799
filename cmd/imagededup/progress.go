package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"imagededup/internal/scan"
)

// scanProgress drives a terminal progress bar from scan snapshots. It is
// inert when the writer is not a terminal.
type scanProgress struct {
	bar   *progressbar.ProgressBar
	phase scan.Phase
	sized bool
}

func newScanProgress(w io.Writer, enabled bool) *scanProgress {
	if !enabled || !shouldColorize(w) {
		return &scanProgress{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(string(scan.PhaseEnumerating)),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &scanProgress{bar: bar, phase: scan.PhaseEnumerating}
}

func (p *scanProgress) update(pr scan.Progress) {
	if p.bar == nil {
		return
	}
	if pr.EnumerationDone && !p.sized {
		p.bar.ChangeMax(pr.Found)
		p.sized = true
	}
	if pr.Phase != p.phase {
		p.bar.Describe(string(pr.Phase))
		p.phase = pr.Phase
	}
	_ = p.bar.Set(pr.Processed)
}

func (p *scanProgress) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
