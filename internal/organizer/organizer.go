package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"imagededup/internal/faults"
	"imagededup/internal/fileutil"
	"imagededup/internal/grouping"
	"imagededup/internal/logging"
)

// Move is one planned relocation.
type Move struct {
	Source string        `json:"source"`
	Target string        `json:"target"`
	Size   int64         `json:"size"`
	Kind   grouping.Kind `json:"kind"`
	// Keeper is the representative the source duplicates.
	Keeper string `json:"keeper"`
}

// Failure records a move that did not complete.
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Report summarizes an Apply call.
type Report struct {
	DryRun     bool      `json:"dry_run"`
	Moves      []Move    `json:"moves"`
	Moved      int       `json:"moved"`
	MovedBytes int64     `json:"moved_bytes"`
	Failures   []Failure `json:"failures,omitempty"`
}

// Organizer plans and performs duplicate moves.
type Organizer struct {
	dest   string
	dryRun bool
	logger *slog.Logger
}

// New returns an Organizer targeting dest.
func New(dest string, dryRun bool, logger *slog.Logger) (*Organizer, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return nil, faults.Wrap(faults.ErrConfiguration, "organize", "new", "destination directory is required", nil)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "organize", "new", dest, err)
	}
	return &Organizer{
		dest:   abs,
		dryRun: dryRun,
		logger: logging.NewComponentLogger(logger, "organizer"),
	}, nil
}

// Plan lists the moves for exact groups first, then similar groups. Each
// source appears at most once.
func (o *Organizer) Plan(exact, similar []grouping.Group) ([]Move, error) {
	keep := make(map[string]struct{})
	for _, groups := range [][]grouping.Group{exact, similar} {
		for _, g := range groups {
			keep[g.Representative.Path] = struct{}{}
		}
	}

	planned := make(map[string]struct{})
	reserved := make(map[string]bool)
	var moves []Move
	for _, groups := range [][]grouping.Group{exact, similar} {
		for _, g := range groups {
			for _, m := range g.Duplicates() {
				if _, kept := keep[m.Path]; kept {
					continue
				}
				if _, done := planned[m.Path]; done {
					continue
				}
				if isWithin(o.dest, m.Path) {
					continue
				}
				target, err := fileutil.UniquePath(o.dest, filepath.Base(m.Path), func(p string) bool { return reserved[p] })
				if err != nil {
					return nil, err
				}
				planned[m.Path] = struct{}{}
				reserved[target] = true
				moves = append(moves, Move{
					Source: m.Path,
					Target: target,
					Size:   m.Size,
					Kind:   g.Kind,
					Keeper: g.Representative.Path,
				})
			}
		}
	}
	return moves, nil
}

// Apply performs moves, or only reports them in dry-run mode. Individual
// failures are collected and the remaining moves continue.
func (o *Organizer) Apply(ctx context.Context, moves []Move) (Report, error) {
	report := Report{DryRun: o.dryRun, Moves: moves}
	if o.dryRun {
		for _, mv := range moves {
			report.Moved++
			report.MovedBytes += mv.Size
		}
		o.logger.Info("dry run: duplicates not moved", logging.Int("files", report.Moved), logging.Int64("bytes", report.MovedBytes))
		return report, nil
	}
	if len(moves) == 0 {
		return report, nil
	}
	if err := fileutil.CheckWritableDir(o.dest); err != nil {
		return report, faults.Wrap(faults.ErrConfiguration, "organize", "destination", o.dest, err)
	}

	for _, mv := range moves {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		copied, err := fileutil.MoveFile(mv.Source, mv.Target)
		if err != nil && !copied {
			report.Failures = append(report.Failures, Failure{Source: mv.Source, Error: err.Error()})
			logging.FileWarning(o.logger, "duplicate move failed", "move_failed", mv.Source, err,
				logging.String("target", mv.Target),
				logging.String(logging.FieldErrorHint, moveHint(err)),
				logging.String(logging.FieldImpact, "duplicate left in place"),
			)
			continue
		}
		if err != nil {
			logging.FileWarning(o.logger, "source kept after cross-device copy", "move_cleanup_failed", mv.Source, err,
				logging.String(logging.FieldImpact, "duplicate exists in both locations"),
				logging.String(logging.FieldErrorHint, "delete the source manually"),
			)
		}
		report.Moved++
		report.MovedBytes += mv.Size
		o.logger.Debug("moved duplicate", logging.Path(mv.Source), logging.String("target", mv.Target))
	}
	o.logger.Info("duplicates moved",
		logging.Int("files", report.Moved),
		logging.Int64("bytes", report.MovedBytes),
		logging.Int("failures", len(report.Failures)),
	)
	return report, nil
}

func moveHint(err error) string {
	switch {
	case errors.Is(err, fileutil.ErrTargetExists):
		return "a file appeared at the target; rerun to pick a new name"
	case errors.Is(err, os.ErrPermission):
		return "check permissions on the source directory"
	case errors.Is(err, os.ErrNotExist):
		return "the file was removed after the scan"
	default:
		return "check logs for details"
	}
}

func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}

// Destination returns the absolute move target directory.
func (o *Organizer) Destination() string {
	return o.dest
}

// String renders a move for terminal output.
func (m Move) String() string {
	return fmt.Sprintf("%s -> %s", m.Source, m.Target)
}
