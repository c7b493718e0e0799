package scan

import (
	"sort"
	"time"

	"imagededup/internal/grouping"
)

// Phase names a step of a scan.
type Phase string

const (
	PhaseEnumerating Phase = "enumerating"
	PhaseHashing     Phase = "hashing"
	PhaseGrouping    Phase = "grouping"
	PhaseDone        Phase = "done"
)

// Progress is a point-in-time snapshot delivered to a ProgressFunc.
type Progress struct {
	Phase Phase
	// Found is the number of files enumerated so far; final once
	// EnumerationDone is true.
	Found           int
	EnumerationDone bool
	Processed       int
	Reused          int
	Computed        int
	Current         string
}

// Percent returns hashing completion, or -1 while the total is unknown.
func (p Progress) Percent() float64 {
	if !p.EnumerationDone {
		return -1
	}
	if p.Found == 0 {
		return 100
	}
	return float64(p.Processed) * 100 / float64(p.Found)
}

// ProgressFunc receives progress snapshots. Calls are serialized.
type ProgressFunc func(Progress)

// FileError is a non-fatal per-file failure.
type FileError struct {
	Path    string `json:"path"`
	Class   string `json:"class"`
	Message string `json:"message"`
}

// Summary aggregates scan totals.
type Summary struct {
	// TotalImages and TotalBytes count every enumerated file that could be
	// stat'ed, including files whose fingerprinting later failed.
	TotalImages         int   `json:"total_images"`
	TotalBytes          int64 `json:"total_bytes"`
	ExactGroups         int   `json:"exact_groups"`
	ExactDuplicateFiles int   `json:"exact_duplicate_files"`
	SimilarGroups       int   `json:"similar_groups"`
	ReclaimableExact    int64 `json:"reclaimable_exact_bytes"`
	ReclaimableSimilar  int64 `json:"reclaimable_similar_bytes"`
	Reused              int   `json:"reused"`
	Computed            int   `json:"computed"`
	Unreadable          int   `json:"unreadable"`
	Errors              int   `json:"errors"`
}

// Result is everything a scan produced.
type Result struct {
	ScanID     string           `json:"scan_id"`
	Roots      []string         `json:"roots"`
	Mode       string           `json:"mode"`
	Threshold  int              `json:"threshold"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Exact      []grouping.Group `json:"exact"`
	Similar    []grouping.Group `json:"similar"`
	Errors     []FileError      `json:"errors"`
	Summary    Summary          `json:"summary"`
}

// Duration is the wall time the scan took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func summarize(r *Result, files int, bytes int64, reused, computed, unreadable int) {
	s := Summary{
		TotalImages:        files,
		TotalBytes:         bytes,
		ExactGroups:        len(r.Exact),
		SimilarGroups:      len(r.Similar),
		ReclaimableExact:   grouping.TotalReclaimable(r.Exact),
		ReclaimableSimilar: grouping.TotalReclaimable(r.Similar),
		Reused:             reused,
		Computed:           computed,
		Unreadable:         unreadable,
		Errors:             len(r.Errors),
	}
	for _, g := range r.Exact {
		s.ExactDuplicateFiles += len(g.Members) - 1
	}
	r.Summary = s
}

func sortErrors(errs []FileError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Path != errs[j].Path {
			return errs[i].Path < errs[j].Path
		}
		return errs[i].Class < errs[j].Class
	})
}
