package review

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"imagededup/internal/fingerprint"
	"imagededup/internal/grouping"
	"imagededup/internal/identity"
	"imagededup/internal/logging"
	"imagededup/internal/scan"
)

//go:embed review.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("review").Parse(pageSource))

const (
	DefaultThumbnailSize = 300
	DefaultPreviewSize   = 1200
	jpegQuality          = 85
)

// Member status values.
const (
	StatusCurrent = ""
	StatusChanged = "changed"
	StatusMissing = "missing"
)

// Options tunes page generation.
type Options struct {
	// ThumbnailSize bounds the inline card image in pixels.
	ThumbnailSize int
	// PreviewSize bounds the lightbox image. Zero omits previews and the
	// lightbox falls back to the thumbnail.
	PreviewSize int
	Workers     int
	// Lookup, when set, flags members whose current identity has no stored
	// fingerprint, meaning the file changed after the scan.
	Lookup identity.Lookup
	Now    func() time.Time
}

// Builder turns scan reports into review pages.
type Builder struct {
	codec  fingerprint.Codec
	logger *slog.Logger
	opts   Options
}

// New constructs a Builder. A nil codec uses the production decoder.
func New(codec fingerprint.Codec, logger *slog.Logger, opts Options) *Builder {
	if codec == nil {
		codec = fingerprint.NewCodec()
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = DefaultThumbnailSize
	}
	if opts.PreviewSize < 0 {
		opts.PreviewSize = 0
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{
		codec:  codec,
		logger: logging.NewComponentLogger(logger, "review"),
		opts:   opts,
	}
}

// Page is the data rendered into the HTML template.
type Page struct {
	GeneratedAt string
	ScanID      string
	Roots       []string
	Mode        string
	Threshold   int
	Summary     SummaryView
	Exact       []GroupView
	Similar     []GroupView
	Errors      []scan.FileError
	Stats       Stats
}

// SummaryView is the headline block with sizes already humanized.
type SummaryView struct {
	TotalImages   int
	TotalSize     string
	ExactGroups   int
	SimilarGroups int
	Reclaimable   string
}

// GroupView is one rendered group.
type GroupView struct {
	Index       int
	Kind        string
	Reclaimable string
	MaxDistance int
	Members     []MemberView
}

// MemberView is one rendered group member.
type MemberView struct {
	Path      string
	Name      string
	Size      string
	Keep      bool
	Status    string
	Thumbnail template.URL
	Preview   template.URL
}

// Role is the CSS class for the member's card and badge.
func (m MemberView) Role() string {
	if m.Keep {
		return "keep"
	}
	return "duplicate"
}

// Stats counts distinct files by outcome. A path listed in both an exact and
// a similar group counts once.
type Stats struct {
	Files      int `json:"files"`
	Thumbnails int `json:"thumbnails"`
	Changed    int `json:"changed"`
	Missing    int `json:"missing"`
}

// LoadReport reads the JSON written by "scan --json". Keys the scan result
// does not know about, such as an organize report, are ignored.
func LoadReport(path string) (*scan.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report scan.Result
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	if report.ScanID == "" {
		return nil, fmt.Errorf("%s is not a scan report (missing scan_id)", path)
	}
	return &report, nil
}

// DefaultOutputPath places the page next to the report with an .html suffix.
func DefaultOutputPath(reportPath string) string {
	return strings.TrimSuffix(reportPath, filepath.Ext(reportPath)) + ".html"
}

// Build inspects every group member and assembles the page data.
func (b *Builder) Build(ctx context.Context, report *scan.Result) (*Page, error) {
	if report == nil {
		return nil, errors.New("review: report is required")
	}
	page := &Page{
		GeneratedAt: b.opts.Now().Format("2006-01-02 15:04:05"),
		ScanID:      report.ScanID,
		Roots:       report.Roots,
		Mode:        report.Mode,
		Threshold:   report.Threshold,
		Errors:      report.Errors,
		Summary: SummaryView{
			TotalImages:   report.Summary.TotalImages,
			TotalSize:     humanize.Bytes(nonNegative(report.Summary.TotalBytes)),
			ExactGroups:   len(report.Exact),
			SimilarGroups: len(report.Similar),
			Reclaimable:   humanize.Bytes(nonNegative(report.Summary.ReclaimableExact + report.Summary.ReclaimableSimilar)),
		},
		Exact:   groupViews(report.Exact),
		Similar: groupViews(report.Similar),
	}

	infos, err := b.inspectAll(ctx, page)
	if err != nil {
		return nil, err
	}
	for _, groups := range [][]GroupView{page.Exact, page.Similar} {
		for gi := range groups {
			for mi := range groups[gi].Members {
				m := &groups[gi].Members[mi]
				info := infos[m.Path]
				m.Status = info.status
				m.Thumbnail = info.thumbnail
				m.Preview = info.preview
			}
		}
	}
	page.Stats.Files = len(infos)
	for _, info := range infos {
		if info.thumbnail != "" {
			page.Stats.Thumbnails++
		}
		switch info.status {
		case StatusChanged:
			page.Stats.Changed++
		case StatusMissing:
			page.Stats.Missing++
		}
	}
	return page, nil
}

// Write builds the page and renders it to w.
func (b *Builder) Write(ctx context.Context, w io.Writer, report *scan.Result) (*Page, error) {
	page, err := b.Build(ctx, report)
	if err != nil {
		return nil, err
	}
	if err := page.Render(w); err != nil {
		return nil, err
	}
	return page, nil
}

// WriteFile renders to a temporary sibling and renames it into place, so an
// interrupted run never leaves a truncated page behind.
func (b *Builder) WriteFile(ctx context.Context, path string, report *scan.Result) (*Page, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create review page: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	page, err := b.Write(ctx, tmp, report)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("write review page: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return nil, fmt.Errorf("write review page: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return nil, fmt.Errorf("write review page: %w", err)
	}
	return page, nil
}

// Render executes the HTML template.
func (p *Page) Render(w io.Writer) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return fmt.Errorf("render review page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func groupViews(groups []grouping.Group) []GroupView {
	views := make([]GroupView, 0, len(groups))
	for i, g := range groups {
		view := GroupView{
			Index:       i + 1,
			Kind:        g.Kind.String(),
			Reclaimable: humanize.Bytes(nonNegative(g.ReclaimableBytes())),
			MaxDistance: g.MaxDistance(),
		}
		for _, m := range g.Members {
			view.Members = append(view.Members, MemberView{
				Path: m.Path,
				Name: filepath.Base(m.Path),
				Size: humanize.Bytes(nonNegative(m.Size)),
				Keep: m.Path == g.Representative.Path,
			})
		}
		views = append(views, view)
	}
	return views
}

type fileInfo struct {
	status    string
	thumbnail template.URL
	preview   template.URL
}

func (b *Builder) inspectAll(ctx context.Context, page *Page) (map[string]fileInfo, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, groups := range [][]GroupView{page.Exact, page.Similar} {
		for _, g := range groups {
			for _, m := range g.Members {
				if _, ok := seen[m.Path]; ok {
					continue
				}
				seen[m.Path] = struct{}{}
				paths = append(paths, m.Path)
			}
		}
	}
	sort.Strings(paths)

	infos := make(map[string]fileInfo, len(paths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info := b.inspect(gctx, path)
			mu.Lock()
			infos[path] = info
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

func (b *Builder) inspect(ctx context.Context, path string) fileInfo {
	info := fileInfo{status: b.status(ctx, path)}
	if info.status == StatusMissing {
		return info
	}
	img, err := b.codec.DecodeFile(path)
	if err != nil {
		b.logger.Debug("thumbnail skipped", logging.Path(path), logging.Error(err))
		return info
	}
	if info.thumbnail, err = dataURL(img, b.opts.ThumbnailSize); err != nil {
		b.logger.Debug("thumbnail encode failed", logging.Path(path), logging.Error(err))
		return info
	}
	if b.opts.PreviewSize > 0 {
		if info.preview, err = dataURL(img, b.opts.PreviewSize); err != nil {
			b.logger.Debug("preview encode failed", logging.Path(path), logging.Error(err))
		}
	}
	return info
}

// status compares the file on disk with the fingerprint store. Files that can
// no longer be stat'ed are reported missing.
func (b *Builder) status(ctx context.Context, path string) string {
	id, err := identity.Stat(path)
	if err != nil {
		return StatusMissing
	}
	if b.opts.Lookup == nil {
		return StatusCurrent
	}
	stale, err := identity.NeedsRecompute(ctx, id, b.opts.Lookup)
	if err != nil {
		logging.FileWarning(b.logger, "fingerprint lookup failed", "review_lookup_failed", path, err,
			logging.String(logging.FieldImpact, "changed-file badge omitted for this file"),
		)
		return StatusCurrent
	}
	if stale {
		return StatusChanged
	}
	return StatusCurrent
}

// dataURL fits img inside a size x size box, flattens any transparency onto
// white and returns it as an inline JPEG.
func dataURL(img image.Image, size int) (template.URL, error) {
	fitted := imaging.Fit(img, size, size, imaging.Lanczos)
	bounds := fitted.Bounds()
	flat := imaging.Overlay(imaging.New(bounds.Dx(), bounds.Dy(), color.White), fitted, image.Pt(0, 0), 1.0)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", err
	}
	return template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func nonNegative(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
