package review_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imagededup/internal/fingerprint"
	"imagededup/internal/grouping"
	"imagededup/internal/identity"
	"imagededup/internal/logging"
	"imagededup/internal/review"
	"imagededup/internal/scan"
	"imagededup/internal/store"
	"imagededup/internal/testsupport"
)

type library struct {
	root     string
	original string
	copy     string
	other    string
	broken   string
}

func writeLibrary(t *testing.T) library {
	t.Helper()
	root := t.TempDir()
	lib := library{
		root:     root,
		original: filepath.Join(root, "a.png"),
		copy:     filepath.Join(root, "b.png"),
		other:    filepath.Join(root, "odd <name>.png"),
		broken:   filepath.Join(root, "broken.png"),
	}
	testsupport.WritePNG(t, lib.original, testsupport.BlockNoise(1, 64), 0)
	testsupport.CopyFile(t, lib.original, lib.copy)
	testsupport.WritePNG(t, lib.other, testsupport.BlockNoise(2, 64), 0)
	testsupport.WriteFile(t, lib.broken, 512)
	return lib
}

func member(t *testing.T, path string) grouping.Member {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return grouping.Member{Path: path, Size: info.Size()}
}

func reportFor(t *testing.T, lib library) *scan.Result {
	t.Helper()
	exact := grouping.Group{
		Kind:           grouping.Exact,
		Members:        []grouping.Member{member(t, lib.original), member(t, lib.copy)},
		Representative: member(t, lib.original),
	}
	similar := grouping.Group{
		Kind:           grouping.Similar,
		Members:        []grouping.Member{member(t, lib.broken), member(t, lib.other)},
		Representative: member(t, lib.broken),
		Links:          []grouping.Link{{From: lib.broken, To: lib.other, PHashDistance: 9, DHashDistance: 4}},
	}
	return &scan.Result{
		ScanID:    "scan-1",
		Roots:     []string{lib.root},
		Mode:      "both",
		Threshold: 10,
		Exact:     []grouping.Group{exact},
		Similar:   []grouping.Group{similar},
		Errors:    []scan.FileError{{Path: filepath.Join(lib.root, "gone.jpg"), Class: "unreadable", Message: "permission denied"}},
		Summary:   scan.Summary{TotalImages: 5, TotalBytes: 4096, ExactGroups: 1, SimilarGroups: 1},
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestWriteRendersGroupsWithThumbnails(t *testing.T) {
	lib := writeLibrary(t)
	builder := review.New(fingerprint.NewCodec(), logging.NewNop(), review.Options{
		PreviewSize: review.DefaultPreviewSize,
		Workers:     2,
		Now:         fixedClock,
	})

	var buf bytes.Buffer
	page, err := builder.Write(context.Background(), &buf, reportFor(t, lib))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"Exact duplicates",
		"Similar images",
		"data:image/jpeg;base64,",
		"KEEP",
		"DUPLICATE",
		"max distance 4 bits",
		"Cannot load image",
		"2026-03-01 12:00:00",
		"permission denied",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
	if strings.Contains(html, "odd <name>.png") {
		t.Fatal("expected file names to be HTML escaped")
	}
	if !strings.Contains(html, "odd &lt;name&gt;.png") {
		t.Fatal("expected escaped file name in page")
	}

	if page.Stats.Files != 4 || page.Stats.Thumbnails != 3 {
		t.Fatalf("unexpected stats: %+v", page.Stats)
	}
	exact := page.Exact[0]
	if !exact.Members[0].Keep || exact.Members[1].Keep {
		t.Fatalf("expected the representative to be kept: %+v", exact.Members)
	}
	if exact.Members[0].Preview == "" {
		t.Fatal("expected lightbox preview to be embedded")
	}
	if broken := page.Similar[0].Members[0]; broken.Thumbnail != "" {
		t.Fatalf("expected no thumbnail for undecodable file, got %d bytes", len(broken.Thumbnail))
	}
}

func TestBuildWithoutPreviews(t *testing.T) {
	lib := writeLibrary(t)
	page, err := review.New(nil, logging.NewNop(), review.Options{}).Build(context.Background(), reportFor(t, lib))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	for _, m := range page.Exact[0].Members {
		if m.Thumbnail == "" {
			t.Fatalf("expected thumbnail for %s", m.Path)
		}
		if m.Preview != "" {
			t.Fatalf("expected no preview for %s", m.Path)
		}
	}
}

func TestBuildFlagsChangedAndMissingFiles(t *testing.T) {
	lib := writeLibrary(t)
	report := reportFor(t, lib)

	fingerprints := store.NewMemory()
	for _, path := range []string{lib.original, lib.copy, lib.other, lib.broken} {
		id, err := identity.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if err := fingerprints.Put(context.Background(), store.Record{Identity: id, ComputedAt: fixedClock()}); err != nil {
			t.Fatalf("put %s: %v", path, err)
		}
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(lib.copy, later, later); err != nil {
		t.Fatalf("touch copy: %v", err)
	}
	if err := os.Remove(lib.other); err != nil {
		t.Fatalf("remove other: %v", err)
	}

	var buf bytes.Buffer
	page, err := review.New(nil, logging.NewNop(), review.Options{Lookup: fingerprints}).Write(context.Background(), &buf, report)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	statuses := map[string]string{}
	for _, groups := range [][]review.GroupView{page.Exact, page.Similar} {
		for _, g := range groups {
			for _, m := range g.Members {
				statuses[m.Path] = m.Status
			}
		}
	}
	want := map[string]string{
		lib.original: review.StatusCurrent,
		lib.copy:     review.StatusChanged,
		lib.other:    review.StatusMissing,
		lib.broken:   review.StatusCurrent,
	}
	for path, status := range want {
		if statuses[path] != status {
			t.Fatalf("status for %s: got %q want %q", filepath.Base(path), statuses[path], status)
		}
	}
	if page.Stats.Changed != 1 || page.Stats.Missing != 1 {
		t.Fatalf("unexpected stats: %+v", page.Stats)
	}
	if !strings.Contains(buf.String(), "Changed since scan") || !strings.Contains(buf.String(), ">Missing<") {
		t.Fatal("expected change and missing badges in page")
	}
}

type failingLookup struct{}

func (failingLookup) Contains(context.Context, identity.FileIdentity) (bool, error) {
	return false, errors.New("database is locked")
}

func TestBuildIgnoresLookupFailures(t *testing.T) {
	lib := writeLibrary(t)
	page, err := review.New(nil, logging.NewNop(), review.Options{Lookup: failingLookup{}}).Build(context.Background(), reportFor(t, lib))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if page.Stats.Changed != 0 {
		t.Fatalf("expected lookup failures not to mark files changed: %+v", page.Stats)
	}
}

func TestWriteEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	_, err := review.New(nil, logging.NewNop(), review.Options{}).Write(context.Background(), &buf, &scan.Result{ScanID: "empty", Mode: "both"})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "No duplicates found") {
		t.Fatal("expected empty-state message")
	}
	if strings.Contains(buf.String(), "Exact duplicates") {
		t.Fatal("expected no exact section for an empty report")
	}
}

func TestBuildRequiresReport(t *testing.T) {
	if _, err := review.New(nil, logging.NewNop(), review.Options{}).Build(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil report")
	}
}

func TestLoadReport(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"scan output", `{"scan_id":"s1","mode":"exact","exact":[{"kind":"exact","members":[{"path":"/p/a.png","size":3},{"path":"/p/b.png","size":3}],"representative":{"path":"/p/a.png","size":3}}]}`, false},
		{"with organize report", `{"scan_id":"s2","mode":"both","organize":{"moved":[]}}`, false},
		{"not json", `<html>`, true},
		{"missing scan id", `{"mode":"both"}`, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "-")+".json")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write report: %v", err)
			}
			report, err := review.LoadReport(path)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadReport returned error: %v", err)
			}
			if report.ScanID == "" {
				t.Fatal("expected scan id to be decoded")
			}
		})
	}

	if _, err := review.LoadReport(filepath.Join(dir, "absent.json")); err == nil {
		t.Fatal("expected error for missing report")
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	lib := writeLibrary(t)
	target := filepath.Join(t.TempDir(), "out", "report.html")
	if _, err := review.New(nil, logging.NewNop(), review.Options{}).WriteFile(context.Background(), target, reportFor(t, lib)); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.HasPrefix(string(data), "<!DOCTYPE html>") {
		t.Fatalf("unexpected page start: %.40q", data)
	}
	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the page in the output dir, found %d entries", len(entries))
	}
}

func TestDefaultOutputPath(t *testing.T) {
	tests := map[string]string{
		"/tmp/report.json": "/tmp/report.html",
		"scan":             "scan.html",
		"a.b/report.JSON":  "a.b/report.html",
	}
	for in, want := range tests {
		if got := review.DefaultOutputPath(in); got != want {
			t.Fatalf("DefaultOutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}
