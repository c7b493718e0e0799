package scan_test

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"imagededup/internal/config"
	"imagededup/internal/faults"
	"imagededup/internal/fingerprint"
	"imagededup/internal/grouping"
	"imagededup/internal/logging"
	"imagededup/internal/scan"
	"imagededup/internal/store"
	"imagededup/internal/testsupport"
)

func options(root, mode string) scan.Options {
	return scan.Options{
		Roots:      []string{root},
		Recursive:  true,
		Mode:       mode,
		Threshold:  10,
		UseCache:   true,
		Workers:    3,
		Extensions: config.DefaultExtensions,
	}
}

// photoLibrary writes three byte-identical copies of one image, a re-encoded
// copy of it, an unrelated image, and an undecodable file.
func photoLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	original := filepath.Join(root, "a", "beach.png")
	testsupport.WritePNG(t, original, testsupport.BlockNoise(1, 64), png.BestSpeed)
	testsupport.CopyFile(t, original, filepath.Join(root, "b", "beach-copy.png"))
	testsupport.CopyFile(t, original, filepath.Join(root, "c", "beach-copy2.png"))
	testsupport.WritePNG(t, filepath.Join(root, "d", "beach-reencoded.png"), testsupport.BlockNoise(1, 64), png.NoCompression)
	testsupport.WritePNG(t, filepath.Join(root, "mountain.png"), testsupport.BlockNoise(2, 64), png.BestSpeed)
	testsupport.WriteFile(t, filepath.Join(root, "corrupt.jpg"), 300)
	testsupport.WriteFile(t, filepath.Join(root, "notes.txt"), 10)
	return root
}

func memberPaths(t *testing.T, root string, g grouping.Group) []string {
	t.Helper()
	out := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		rel, err := filepath.Rel(root, m.Path)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestScanFindsExactAndSimilarGroups(t *testing.T) {
	root := photoLibrary(t)
	scanner := scan.New(store.NewMemory(), nil, logging.NewNop())

	res, err := scanner.Run(context.Background(), options(root, config.ModeBoth))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Exact) != 1 {
		t.Fatalf("expected one exact group, got %+v", res.Exact)
	}
	if got := memberPaths(t, root, res.Exact[0]); !reflect.DeepEqual(got, []string{"a/beach.png", "b/beach-copy.png", "c/beach-copy2.png"}) {
		t.Fatalf("unexpected exact members %v", got)
	}
	if res.Exact[0].Representative.Path != filepath.Join(root, "a", "beach.png") {
		t.Fatalf("unexpected representative %q", res.Exact[0].Representative.Path)
	}

	if len(res.Similar) != 1 {
		t.Fatalf("expected one similar group, got %+v", res.Similar)
	}
	similar := memberPaths(t, root, res.Similar[0])
	if !reflect.DeepEqual(similar, []string{"a/beach.png", "b/beach-copy.png", "c/beach-copy2.png", "d/beach-reencoded.png"}) {
		t.Fatalf("unexpected similar members %v", similar)
	}

	if len(res.Errors) != 1 || res.Errors[0].Class != "unreadable" || filepath.Base(res.Errors[0].Path) != "corrupt.jpg" {
		t.Fatalf("expected one unreadable error for corrupt.jpg, got %+v", res.Errors)
	}
	if res.Summary.TotalImages != 6 || res.Summary.ExactDuplicateFiles != 2 || res.Summary.Unreadable != 1 {
		t.Fatalf("unexpected summary %+v", res.Summary)
	}
	if res.Summary.ReclaimableExact != 2*res.Exact[0].Members[0].Size {
		t.Fatalf("unexpected reclaimable exact bytes %+v", res.Summary)
	}
	if res.ScanID == "" {
		t.Fatal("expected scan id")
	}
}

func TestScanSkipExactCopies(t *testing.T) {
	root := photoLibrary(t)
	opts := options(root, config.ModeSimilar)
	opts.SkipExactCopies = true

	res, err := scan.New(store.NewMemory(), nil, logging.NewNop()).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Exact) != 0 {
		t.Fatalf("similar mode must not report exact groups, got %+v", res.Exact)
	}
	if len(res.Similar) != 1 {
		t.Fatalf("expected one similar group, got %+v", res.Similar)
	}
	if got := memberPaths(t, root, res.Similar[0]); !reflect.DeepEqual(got, []string{"a/beach.png", "d/beach-reencoded.png"}) {
		t.Fatalf("expected exact copies collapsed to one member, got %v", got)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	root := photoLibrary(t)
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	codec := testsupport.NewCountingCodec()
	scanner := scan.New(st, codec, logging.NewNop())
	ctx := context.Background()

	first, err := scanner.Run(ctx, options(root, config.ModeBoth))
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	digests, decodes := codec.Digests.Load(), codec.Decodes.Load()
	if digests != 6 || decodes != 6 {
		t.Fatalf("expected every image hashed once, got digests=%d decodes=%d", digests, decodes)
	}

	second, err := scanner.Run(ctx, options(root, config.ModeBoth))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if codec.Digests.Load() != digests || codec.Decodes.Load() != decodes {
		t.Fatalf("expected zero recomputation, got digests=%d decodes=%d", codec.Digests.Load(), codec.Decodes.Load())
	}
	if second.Summary.Reused != 6 || second.Summary.Computed != 0 {
		t.Fatalf("unexpected reuse summary %+v", second.Summary)
	}
	if !reflect.DeepEqual(first.Exact, second.Exact) || !reflect.DeepEqual(first.Similar, second.Similar) || !reflect.DeepEqual(first.Errors, second.Errors) {
		t.Fatal("expected identical groups and errors on rerun")
	}
}

func TestScanDetectsChangedFiles(t *testing.T) {
	root := photoLibrary(t)
	codec := testsupport.NewCountingCodec()
	scanner := scan.New(store.NewMemory(), codec, logging.NewNop())
	ctx := context.Background()

	if _, err := scanner.Run(ctx, options(root, config.ModeBoth)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	before := codec.Decodes.Load()

	// Overwrite one copy with a different image; size or mtime changes.
	testsupport.WritePNG(t, filepath.Join(root, "c", "beach-copy2.png"), testsupport.BlockNoise(3, 96), png.BestSpeed)
	res, err := scanner.Run(ctx, options(root, config.ModeBoth))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if codec.Decodes.Load() != before+1 {
		t.Fatalf("expected exactly one recompute, got %d", codec.Decodes.Load()-before)
	}
	if len(res.Exact) != 1 || len(res.Exact[0].Members) != 2 {
		t.Fatalf("expected the exact group to shrink to two, got %+v", res.Exact)
	}
}

func TestScanResumesAfterInterruption(t *testing.T) {
	root := t.TempDir()
	const files = 12
	for i := 0; i < files; i++ {
		testsupport.WritePNG(t, filepath.Join(root, "img", string(rune('a'+i))+".png"), testsupport.BlockNoise(uint64(i+10), 32), png.BestSpeed)
	}
	st := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	codec := testsupport.NewCountingCodec()
	var once sync.Once
	codec.OnDecode = func(string) {
		if codec.Decodes.Load() >= 4 {
			once.Do(cancel)
		}
	}
	opts := options(root, config.ModeSimilar)
	opts.Workers = 1
	if _, err := scan.New(st, codec, logging.NewNop()).Run(ctx, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	committed := stats.Records
	if committed == 0 || committed >= files {
		t.Fatalf("expected a partial commit, got %d records", committed)
	}

	resumed := testsupport.NewCountingCodec()
	res, err := scan.New(st, resumed, logging.NewNop()).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if int(resumed.Decodes.Load()) != files-committed {
		t.Fatalf("expected only %d uncommitted files recomputed, got %d", files-committed, resumed.Decodes.Load())
	}
	if res.Summary.TotalImages != files || res.Summary.Reused != committed {
		t.Fatalf("unexpected summary after resume %+v", res.Summary)
	}

	fresh, err := scan.New(store.NewMemory(), nil, logging.NewNop()).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("fresh Run: %v", err)
	}
	if !reflect.DeepEqual(fresh.Similar, res.Similar) {
		t.Fatal("expected resumed results to equal an uninterrupted scan")
	}
}

func TestScanExactModeSkipsPerceptualAndUpgradesLater(t *testing.T) {
	root := photoLibrary(t)
	st := store.NewMemory()
	codec := testsupport.NewCountingCodec()
	scanner := scan.New(st, codec, logging.NewNop())
	ctx := context.Background()

	res, err := scanner.Run(ctx, options(root, config.ModeExact))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if codec.Decodes.Load() != 0 {
		t.Fatalf("exact mode must not decode images, got %d decodes", codec.Decodes.Load())
	}
	if len(res.Similar) != 0 || len(res.Exact) != 1 || len(res.Errors) != 0 {
		t.Fatalf("unexpected exact-mode result %+v", res)
	}
	all, _ := st.All(ctx)
	for _, rec := range all {
		if rec.Perceptual != fingerprint.NotComputed {
			t.Fatalf("expected perceptual data not computed, got %v for %s", rec.Perceptual, rec.Identity.Path)
		}
	}

	res, err = scanner.Run(ctx, options(root, config.ModeBoth))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if codec.Digests.Load() != 6 {
		t.Fatalf("expected digests reused during upgrade, got %d", codec.Digests.Load())
	}
	if codec.Decodes.Load() != 6 {
		t.Fatalf("expected each image decoded once during upgrade, got %d", codec.Decodes.Load())
	}
	if len(res.Similar) != 1 {
		t.Fatalf("expected similar group after upgrade, got %+v", res.Similar)
	}
	stats, _ := st.Stats(ctx)
	if stats.WithPerceptual != 5 || stats.Unreadable != 1 || stats.WithDigest != 6 {
		t.Fatalf("unexpected store stats after upgrade %+v", stats)
	}
}

func TestScanWithoutCacheStillWrites(t *testing.T) {
	root := photoLibrary(t)
	st := store.NewMemory()
	codec := testsupport.NewCountingCodec()
	scanner := scan.New(st, codec, logging.NewNop())
	ctx := context.Background()

	opts := options(root, config.ModeBoth)
	opts.UseCache = false
	for i := 0; i < 2; i++ {
		if _, err := scanner.Run(ctx, opts); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if codec.Decodes.Load() != 12 {
		t.Fatalf("expected recomputation on every run, got %d decodes", codec.Decodes.Load())
	}
	if stats, _ := st.Stats(ctx); stats.Records != 6 {
		t.Fatalf("expected records written despite use_cache=false, got %+v", stats)
	}
}

func TestScanRejectsInvalidOptions(t *testing.T) {
	scanner := scan.New(store.NewMemory(), nil, logging.NewNop())
	root := t.TempDir()
	cases := map[string]func(*scan.Options){
		"threshold": func(o *scan.Options) { o.Threshold = 65 },
		"mode":      func(o *scan.Options) { o.Mode = "fuzzy" },
		"workers":   func(o *scan.Options) { o.Workers = 0 },
		"roots":     func(o *scan.Options) { o.Roots = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := options(root, config.ModeBoth)
			mutate(&opts)
			if _, err := scanner.Run(context.Background(), opts); !errors.Is(err, faults.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestScanReportsProgress(t *testing.T) {
	root := photoLibrary(t)
	var phases []scan.Phase
	var last scan.Progress
	scanner := scan.New(store.NewMemory(), nil, logging.NewNop(), scan.WithProgress(func(p scan.Progress) {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
		last = p
	}))
	if _, err := scanner.Run(context.Background(), options(root, config.ModeBoth)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if phases[0] != scan.PhaseEnumerating || phases[len(phases)-1] != scan.PhaseDone {
		t.Fatalf("unexpected phase sequence %v", phases)
	}
	if !last.EnumerationDone || last.Found != 6 || last.Processed != 6 || last.Percent() != 100 {
		t.Fatalf("unexpected final progress %+v", last)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMode(config.ModeExact), testsupport.WithThreshold(4))
	opts := scan.OptionsFromConfig(cfg, []string{"/photos"})
	if opts.Mode != config.ModeExact || opts.Threshold != 4 || opts.Roots[0] != "/photos" || opts.Workers != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestScanTotalsIncludeFilesThatFailToHash(t *testing.T) {
	root := photoLibrary(t)
	codec := testsupport.NewCountingCodec()
	codec.FailDigest = func(path string) error {
		if filepath.Base(path) == "mountain.png" {
			return errors.New("read: input/output error")
		}
		return nil
	}
	scanner := scan.New(store.NewMemory(), codec, logging.NewNop())

	res, err := scanner.Run(context.Background(), options(root, config.ModeBoth))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var wantBytes int64
	for _, rel := range []string{"a/beach.png", "b/beach-copy.png", "c/beach-copy2.png", "d/beach-reencoded.png", "mountain.png", "corrupt.jpg"} {
		info, err := os.Stat(filepath.Join(root, rel))
		if err != nil {
			t.Fatalf("stat %s: %v", rel, err)
		}
		wantBytes += info.Size()
	}
	if res.Summary.TotalImages != 6 || res.Summary.TotalBytes != wantBytes {
		t.Fatalf("totals = %d files / %d bytes, want 6 / %d", res.Summary.TotalImages, res.Summary.TotalBytes, wantBytes)
	}

	var hashFailure bool
	for _, fe := range res.Errors {
		if filepath.Base(fe.Path) == "mountain.png" {
			hashFailure = true
		}
	}
	if !hashFailure {
		t.Fatalf("expected mountain.png in errors, got %+v", res.Errors)
	}
}
