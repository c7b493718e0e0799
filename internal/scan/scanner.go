package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"imagededup/internal/faults"
	"imagededup/internal/fingerprint"
	"imagededup/internal/grouping"
	"imagededup/internal/identity"
	"imagededup/internal/logging"
	"imagededup/internal/store"
	"imagededup/internal/walk"
)

// Scanner runs scans against a fingerprint store.
type Scanner struct {
	store    store.Store
	codec    fingerprint.Codec
	logger   *slog.Logger
	progress ProgressFunc
	now      func() time.Time
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scanner) { s.progress = fn }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Scanner. A nil codec selects the production codec.
func New(st store.Store, codec fingerprint.Codec, logger *slog.Logger, opts ...Option) *Scanner {
	if codec == nil {
		codec = fingerprint.NewCodec()
	}
	s := &Scanner{
		store:  st,
		codec:  codec,
		logger: logging.NewComponentLogger(logger, "scan"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run holds the mutable state of one invocation.
type run struct {
	s       *Scanner
	opts    Options
	logger  *slog.Logger
	sampler *logging.ProgressSampler

	mu         sync.Mutex
	progress   Progress
	records    []store.Record
	errs       []FileError
	files      int
	bytes      int64
	unreadable int
}

// Run enumerates opts.Roots, fingerprints every image (reusing stored
// fingerprints for unchanged files), and groups the results. Per-file
// failures are collected in Result.Errors; cancellation returns ctx.Err()
// after committed fingerprints are kept in the store.
func (s *Scanner) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "scan", "run", "fingerprint store is required", nil)
	}

	scanID := uuid.NewString()
	ctx = logging.WithScanID(ctx, scanID)
	r := &run{
		s:       s,
		opts:    opts,
		logger:  logging.WithContext(ctx, s.logger),
		sampler: logging.NewProgressSampler(10),
	}
	result := &Result{
		ScanID:    scanID,
		Roots:     opts.Roots,
		Mode:      opts.Mode,
		Threshold: opts.Threshold,
		StartedAt: s.now(),
	}
	r.logger.Info("scan started",
		logging.Any("roots", opts.Roots),
		logging.String("mode", opts.Mode),
		logging.Int("threshold", opts.Threshold),
		logging.Int("workers", opts.Workers),
		logging.Bool("use_cache", opts.UseCache),
	)

	r.update(func(p *Progress) { p.Phase = PhaseEnumerating })
	if err := r.hash(ctx); err != nil {
		r.logger.Warn("scan interrupted",
			logging.Int("processed", r.progress.Processed),
			logging.Error(err),
			logging.String(logging.FieldEventType, "scan_interrupted"),
			logging.String(logging.FieldErrorHint, "rerun the scan; committed fingerprints are reused"),
		)
		return nil, err
	}

	r.update(func(p *Progress) { p.Phase = PhaseGrouping })
	if opts.wantExact() {
		result.Exact = grouping.ExactGroups(r.records)
	}
	if opts.wantSimilar() {
		candidates := r.records
		if opts.SkipExactCopies {
			candidates = grouping.FirstPerDigest(candidates)
		}
		clusterer := grouping.Clusterer{Threshold: opts.Threshold, BruteForceLimit: opts.BruteForceLimit}
		result.Similar = clusterer.Cluster(candidates)
	}

	sortErrors(r.errs)
	result.Errors = r.errs
	result.FinishedAt = s.now()
	summarize(result, r.files, r.bytes, r.progress.Reused, r.progress.Computed, r.unreadable)
	r.update(func(p *Progress) { p.Phase = PhaseDone })

	r.logger.Info("scan completed",
		logging.Int("images", result.Summary.TotalImages),
		logging.Int("exact_groups", result.Summary.ExactGroups),
		logging.Int("similar_groups", result.Summary.SimilarGroups),
		logging.Int("reused", result.Summary.Reused),
		logging.Int("computed", result.Summary.Computed),
		logging.Int("errors", result.Summary.Errors),
		logging.Duration("duration", result.Duration()),
	)
	return result, nil
}

// hash streams paths from the walker into a bounded worker pool.
func (r *run) hash(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	paths := make(chan string, r.opts.Workers*4)

	found := make(chan string, r.opts.Workers*4)
	group.Go(func() error {
		defer close(found)
		walkOpts := walk.Options{
			Roots:      r.opts.Roots,
			Recursive:  r.opts.Recursive,
			Extensions: r.opts.Extensions,
			OnError:    r.recordError,
		}
		return walk.Walk(gctx, walkOpts, found)
	})
	group.Go(func() error {
		defer close(paths)
		for p := range found {
			r.update(func(pr *Progress) {
				pr.Found++
				if pr.Phase == PhaseEnumerating {
					pr.Phase = PhaseHashing
				}
			})
			select {
			case <-gctx.Done():
				for range found {
				}
				return gctx.Err()
			case paths <- p:
			}
		}
		r.update(func(pr *Progress) {
			pr.EnumerationDone = true
			pr.Phase = PhaseHashing
		})
		return nil
	})

	for i := 0; i < r.opts.Workers; i++ {
		group.Go(func() error {
			for p := range paths {
				if err := gctx.Err(); err != nil {
					return err
				}
				r.processFile(gctx, p)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *run) processFile(ctx context.Context, path string) {
	id, err := identity.Stat(path)
	if err != nil {
		r.recordError(path, err)
		r.update(func(p *Progress) { p.Processed++ })
		return
	}
	r.mu.Lock()
	r.files++
	r.bytes += id.Size
	r.mu.Unlock()

	rec, reused, err := r.fingerprint(ctx, id)
	if err != nil {
		r.recordError(id.Path, err)
		r.update(func(p *Progress) { p.Processed++ })
		return
	}

	if reused && rec.Perceptual == fingerprint.Unreadable && r.opts.wantSimilar() {
		r.addFileError(FileError{Path: id.Path, Class: faults.Class(faults.ErrUnreadable), Message: rec.DecodeError})
	}

	r.mu.Lock()
	r.records = append(r.records, rec)
	if rec.Perceptual == fingerprint.Unreadable {
		r.unreadable++
	}
	r.mu.Unlock()

	r.update(func(p *Progress) {
		p.Processed++
		p.Current = id.Path
		if reused {
			p.Reused++
		} else {
			p.Computed++
		}
	})
}

// fingerprint returns a record covering the requested mode, reusing or
// upgrading the stored one when possible and committing fresh work.
func (r *run) fingerprint(ctx context.Context, id identity.FileIdentity) (store.Record, bool, error) {
	needDigest, needPerceptual := r.opts.needDigest(), r.opts.wantSimilar()

	rec := store.Record{Identity: id}
	if r.opts.UseCache {
		cached, ok, err := r.s.store.Get(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return store.Record{}, false, ctx.Err()
			}
			r.recordError(id.Path, faults.Wrap(faults.ErrStore, "scan", "get", id.Path, err))
		case ok && cached.Covers(needDigest, needPerceptual):
			return cached, true, nil
		case ok:
			rec = cached
		}
	}

	if needDigest && !rec.HasDigest() {
		digest, err := r.s.codec.FileDigest(id.Path)
		if err != nil {
			return store.Record{}, false, err
		}
		rec.SHA256 = digest
	}
	if needPerceptual && rec.Perceptual == fingerprint.NotComputed {
		p, d, err := fingerprint.PerceptualFile(r.s.codec, id.Path)
		if err != nil {
			if !errors.Is(err, faults.ErrUnreadable) {
				err = faults.Wrap(faults.ErrUnreadable, "scan", "decode", id.Path, err)
			}
			rec.Perceptual = fingerprint.Unreadable
			rec.DecodeError = err.Error()
			logging.FileWarning(r.logger, "image could not be decoded", "image_unreadable", id.Path, err,
				logging.String(logging.FieldImpact, "file excluded from similar groups"),
				logging.String(logging.FieldErrorHint, "check the file opens in an image viewer"),
			)
			r.recordError(id.Path, err)
		} else {
			rec.PHash, rec.DHash = p, d
			rec.Perceptual = fingerprint.Valid
			rec.DecodeError = ""
		}
	}
	rec.Identity = id
	rec.ComputedAt = r.s.now()

	if err := r.s.store.Put(ctx, rec); err != nil {
		if ctx.Err() != nil {
			return store.Record{}, false, ctx.Err()
		}
		logging.FileWarning(r.logger, "fingerprint not saved", "store_write_failed", id.Path, err,
			logging.String(logging.FieldImpact, "file is hashed again on the next scan"),
			logging.String(logging.FieldErrorHint, "check free space and permissions of the cache directory"),
		)
		r.recordError(id.Path, faults.Wrap(faults.ErrStore, "scan", "put", id.Path, err))
	}
	return rec, false, nil
}

func (r *run) recordError(path string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	r.addFileError(FileError{Path: path, Class: faults.Class(err), Message: err.Error()})
}

func (r *run) addFileError(fe FileError) {
	r.mu.Lock()
	r.errs = append(r.errs, fe)
	r.mu.Unlock()
	r.logger.Debug("file error", logging.Path(fe.Path), logging.String("class", fe.Class), logging.String("message", fe.Message))
}

// update mutates progress under the run lock and notifies observers.
func (r *run) update(fn func(*Progress)) {
	r.mu.Lock()
	fn(&r.progress)
	snapshot := r.progress
	if r.sampler.ShouldLog(snapshot.Percent(), string(snapshot.Phase)) {
		r.logger.Debug("scan progress",
			logging.String("phase", string(snapshot.Phase)),
			logging.Int("found", snapshot.Found),
			logging.Int("processed", snapshot.Processed),
			logging.String("percent", fmt.Sprintf("%.0f", snapshot.Percent())),
		)
	}
	if r.s.progress != nil {
		r.s.progress(snapshot)
	}
	r.mu.Unlock()
}
