// Package walk enumerates candidate image files under one or more roots.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"imagededup/internal/faults"
)

// Options controls traversal.
type Options struct {
	Roots     []string
	Recursive bool
	// Extensions is a lowercase, dot-prefixed allowlist.
	Extensions []string
	// OnError receives per-entry failures (missing roots, unreadable
	// directories). Traversal continues after reporting.
	OnError func(path string, err error)
}

// Walk sends the absolute path of every matching regular file to out.
// A root that is itself a symlink is resolved before walking. Below a root,
// symlinked files are followed and symlinked directories are not. A file
// reached twice (overlapping roots, or a symlink to a file already seen) is
// sent once. Walk does not close out.
func Walk(ctx context.Context, opts Options, out chan<- string) error {
	allowed := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	report := opts.OnError
	if report == nil {
		report = func(string, error) {}
	}

	seen := make(map[string]struct{})
	for _, root := range opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			report(root, faults.Wrap(faults.ErrUnreadable, "walk", "resolve root", root, err))
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			report(abs, faults.Wrap(faults.ErrUnreadable, "walk", "stat root", abs, err))
			continue
		}
		if linfo, err := os.Lstat(abs); err == nil && linfo.Mode()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				report(abs, faults.Wrap(faults.ErrUnreadable, "walk", "resolve root", abs, err))
				continue
			}
			abs = resolved
		}
		if !info.IsDir() {
			report(abs, faults.Wrap(faults.ErrUnreadable, "walk", "stat root", abs, errors.New("not a directory")))
			continue
		}
		if err := walkRoot(ctx, abs, opts.Recursive, allowed, seen, out, report); err != nil {
			return err
		}
	}
	return nil
}

func walkRoot(ctx context.Context, root string, recursive bool, allowed map[string]struct{}, seen map[string]struct{}, out chan<- string, report func(string, error)) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			report(p, faults.Wrap(faults.ErrUnreadable, "walk", "read", p, err))
			if d != nil && d.IsDir() && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != root && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(p))]; !ok {
			return nil
		}
		info, err := os.Stat(p)
		if err != nil {
			report(p, faults.Wrap(faults.ErrUnreadable, "walk", "stat", p, err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		key := p
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			key = resolved
		}
		if _, dup := seen[key]; dup {
			return nil
		}
		seen[key] = struct{}{}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- p:
		}
		return nil
	})
}

// Collect runs Walk and returns the matched paths in traversal order.
func Collect(ctx context.Context, opts Options) ([]string, error) {
	ch := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(ch)
		errc <- Walk(ctx, opts, ch)
	}()
	var paths []string
	for p := range ch {
		paths = append(paths, p)
	}
	if err := <-errc; err != nil {
		return paths, fmt.Errorf("walk: %w", err)
	}
	return paths, nil
}
