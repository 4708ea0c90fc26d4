// Package scanner walks the shared root and streams one descriptor per
// regular file. Directories are never emitted, symlinks are never
// followed, and unreadable entries become warnings instead of aborting
// the walk.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sharedash/sharedash/internal/pathsafe"
)

// Scanner discovers tracked files under a sandboxed shared root.
type Scanner struct {
	sandbox *pathsafe.Sandbox
}

// New creates a Scanner over the given sandbox.
func New(sandbox *pathsafe.Sandbox) *Scanner {
	return &Scanner{sandbox: sandbox}
}

// Scan walks the shared root and returns a channel of Results that
// streams files and warnings as they are discovered. The channel is
// closed when the walk completes. Top-level subdirectories are walked
// concurrently; the stream as a whole is finite and restartable.
func (s *Scanner) Scan(ctx context.Context, opts *Options) (<-chan Result, error) {
	if opts == nil {
		opts = &Options{}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	root := s.sandbox.Root()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	results := make(chan Result, workers*10)

	go func() {
		defer close(results)

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)

		for _, entry := range entries {
			if s.skipName(entry.Name()) {
				continue
			}
			if entry.IsDir() {
				sub := filepath.Join(root, entry.Name())
				g.Go(func() error {
					return s.walk(ctx, sub, opts, results)
				})
				continue
			}
			s.emit(ctx, entry, filepath.Join(root, entry.Name()), opts, results)
		}

		// Walk errors other than cancellation were already reported as
		// warnings; nothing further to surface here.
		_ = g.Wait()
	}()

	return results, nil
}

// walk traverses one subtree, emitting files and warnings.
func (s *Scanner) walk(ctx context.Context, dir string, opts *Options, results chan<- Result) error {
	root := s.sandbox.Root()

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			s.warn(ctx, root, p, err, results)
			return nil
		}

		if d.IsDir() {
			if p != dir && s.skipName(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.skipName(d.Name()) {
			return nil
		}

		// Never follow symlinks; a link pointing outside the root must
		// not be inventoried (sandbox semantics).
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		s.emit(ctx, d, p, opts, results)
		return nil
	})
}

// emit stats one regular file and sends its descriptor.
func (s *Scanner) emit(ctx context.Context, d fs.DirEntry, abs string, opts *Options, results chan<- Result) {
	root := s.sandbox.Root()

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		s.warn(ctx, root, abs, err, results)
		return
	}
	relSlash := filepath.ToSlash(rel)

	if excluded(relSlash, opts.Exclude) {
		return
	}

	info, err := d.Info()
	if err != nil {
		s.warn(ctx, root, abs, err, results)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	fi := &FileInfo{
		Path:     relSlash,
		AbsPath:  abs,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		FileType: DetectFileType(relSlash),
	}

	select {
	case results <- Result{File: fi}:
	case <-ctx.Done():
	}
}

// warn reports a skipped entry on the stream.
func (s *Scanner) warn(ctx context.Context, root, p string, cause error, results chan<- Result) {
	rel := p
	if r, err := filepath.Rel(root, p); err == nil {
		rel = filepath.ToSlash(r)
	}
	select {
	case results <- Result{Warn: &Warning{Path: rel, Reason: cause.Error()}}:
	case <-ctx.Done():
	}
}

// skipName reports whether an entry is hidden. Dot-prefixed files and
// directories are system artifacts on shared trees, never tracked.
func (s *Scanner) skipName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// excluded checks a relative path against the exclusion patterns.
func excluded(relPath string, patterns []string) bool {
	baseName := filepath.Base(relPath)
	for _, pattern := range patterns {
		if matchPattern(relPath, baseName, pattern) {
			return true
		}
	}
	return false
}

// matchPattern matches one exclusion pattern against a slash-separated
// relative path. Supported forms: "**/name" (any path segment),
// "dir/**" (whole subtree), glob patterns against the base name, and
// exact relative paths.
func matchPattern(relPath, baseName, pattern string) bool {
	// **/name: match the trailing component anywhere in the tree.
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		if matched, err := filepath.Match(rest, baseName); err == nil && matched {
			return true
		}
		return false
	}

	// dir/**: match the directory itself or anything below it.
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return relPath == prefix || strings.HasPrefix(relPath, prefix+"/")
	}

	// Glob against the base name (e.g. "~$*", "*.tmp").
	if strings.ContainsAny(pattern, "*?[") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, baseName); err == nil && matched {
			return true
		}
		return false
	}

	// Exact relative path.
	return relPath == pattern
}
