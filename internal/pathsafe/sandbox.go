// Package pathsafe validates and canonicalizes relative paths against
// the configured shared root. Every component that touches the
// filesystem goes through a Sandbox; nothing outside the root is ever
// resolved.
package pathsafe

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	derrors "github.com/sharedash/sharedash/internal/errors"
)

// cacheSize is the maximum number of resolved paths kept in the LRU.
// Bounds memory in long-running processes.
const cacheSize = 4096

// Sandbox resolves relative paths inside a single shared root.
type Sandbox struct {
	// root is the absolute, symlink-evaluated shared root.
	root string

	// cache holds successful resolutions (input -> absolute path).
	// Purged via Invalidate at the start of every rescan, since
	// symlink targets may have changed since the last resolution.
	cache *lru.Cache[string, string]
}

// New creates a Sandbox for the given shared root. The root must exist
// and be a directory.
func New(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeInvalidInput, "invalid shared root: "+root, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeInvalidInput, "shared root not found: "+abs, err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeInvalidInput, "shared root not found: "+real, err)
	}
	if !info.IsDir() {
		return nil, derrors.New(derrors.ErrCodeInvalidInput, "shared root is not a directory: "+real, nil)
	}

	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, derrors.InternalError("create path cache", err)
	}
	return &Sandbox{root: real, cache: cache}, nil
}

// Root returns the canonical shared root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve validates rel and returns the absolute path it denotes inside
// the shared root. It fails with a traversal error when the input is
// absolute, contains control characters, escapes the root after
// normalization, or reaches outside the root through a symlink.
func (s *Sandbox) Resolve(rel string) (string, error) {
	if abs, ok := s.cache.Get(rel); ok {
		return abs, nil
	}

	abs, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	s.cache.Add(rel, abs)
	return abs, nil
}

// Invalidate drops all cached resolutions. Called before every rescan.
func (s *Sandbox) Invalidate() {
	s.cache.Purge()
}

func (s *Sandbox) resolve(rel string) (string, error) {
	if rel == "" {
		return "", derrors.New(derrors.ErrCodeInvalidInput, "empty path", nil)
	}
	for _, r := range rel {
		if r < 0x20 || r == 0x7f {
			return "", derrors.TraversalError(rel)
		}
	}

	// Shares mounted from Windows clients report backslash separators.
	normalized := strings.ReplaceAll(rel, "\\", "/")
	if path.IsAbs(normalized) || filepath.IsAbs(rel) {
		return "", derrors.TraversalError(rel)
	}

	cleaned := path.Clean(normalized)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", derrors.TraversalError(rel)
	}

	abs := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", derrors.TraversalError(rel)
	}

	if err := s.checkSymlinks(rel, abs); err != nil {
		return "", err
	}
	return abs, nil
}

// checkSymlinks verifies that the canonical form of abs (or, when the
// target does not exist yet, of its nearest existing ancestor) is still
// under the root. Catches symlinks inside the tree pointing elsewhere.
func (s *Sandbox) checkSymlinks(rel, abs string) error {
	target := abs
	for {
		real, err := filepath.EvalSymlinks(target)
		if err == nil {
			if real != s.root && !strings.HasPrefix(real, s.root+string(filepath.Separator)) {
				return derrors.TraversalError(rel)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return derrors.Wrap(derrors.ErrCodeFilePermission, err)
		}
		parent := filepath.Dir(target)
		if parent == target {
			return nil
		}
		target = parent
	}
}
