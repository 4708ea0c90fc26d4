// Package content provides safe read/write access to a single file's
// textual content for the in-browser editor.
//
// Access is restricted to an extension allowlist and a size cap, and a
// write requires the mtime the caller last observed: if the file
// changed on disk since, the write fails with a conflict instead of
// silently clobbering the external edit.
package content

import (
	"context"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	derrors "github.com/sharedash/sharedash/internal/errors"
	"github.com/sharedash/sharedash/internal/metadata"
	"github.com/sharedash/sharedash/internal/pathsafe"
)

// modTimeSlack tolerates coarse share timestamps when comparing the
// caller's expected mtime against disk.
const modTimeSlack = 2 * time.Second

// Refresher triggers an analytics refresh after a successful write.
type Refresher interface {
	Sync(ctx context.Context) error
}

// FileContent is the result of a read.
type FileContent struct {
	Record    *metadata.FileRecord
	Content   string
	SizeBytes int64
	// ModifiedAt is the on-disk mtime at read time. Callers pass it
	// back to Write as the expected mtime.
	ModifiedAt time.Time
}

// Accessor reads and writes editable file content inside the sandbox.
type Accessor struct {
	sandbox   *pathsafe.Sandbox
	store     metadata.Store
	analytics Refresher // optional
	allowed   map[string]struct{}
	maxSize   int64

	// mu guards locks; each path gets its own mutex so writers to the
	// same file serialize while distinct files proceed in parallel.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Accessor with the given extension allowlist and size
// cap.
func New(sandbox *pathsafe.Sandbox, store metadata.Store, analytics Refresher, allowedTypes []string, maxSize int64) *Accessor {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}
	return &Accessor{
		sandbox:   sandbox,
		store:     store,
		analytics: analytics,
		allowed:   allowed,
		maxSize:   maxSize,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Read returns the content of the record's file. Fails for types
// outside the allowlist, content above the size cap, and non-text
// content.
func (a *Accessor) Read(ctx context.Context, id string) (*FileContent, error) {
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.editable(rec.FileType) {
		return nil, derrors.UnsupportedTypeError(rec.FileType)
	}

	abs, err := a.sandbox.Resolve(rec.RelativePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return nil, derrors.NotFoundError(rec.RelativePath)
	}
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeFilePermission, err)
	}
	if info.Size() > a.maxSize {
		return nil, derrors.TooLargeError(rec.RelativePath, info.Size(), a.maxSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeFilePermission, err)
	}
	if !utf8.Valid(data) {
		return nil, derrors.UnsupportedTypeError(rec.FileType).
			WithDetail("reason", "content is not valid UTF-8")
	}

	return &FileContent{
		Record:     rec,
		Content:    string(data),
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}

// Write persists new content for the record's file, then updates the
// record's size, mtime and actor in the same logical operation.
// expectedModTime is the on-disk mtime the caller last observed; a
// newer mtime on disk means an external process modified the file and
// the write fails with a conflict.
func (a *Accessor) Write(ctx context.Context, id string, content string, expectedModTime time.Time, actor metadata.Actor) error {
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !a.editable(rec.FileType) {
		return derrors.UnsupportedTypeError(rec.FileType)
	}
	if int64(len(content)) > a.maxSize {
		return derrors.TooLargeError(rec.RelativePath, int64(len(content)), a.maxSize)
	}

	abs, err := a.sandbox.Resolve(rec.RelativePath)
	if err != nil {
		return err
	}

	lock := a.lockFor(rec.RelativePath)
	lock.Lock()
	defer lock.Unlock()

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return derrors.NotFoundError(rec.RelativePath)
	}
	if err != nil {
		return derrors.Wrap(derrors.ErrCodeFilePermission, err)
	}
	if stale(info.ModTime(), expectedModTime) {
		return derrors.ConflictError(rec.RelativePath)
	}

	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return derrors.Wrap(derrors.ErrCodeFilePermission, err)
	}

	written, err := os.Stat(abs)
	if err != nil {
		return derrors.Wrap(derrors.ErrCodeFilePermission, err)
	}

	err = a.store.Update(ctx, rec.RelativePath, metadata.FieldUpdate{
		FileType:   rec.FileType,
		SizeBytes:  written.Size(),
		ModifiedAt: written.ModTime(),
		ModifiedBy: actor,
	})
	if err != nil {
		return err
	}

	if a.analytics != nil {
		if err := a.analytics.Sync(ctx); err != nil {
			return err
		}
	}
	return nil
}

// editable checks the extension allowlist.
func (a *Accessor) editable(fileType string) bool {
	_, ok := a.allowed[fileType]
	return ok
}

// stale reports whether the on-disk mtime diverged from what the
// caller last observed, beyond timestamp granularity slack.
func stale(onDisk, expected time.Time) bool {
	diff := onDisk.Sub(expected)
	if diff < 0 {
		diff = -diff
	}
	return diff > modTimeSlack
}

// lockFor returns the mutex serializing writes to one path.
func (a *Accessor) lockFor(path string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok := a.locks[path]; ok {
		return l
	}
	l := &sync.Mutex{}
	a.locks[path] = l
	return l
}
