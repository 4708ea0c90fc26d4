package scanner

import (
	"path"
	"strings"
	"time"
)

// FileTypeUnknown marks files whose name carries no extension. Never
// empty string, so downstream grouping is unambiguous.
const FileTypeUnknown = "unknown"

// FileInfo describes one regular file discovered under the shared root.
type FileInfo struct {
	// Path is relative to the shared root, slash-separated.
	Path string
	// AbsPath is the absolute filesystem path.
	AbsPath string
	// Size is the byte size from stat.
	Size int64
	// ModTime is the filesystem mtime from stat.
	ModTime time.Time
	// FileType is the lowercase extension without the dot, or
	// FileTypeUnknown.
	FileType string
}

// Warning records a non-fatal, per-entry failure during a walk.
// A single unreadable entry must not abort the scan.
type Warning struct {
	// Path is relative to the shared root where known, otherwise the
	// absolute path of the failing entry.
	Path string
	// Reason is the underlying failure.
	Reason string
}

// Result is one item on the scan stream: either a file or a warning.
type Result struct {
	File *FileInfo
	Warn *Warning
}

// Options configures a scan.
type Options struct {
	// Exclude lists patterns skipped in addition to hidden entries.
	Exclude []string
	// Workers bounds concurrent subtree walks. Zero means NumCPU.
	Workers int
}

// DetectFileType infers the record file type from a path.
func DetectFileType(p string) string {
	ext := path.Ext(path.Base(p))
	if ext == "" || ext == "." {
		return FileTypeUnknown
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
