// Package analytics computes and persists dashboard snapshots.
//
// A snapshot is a fully-replacing, point-in-time aggregate over the
// metadata store: it is written whole and read whole, never patched, so
// the dashboard always observes an internally consistent view.
package analytics

import (
	"context"
	"time"
)

// TypeCount is one entry of the file type distribution.
type TypeCount struct {
	FileType string `json:"file_type"`
	Count    int64  `json:"count"`
}

// HotFile summarizes one frequently-accessed record.
type HotFile struct {
	ID           string    `json:"id"`
	RelativePath string    `json:"relative_path"`
	FileType     string    `json:"file_type"`
	AccessCount  int64     `json:"access_count"`
	ModifiedBy   string    `json:"modified_by"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// Snapshot is the point-in-time analytics document served to the
// dashboard.
type Snapshot struct {
	ComputedAt           time.Time   `json:"computed_at"`
	TotalFiles           int64       `json:"total_files"`
	TotalSizeBytes       int64       `json:"total_size_bytes"`
	FileTypeDistribution []TypeCount `json:"file_type_distribution"`
	HotFiles             []HotFile   `json:"hot_files"`
}

// Store is the document cache holding the latest snapshot.
type Store interface {
	// ReplaceSnapshot atomically replaces the latest snapshot.
	ReplaceSnapshot(ctx context.Context, snap *Snapshot) error

	// ReadLatest returns the latest snapshot, or a not-found error
	// when none has been computed yet.
	ReadLatest(ctx context.Context) (*Snapshot, error)

	// Close releases the underlying database.
	Close() error
}
