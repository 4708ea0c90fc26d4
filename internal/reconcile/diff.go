// Package reconcile converges the metadata store with the shared root.
//
// A rescan walks the tree, diffs the inventory against stored records,
// and applies the minimal set of creates, updates and deletes as one
// transactional batch. Changes detected here carry no application-level
// actor, so they are attributed to the external-edit sentinel.
package reconcile

import (
	"strings"
	"time"

	"github.com/sharedash/sharedash/internal/metadata"
	"github.com/sharedash/sharedash/internal/scanner"
)

// ModTimeThreshold ignores tiny timestamp differences. Shares exported
// from FAT/SMB round mtimes to two-second granularity; treating that
// jitter as an external edit would churn every record on every rescan.
const ModTimeThreshold = 2 * time.Second

// UpdatePair joins an existing record with the on-disk state that
// supersedes it.
type UpdatePair struct {
	Record *metadata.FileRecord
	File   *scanner.FileInfo
}

// Plan is the classified three-way diff. Every path lands in exactly
// one bucket; "unchanged" is explicit so the classification itself is
// observable.
type Plan struct {
	Creates   []*scanner.FileInfo
	Updates   []UpdatePair
	Deletes   []*metadata.FileRecord
	Unchanged []*metadata.FileRecord
}

// Key normalizes a relative path for diffing: slash-separated and
// lowercased, so "File.txt" on disk matches "file.txt" in the store on
// case-insensitive shares. Records keep their on-disk casing.
func Key(relativePath string) string {
	return strings.ToLower(strings.ReplaceAll(relativePath, "\\", "/"))
}

// Diff classifies every inventory path and every stored record. Inputs
// are maps keyed by Key; pure function of its arguments.
func Diff(inventory map[string]*scanner.FileInfo, records map[string]*metadata.FileRecord) *Plan {
	plan := &Plan{}

	for key, file := range inventory {
		rec, ok := records[key]
		if !ok {
			plan.Creates = append(plan.Creates, file)
			continue
		}
		if changed(rec, file) {
			plan.Updates = append(plan.Updates, UpdatePair{Record: rec, File: file})
		} else {
			plan.Unchanged = append(plan.Unchanged, rec)
		}
	}

	for key, rec := range records {
		if _, ok := inventory[key]; !ok {
			plan.Deletes = append(plan.Deletes, rec)
		}
	}

	return plan
}

// changed reports whether the on-disk state supersedes the record: the
// size differs, or the disk mtime is newer than the stored mtime by
// more than the threshold. A stored mtime newer than disk is left
// alone — the store already reflects a later application-level write.
func changed(rec *metadata.FileRecord, file *scanner.FileInfo) bool {
	if rec.SizeBytes != file.Size {
		return true
	}
	return file.ModTime.After(rec.ModifiedAt.Add(ModTimeThreshold))
}
