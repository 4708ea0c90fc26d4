package analytics

import (
	"sort"
	"time"

	"github.com/sharedash/sharedash/internal/metadata"
)

// Aggregator computes snapshots from metadata records.
type Aggregator struct {
	// MaxHot is the length of the hot-files list.
	MaxHot int
	// MinAccess is the minimum access count for a file to qualify as
	// hot.
	MinAccess int64
}

// NewAggregator creates an Aggregator.
func NewAggregator(maxHot int, minAccess int64) *Aggregator {
	if maxHot <= 0 {
		maxHot = 10
	}
	return &Aggregator{MaxHot: maxHot, MinAccess: minAccess}
}

// Compute derives a snapshot from the given records. Pure function: no
// I/O, no mutation of the inputs.
func (a *Aggregator) Compute(records []*metadata.FileRecord, now time.Time) *Snapshot {
	snap := &Snapshot{
		ComputedAt:           now,
		TotalFiles:           int64(len(records)),
		FileTypeDistribution: []TypeCount{},
		HotFiles:             []HotFile{},
	}

	byType := make(map[string]int64)
	var hot []*metadata.FileRecord

	for _, rec := range records {
		snap.TotalSizeBytes += rec.SizeBytes
		byType[rec.FileType]++
		if rec.AccessCount >= a.MinAccess {
			hot = append(hot, rec)
		}
	}

	for ft, count := range byType {
		snap.FileTypeDistribution = append(snap.FileTypeDistribution, TypeCount{FileType: ft, Count: count})
	}
	sort.Slice(snap.FileTypeDistribution, func(i, j int) bool {
		di, dj := snap.FileTypeDistribution[i], snap.FileTypeDistribution[j]
		if di.Count != dj.Count {
			return di.Count > dj.Count
		}
		return di.FileType < dj.FileType
	})

	// Highest access count first; ties go to the most recently
	// modified file.
	sort.Slice(hot, func(i, j int) bool {
		if hot[i].AccessCount != hot[j].AccessCount {
			return hot[i].AccessCount > hot[j].AccessCount
		}
		return hot[i].ModifiedAt.After(hot[j].ModifiedAt)
	})
	if len(hot) > a.MaxHot {
		hot = hot[:a.MaxHot]
	}
	for _, rec := range hot {
		snap.HotFiles = append(snap.HotFiles, HotFile{
			ID:           rec.ID,
			RelativePath: rec.RelativePath,
			FileType:     rec.FileType,
			AccessCount:  rec.AccessCount,
			ModifiedBy:   rec.ModifiedBy.String(),
			ModifiedAt:   rec.ModifiedAt,
		})
	}

	return snap
}
