package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharedash/sharedash/internal/metadata"
)

func rec(path, fileType string, size, accesses int64, modified time.Time) *metadata.FileRecord {
	return &metadata.FileRecord{
		ID:           "id-" + path,
		RelativePath: path,
		FileType:     fileType,
		SizeBytes:    size,
		AccessCount:  accesses,
		ModifiedAt:   modified,
		ModifiedBy:   metadata.ExternalActor(),
	}
}

func TestComputeEmpty(t *testing.T) {
	agg := NewAggregator(10, 1)
	now := time.Now().UTC()

	snap := agg.Compute(nil, now)

	assert.True(t, snap.ComputedAt.Equal(now))
	assert.Equal(t, int64(0), snap.TotalFiles)
	assert.Equal(t, int64(0), snap.TotalSizeBytes)
	// Empty slices, not nil: the snapshot serializes to [] not null.
	assert.NotNil(t, snap.FileTypeDistribution)
	assert.NotNil(t, snap.HotFiles)
	assert.Empty(t, snap.FileTypeDistribution)
	assert.Empty(t, snap.HotFiles)
}

func TestComputeTotalsAndDistribution(t *testing.T) {
	agg := NewAggregator(10, 1)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	records := []*metadata.FileRecord{
		rec("a.txt", "txt", 10, 0, base),
		rec("b.txt", "txt", 20, 0, base),
		rec("c.csv", "csv", 30, 0, base),
		rec("d.csv", "csv", 5, 0, base),
		rec("e.md", "md", 1, 0, base),
	}

	snap := agg.Compute(records, base)

	assert.Equal(t, int64(5), snap.TotalFiles)
	assert.Equal(t, int64(66), snap.TotalSizeBytes)

	// Count descending, name ascending on ties.
	require.Len(t, snap.FileTypeDistribution, 3)
	assert.Equal(t, TypeCount{FileType: "csv", Count: 2}, snap.FileTypeDistribution[0])
	assert.Equal(t, TypeCount{FileType: "txt", Count: 2}, snap.FileTypeDistribution[1])
	assert.Equal(t, TypeCount{FileType: "md", Count: 1}, snap.FileTypeDistribution[2])
}

func TestComputeHotFilesOrderingAndGating(t *testing.T) {
	agg := NewAggregator(10, 2)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	records := []*metadata.FileRecord{
		rec("cold.txt", "txt", 1, 1, base),
		rec("warm.txt", "txt", 1, 2, base),
		rec("hot.txt", "txt", 1, 9, base),
		rec("tie-old.txt", "txt", 1, 5, base),
		rec("tie-new.txt", "txt", 1, 5, base.Add(time.Hour)),
	}

	snap := agg.Compute(records, base)

	require.Len(t, snap.HotFiles, 4)
	assert.Equal(t, "hot.txt", snap.HotFiles[0].RelativePath)
	// Equal counts: most recently modified first.
	assert.Equal(t, "tie-new.txt", snap.HotFiles[1].RelativePath)
	assert.Equal(t, "tie-old.txt", snap.HotFiles[2].RelativePath)
	assert.Equal(t, "warm.txt", snap.HotFiles[3].RelativePath)

	assert.Equal(t, int64(9), snap.HotFiles[0].AccessCount)
	assert.Equal(t, "external", snap.HotFiles[0].ModifiedBy)
}

func TestComputeHotFilesTruncation(t *testing.T) {
	agg := NewAggregator(2, 1)
	base := time.Now().UTC()

	records := []*metadata.FileRecord{
		rec("a.txt", "txt", 1, 3, base),
		rec("b.txt", "txt", 1, 7, base),
		rec("c.txt", "txt", 1, 5, base),
	}

	snap := agg.Compute(records, base)

	require.Len(t, snap.HotFiles, 2)
	assert.Equal(t, "b.txt", snap.HotFiles[0].RelativePath)
	assert.Equal(t, "c.txt", snap.HotFiles[1].RelativePath)
}

func TestComputeZeroMinAccessIncludesUntouched(t *testing.T) {
	agg := NewAggregator(10, 0)
	base := time.Now().UTC()

	snap := agg.Compute([]*metadata.FileRecord{rec("a.txt", "txt", 1, 0, base)}, base)
	assert.Len(t, snap.HotFiles, 1)
}

func TestNewAggregatorDefaultsMaxHot(t *testing.T) {
	agg := NewAggregator(0, 1)
	assert.Equal(t, 10, agg.MaxHot)
}
