package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/sharedash/sharedash/internal/errors"
)

func newBadger(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestReadLatestEmpty(t *testing.T) {
	store := newBadger(t)
	_, err := store.ReadLatest(context.Background())
	assert.Equal(t, derrors.ErrCodeFileNotFound, derrors.GetCode(err))
}

func TestReplaceAndReadRoundTrip(t *testing.T) {
	store := newBadger(t)
	ctx := context.Background()

	snap := &Snapshot{
		ComputedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		TotalFiles:     3,
		TotalSizeBytes: 123,
		FileTypeDistribution: []TypeCount{
			{FileType: "txt", Count: 2},
			{FileType: "csv", Count: 1},
		},
		HotFiles: []HotFile{{
			ID:           "id-1",
			RelativePath: "a.txt",
			FileType:     "txt",
			AccessCount:  7,
			ModifiedBy:   "user:alice",
			ModifiedAt:   time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC),
		}},
	}
	require.NoError(t, store.ReplaceSnapshot(ctx, snap))

	got, err := store.ReadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.TotalFiles, got.TotalFiles)
	assert.Equal(t, snap.TotalSizeBytes, got.TotalSizeBytes)
	assert.Equal(t, snap.FileTypeDistribution, got.FileTypeDistribution)
	require.Len(t, got.HotFiles, 1)
	assert.Equal(t, "a.txt", got.HotFiles[0].RelativePath)
	assert.True(t, got.ComputedAt.Equal(snap.ComputedAt))
}

func TestReplaceFullyReplaces(t *testing.T) {
	store := newBadger(t)
	ctx := context.Background()

	first := &Snapshot{
		TotalFiles: 10,
		FileTypeDistribution: []TypeCount{
			{FileType: "txt", Count: 10},
		},
		HotFiles: []HotFile{{RelativePath: "old.txt"}},
	}
	require.NoError(t, store.ReplaceSnapshot(ctx, first))

	second := &Snapshot{
		TotalFiles:           1,
		FileTypeDistribution: []TypeCount{},
		HotFiles:             []HotFile{},
	}
	require.NoError(t, store.ReplaceSnapshot(ctx, second))

	got, err := store.ReadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalFiles)
	// Nothing from the first snapshot survives.
	assert.Empty(t, got.FileTypeDistribution)
	assert.Empty(t, got.HotFiles)
}
