package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/sharedash/sharedash/internal/errors"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(path string) *FileRecord {
	now := time.Now().UTC()
	return &FileRecord{
		ID:           uuid.NewString(),
		RelativePath: path,
		FileType:     "txt",
		SizeBytes:    10,
		ModifiedAt:   now,
		UploadedBy:   ExternalActor(),
		ModifiedBy:   ExternalActor(),
		CreatedAt:    now,
	}
}

func TestCreateAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := testRecord("docs/a.txt")
	rec.Team = "finance"
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.RelativePath, got.RelativePath)
	assert.Equal(t, rec.FileType, got.FileType)
	assert.Equal(t, rec.SizeBytes, got.SizeBytes)
	assert.Equal(t, "finance", got.Team)
	assert.True(t, got.UploadedBy.IsExternal())
	// Nanosecond mtime fidelity: the stored value must compare equal to
	// a fresh stat during reconciliation.
	assert.True(t, got.ModifiedAt.Equal(rec.ModifiedAt))
}

func TestGetByPath(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := testRecord("b.csv")
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.GetByPath(ctx, "b.csv")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = store.GetByPath(ctx, "missing.csv")
	assert.Equal(t, derrors.ErrCodeFileNotFound, derrors.GetCode(err))
}

func TestGetMissingID(t *testing.T) {
	store := newStore(t)
	_, err := store.Get(context.Background(), "no-such-id")
	assert.Equal(t, derrors.ErrCodeFileNotFound, derrors.GetCode(err))
}

func TestListOrdersByPath(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testRecord("z.txt")))
	require.NoError(t, store.Create(ctx, testRecord("a.txt")))
	require.NoError(t, store.Create(ctx, testRecord("m/n.txt")))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a.txt", records[0].RelativePath)
	assert.Equal(t, "m/n.txt", records[1].RelativePath)
	assert.Equal(t, "z.txt", records[2].RelativePath)
}

func TestUpdateRefreshesFields(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := testRecord("a.txt")
	require.NoError(t, store.Create(ctx, rec))

	newTime := time.Now().UTC().Add(time.Hour)
	err := store.Update(ctx, "a.txt", FieldUpdate{
		FileType:   "txt",
		SizeBytes:  42,
		ModifiedAt: newTime,
		ModifiedBy: UserActor("alice"),
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.SizeBytes)
	assert.True(t, got.ModifiedAt.Equal(newTime))
	assert.Equal(t, UserActor("alice"), got.ModifiedBy)
	// Untouched columns survive.
	assert.True(t, got.UploadedBy.IsExternal())
	assert.Equal(t, rec.ID, got.ID)
}

func TestUpdateMissingPathFails(t *testing.T) {
	store := newStore(t)
	err := store.Update(context.Background(), "missing.txt", FieldUpdate{FileType: "txt"})
	assert.Equal(t, derrors.ErrCodeFileNotFound, derrors.GetCode(err))
}

func TestDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := testRecord("gone.txt")
	require.NoError(t, store.Create(ctx, rec))
	require.NoError(t, store.Delete(ctx, "gone.txt"))

	_, err := store.Get(ctx, rec.ID)
	assert.Equal(t, derrors.ErrCodeFileNotFound, derrors.GetCode(err))

	assert.Equal(t, derrors.ErrCodeFileNotFound,
		derrors.GetCode(store.Delete(ctx, "gone.txt")))
}

func TestApplyMixedBatch(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	existing := testRecord("keep.txt")
	doomed := testRecord("doomed.txt")
	require.NoError(t, store.Create(ctx, existing))
	require.NoError(t, store.Create(ctx, doomed))

	batch := &Batch{
		Creates: []*FileRecord{testRecord("new.csv")},
		Updates: []PathUpdate{{
			RelativePath: "keep.txt",
			Fields: FieldUpdate{
				FileType:   "txt",
				SizeBytes:  99,
				ModifiedAt: time.Now().UTC(),
				ModifiedBy: ExternalActor(),
			},
		}},
		Deletes: []string{"doomed.txt"},
	}
	require.NoError(t, store.Apply(ctx, batch))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	kept, err := store.GetByPath(ctx, "keep.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(99), kept.SizeBytes)

	_, err = store.GetByPath(ctx, "new.csv")
	assert.NoError(t, err)
	_, err = store.GetByPath(ctx, "doomed.txt")
	assert.Error(t, err)
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	existing := testRecord("existing.txt")
	require.NoError(t, store.Create(ctx, existing))

	// Second create collides on the unique path; the whole batch must
	// roll back, including the create that already succeeded.
	batch := &Batch{
		Creates: []*FileRecord{
			testRecord("fresh.txt"),
			testRecord("existing.txt"),
		},
		Deletes: []string{"existing.txt"},
	}
	err := store.Apply(ctx, batch)
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeStoreUnavailable, derrors.GetCode(err))

	records, listErr := store.List(ctx)
	require.NoError(t, listErr)
	require.Len(t, records, 1)
	assert.Equal(t, "existing.txt", records[0].RelativePath)
}

func TestApplyEmptyBatchIsNoop(t *testing.T) {
	store := newStore(t)
	assert.NoError(t, store.Apply(context.Background(), &Batch{}))
	assert.NoError(t, store.Apply(context.Background(), nil))
}

func TestIncrementAccess(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := testRecord("hot.txt")
	require.NoError(t, store.Create(ctx, rec))

	for want := int64(1); want <= 3; want++ {
		count, err := store.IncrementAccess(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.AccessCount)

	_, err = store.IncrementAccess(ctx, "no-such-id")
	assert.Equal(t, derrors.ErrCodeFileNotFound, derrors.GetCode(err))
}
