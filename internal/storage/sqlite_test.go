package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/model"
)

func newTestKV(t *testing.T) *SQLiteKV {
	t.Helper()
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "choubo.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, kv.Close())
	})
	return kv
}

func TestPutGetRoundTrip(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "image:live", []byte(`{"sales":[]}`)))

	got, err := kv.Get(ctx, "image:live")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"sales":[]}`), got)

	// overwrite replaces
	require.NoError(t, kv.Put(ctx, "image:live", []byte(`{}`)))
	got, err = kv.Get(ctx, "image:live")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), got)
}

func TestGetMissingKey(t *testing.T) {
	kv := newTestKV(t)
	_, err := kv.Get(context.Background(), "image:absent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteMissingKey(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "backup:auto:x", []byte("data")))
	require.NoError(t, kv.Delete(ctx, "backup:auto:x"))
	assert.ErrorIs(t, kv.Delete(ctx, "backup:auto:x"), common.ErrNotFound)
}

func TestListByPrefix(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "backup:auto:20240101T000000.000000000", []byte("a")))
	require.NoError(t, kv.Put(ctx, "backup:auto:20240301T000000.000000000", []byte("bb")))
	require.NoError(t, kv.Put(ctx, "backup:manual:20240201T000000.000000000", []byte("ccc")))
	require.NoError(t, kv.Put(ctx, "image:live", []byte("dddd")))

	autos, err := kv.List(ctx, "backup:auto:")
	require.NoError(t, err)
	require.Len(t, autos, 2)
	// ascending key order == oldest first
	assert.Equal(t, "backup:auto:20240101T000000.000000000", autos[0].Key)
	assert.Equal(t, int64(1), autos[0].Size)

	all, err := kv.List(ctx, "backup:")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := kv.List(ctx, "backup:imported:")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBackupKeyRoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 3, 10, 15, 0, 123456789, time.UTC)
	key := BackupKey(model.SnapshotManual, created)

	kind, stamp, err := ParseBackupKey(key)
	require.NoError(t, err)
	assert.Equal(t, model.SnapshotManual, kind)
	assert.True(t, stamp.Equal(created))

	_, _, err = ParseBackupKey("image:live")
	assert.Error(t, err)
	_, _, err = ParseBackupKey("backup:auto:not-a-time")
	assert.Error(t, err)
}

func TestBackupKeysSortByCreationTime(t *testing.T) {
	older := BackupKey(model.SnapshotAuto, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC))
	newer := BackupKey(model.SnapshotAuto, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, older, newer)
}
