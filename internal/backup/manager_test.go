package backup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/exchange"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/persist"
	"github.com/choubo/choubo/internal/storage"
	"github.com/choubo/choubo/internal/store"
)

type fixture struct {
	store   *store.Store
	engine  *persist.Engine
	manager *Manager
	kv      storage.KV
	ctx     context.Context
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	kv, err := storage.NewSQLiteKV(filepath.Join(t.TempDir(), "choubo.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, kv.Close())
	})

	st := store.New()
	engine := persist.New(st, kv, persist.Options{
		Retry: common.RetryOptions{MaxAttempts: 3, Unit: time.Millisecond},
	})
	manager := NewManager(st, engine, kv, opts)

	// deterministic clock so snapshot keys never collide within a test
	stamp := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	manager.now = func() time.Time {
		stamp = stamp.Add(time.Second)
		return stamp
	}

	return &fixture{store: st, engine: engine, manager: manager, kv: kv, ctx: context.Background()}
}

func (f *fixture) addSales(t *testing.T, amount int64) model.Record {
	t.Helper()
	rec, err := f.store.Add(model.CategorySales, model.Fields{
		model.FieldYear: 2024, model.FieldMonth: 3, model.FieldAmount: amount,
	})
	require.NoError(t, err)
	return rec
}

func TestCreateAndListSnapshots(t *testing.T) {
	f := newFixture(t, Options{})
	f.addSales(t, 500000)

	var created []model.Event
	f.manager.Subscribe(func(ev model.Event) { created = append(created, ev) })

	autoKey, err := f.manager.CreateAutomatic(f.ctx, "periodic")
	require.NoError(t, err)
	manualKey, err := f.manager.CreateManual(f.ctx, "月次締め")
	require.NoError(t, err)

	snapshots, err := f.manager.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	// newest first
	assert.Equal(t, manualKey, snapshots[0].Key)
	assert.Equal(t, model.SnapshotManual, snapshots[0].Kind)
	assert.Equal(t, "月次締め", snapshots[0].Description)
	assert.Equal(t, 1, snapshots[0].RecordCount)
	assert.Positive(t, snapshots[0].SizeBytes)
	assert.Equal(t, autoKey, snapshots[1].Key)

	require.Len(t, created, 2)
	assert.Equal(t, model.SnapshotAuto, created[0].(model.BackupCreated).Kind)
	assert.Equal(t, model.SnapshotManual, created[1].(model.BackupCreated).Kind)
}

func TestRotationEvictsOldestPerKind(t *testing.T) {
	f := newFixture(t, Options{RetainPerKind: 3})
	f.addSales(t, 100)

	var keys []string
	for i := 0; i < 4; i++ {
		key, err := f.manager.CreateAutomatic(f.ctx, "periodic")
		require.NoError(t, err)
		keys = append(keys, key)
	}
	// manual snapshots rotate independently
	_, err := f.manager.CreateManual(f.ctx, "keep")
	require.NoError(t, err)

	autos, err := f.kv.List(f.ctx, storage.BackupKeyPrefix(model.SnapshotAuto))
	require.NoError(t, err)
	require.Len(t, autos, 3, "bound of 3 keeps exactly 3")

	// the oldest automatic snapshot was evicted
	_, err = f.kv.Get(f.ctx, keys[0])
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.kv.Get(f.ctx, keys[3])
	assert.NoError(t, err)

	manuals, err := f.kv.List(f.ctx, storage.BackupKeyPrefix(model.SnapshotManual))
	require.NoError(t, err)
	assert.Len(t, manuals, 1)
}

func TestListSkipsUnparseableSnapshots(t *testing.T) {
	f := newFixture(t, Options{})
	f.addSales(t, 100)

	_, err := f.manager.CreateManual(f.ctx, "good")
	require.NoError(t, err)
	require.NoError(t, f.kv.Put(f.ctx, storage.BackupKey(model.SnapshotAuto, time.Now()), []byte("{corrupt")))

	snapshots, err := f.manager.List(f.ctx)
	require.NoError(t, err, "corrupt snapshots are skipped, not fatal")
	require.Len(t, snapshots, 1)
	assert.Equal(t, "good", snapshots[0].Description)
}

func TestRestoreCreatesPreRestoreSnapshot(t *testing.T) {
	f := newFixture(t, Options{})
	old := f.addSales(t, 100)

	key, err := f.manager.CreateManual(f.ctx, "before change")
	require.NoError(t, err)

	// live state diverges from the snapshot
	replacement, err := f.store.Add(model.CategorySales, model.Fields{
		model.FieldYear: 2024, model.FieldMonth: 4, model.FieldAmount: int64(999),
	})
	require.NoError(t, err)
	_, err = f.store.Delete(model.CategorySales, old.ID)
	require.NoError(t, err)

	var restored []model.BackupRestored
	f.manager.Subscribe(func(ev model.Event) {
		if e, ok := ev.(model.BackupRestored); ok {
			restored = append(restored, e)
		}
	})

	require.NoError(t, f.manager.Restore(f.ctx, key))

	// the snapshot's contents are live again
	_, err = f.store.ByID(model.CategorySales, old.ID)
	assert.NoError(t, err)
	_, err = f.store.ByID(model.CategorySales, replacement.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// exactly one pre-restore automatic snapshot of the prior state exists
	autos, err := f.kv.List(f.ctx, storage.BackupKeyPrefix(model.SnapshotAuto))
	require.NoError(t, err)
	require.Len(t, autos, 1)

	raw, err := f.kv.Get(f.ctx, autos[0].Key)
	require.NoError(t, err)
	doc, err := exchange.Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, doc.BackupInfo)
	assert.Equal(t, "pre-restore", doc.BackupInfo.Description)
	preRestore := doc.ToMap()
	require.Len(t, preRestore[model.CategorySales], 1)
	assert.Equal(t, replacement.ID, preRestore[model.CategorySales][0].ID)

	// the restore was persisted durably
	img, err := f.kv.Get(f.ctx, storage.LiveImageKey)
	require.NoError(t, err)
	data, err := exchange.DecodeImage(img)
	require.NoError(t, err)
	require.Len(t, data[model.CategorySales], 1)
	assert.Equal(t, old.ID, data[model.CategorySales][0].ID)

	require.Len(t, restored, 1)
	assert.Equal(t, key, restored[0].Key)
	assert.Equal(t, 1, restored[0].RecordCount)
}

func TestRestoreUnknownKey(t *testing.T) {
	f := newFixture(t, Options{})
	err := f.manager.Restore(f.ctx, "backup:manual:nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteSnapshot(t *testing.T) {
	f := newFixture(t, Options{})
	f.addSales(t, 100)

	key, err := f.manager.CreateManual(f.ctx, "")
	require.NoError(t, err)

	require.NoError(t, f.manager.Delete(f.ctx, key))
	assert.ErrorIs(t, f.manager.Delete(f.ctx, key), common.ErrNotFound)
	assert.ErrorIs(t, f.manager.Delete(f.ctx, "image:live"), common.ErrNotFound,
		"only the snapshot namespace is deletable")
}

func TestImportRecordsSnapshotWithoutTouchingLiveStore(t *testing.T) {
	f := newFixture(t, Options{})
	f.addSales(t, 100)

	// a portable file exported from another install
	other := store.New()
	_, err := other.Add(model.CategoryPurchases, model.Fields{
		model.FieldYear: 2023, model.FieldMonth: 11, model.FieldAmount: int64(77),
	})
	require.NoError(t, err)
	raw, err := exchange.Encode(other.Snapshot(), time.Now(), nil)
	require.NoError(t, err)

	key, err := f.manager.ImportPortable(f.ctx, raw)
	require.NoError(t, err)

	kind, _, err := storage.ParseBackupKey(key)
	require.NoError(t, err)
	assert.Equal(t, model.SnapshotImported, kind)

	// live store untouched until an explicit restore
	assert.Equal(t, 1, f.store.TotalCount())
	counts := f.store.Counts()
	assert.Equal(t, 0, counts[model.CategoryPurchases])

	require.NoError(t, f.manager.Restore(f.ctx, key))
	assert.Equal(t, 1, f.store.Counts()[model.CategoryPurchases])
	assert.Equal(t, 0, f.store.Counts()[model.CategorySales])
}

func TestImportRejectsMalformedOrCorruptFiles(t *testing.T) {
	f := newFixture(t, Options{})
	f.addSales(t, 100)

	_, err := f.manager.ImportPortable(f.ctx, []byte("not json"))
	assert.ErrorIs(t, err, common.ErrBadFormat)

	// structurally invalid contents are rejected before acceptance
	now := time.Now()
	raw, err := exchange.Encode(map[model.Category][]model.Record{
		model.CategorySales: {{ID: "bogus", CreatedAt: now, UpdatedAt: now, Year: 2024, Month: 1, Amount: 1}},
	}, now, nil)
	require.NoError(t, err)

	_, err = f.manager.ImportPortable(f.ctx, raw)
	assert.ErrorIs(t, err, common.ErrIntegrity)

	imported, listErr := f.kv.List(f.ctx, storage.BackupKeyPrefix(model.SnapshotImported))
	require.NoError(t, listErr)
	assert.Empty(t, imported, "rejected imports leave no snapshot behind")
}

func TestExportPortableRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.addSales(t, 500000)

	// live export carries exportInfo but no backupInfo
	raw, err := f.manager.ExportPortable(f.ctx, "")
	require.NoError(t, err)
	doc, err := exchange.Decode(raw)
	require.NoError(t, err)
	assert.Nil(t, doc.BackupInfo)
	assert.Equal(t, 1, doc.ExportInfo.RecordCount)
	assert.Equal(t, rec.ID, doc.Sales[0].ID)

	// snapshot export carries backupInfo
	key, err := f.manager.CreateManual(f.ctx, "保管")
	require.NoError(t, err)
	raw, err = f.manager.ExportPortable(f.ctx, key)
	require.NoError(t, err)
	doc, err = exchange.Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, doc.BackupInfo)
	assert.Equal(t, model.SnapshotManual, doc.BackupInfo.Type)
	assert.Equal(t, "保管", doc.BackupInfo.Description)
}

func TestObserveSavesSamplesAutomaticBackups(t *testing.T) {
	f := newFixture(t, Options{AutoFraction: 0.5})
	f.manager.randFloat = func() float64 { return 0.0 } // always under the fraction
	f.manager.ObserveSaves()

	f.addSales(t, 100)
	require.NoError(t, f.engine.Save(f.ctx))

	autos, err := f.kv.List(f.ctx, storage.BackupKeyPrefix(model.SnapshotAuto))
	require.NoError(t, err)
	assert.Len(t, autos, 1, "sampled save produced one automatic snapshot")

	f.manager.randFloat = func() float64 { return 0.9 } // always over
	f.addSales(t, 200)
	require.NoError(t, f.engine.Save(f.ctx))

	autos, err = f.kv.List(f.ctx, storage.BackupKeyPrefix(model.SnapshotAuto))
	require.NoError(t, err)
	assert.Len(t, autos, 1, "unsampled save adds nothing")
}
