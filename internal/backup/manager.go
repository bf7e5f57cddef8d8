// Package backup manages whole-store snapshots: automatic and manual
// creation, per-kind rotation, restore with a pre-restore safety snapshot,
// and portable export/import.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/choubo/choubo/internal/exchange"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/persist"
	"github.com/choubo/choubo/internal/storage"
	"github.com/choubo/choubo/internal/store"
)

// Retention and sampling defaults. Bounds apply per kind independently,
// oldest evicted first.
const (
	DefaultRetainPerKind = 10
	DefaultAutoFraction  = 0.1
)

// Options configures the manager.
type Options struct {
	RetainPerKind int
	AutoFraction  float64
}

// Snapshot describes one stored snapshot for listing.
type Snapshot struct {
	Timestamp   time.Time
	Key         string
	Description string
	Kind        model.SnapshotKind
	SizeBytes   int64
	RecordCount int
}

// Manager reads and writes the snapshot namespace. Snapshots are created,
// never mutated; they leave the namespace only through rotation or
// explicit deletion.
type Manager struct {
	store     *store.Store
	engine    *persist.Engine
	kv        storage.KV
	now       func() time.Time
	randFloat func() float64
	listeners []model.Listener
	opts      Options
	mu        sync.Mutex
}

// NewManager creates a manager over the shared durable backend.
func NewManager(st *store.Store, engine *persist.Engine, kv storage.KV, opts Options) *Manager {
	if opts.RetainPerKind <= 0 {
		opts.RetainPerKind = DefaultRetainPerKind
	}
	if opts.AutoFraction <= 0 {
		opts.AutoFraction = DefaultAutoFraction
	}
	return &Manager{
		store:     st,
		engine:    engine,
		kv:        kv,
		opts:      opts,
		now:       time.Now,
		randFloat: rand.Float64,
	}
}

// Subscribe registers a listener for backup lifecycle events.
func (m *Manager) Subscribe(l model.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// ObserveSaves samples successful saves and opportunistically creates an
// automatic snapshot for a fraction of them.
func (m *Manager) ObserveSaves() {
	m.engine.Subscribe(func(ev model.Event) {
		status, ok := ev.(model.SaveStatus)
		if !ok || !status.Success {
			return
		}
		if m.randFloat() >= m.opts.AutoFraction {
			return
		}
		if _, err := m.CreateAutomatic(context.Background(), "periodic"); err != nil {
			slog.Warn("opportunistic automatic backup failed", "error", err)
		}
	})
}

// CreateAutomatic snapshots the live store under the automatic kind.
func (m *Manager) CreateAutomatic(ctx context.Context, description string) (string, error) {
	return m.create(ctx, model.SnapshotAuto, description, m.store.Snapshot())
}

// CreateManual snapshots the live store on explicit user request.
func (m *Manager) CreateManual(ctx context.Context, description string) (string, error) {
	return m.create(ctx, model.SnapshotManual, description, m.store.Snapshot())
}

func (m *Manager) create(ctx context.Context, kind model.SnapshotKind, description string, data map[model.Category][]model.Record) (string, error) {
	if err := exchange.Verify(data); err != nil {
		return "", err
	}

	now := m.now()
	info := &exchange.BackupInfo{
		Type:        kind,
		Description: description,
		CreatedAt:   now,
		Timestamp:   now.UnixMilli(),
		RecordCount: exchange.ImageOf(data).Count(),
		Version:     exchange.Version,
	}
	raw, err := exchange.Encode(data, now, info)
	if err != nil {
		return "", err
	}

	key := storage.BackupKey(kind, now)
	if err := m.kv.Put(ctx, key, raw); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	m.emit(model.BackupCreated{Key: key, Kind: kind, Description: description})
	slog.Info("backup created", "key", key, "kind", kind, "records", info.RecordCount)

	if err := m.rotate(ctx, kind); err != nil {
		// The new snapshot is safe; rotation failure only delays eviction.
		slog.Warn("snapshot rotation failed", "kind", kind, "error", err)
	}
	return key, nil
}

// rotate evicts the oldest snapshots of one kind beyond the retention
// bound. Keys of a kind sort by creation time, so the prefix scan order is
// oldest first.
func (m *Manager) rotate(ctx context.Context, kind model.SnapshotKind) error {
	infos, err := m.kv.List(ctx, storage.BackupKeyPrefix(kind))
	if err != nil {
		return err
	}
	for len(infos) > m.opts.RetainPerKind {
		oldest := infos[0]
		if err := m.kv.Delete(ctx, oldest.Key); err != nil {
			return err
		}
		m.emit(model.BackupDeleted{Key: oldest.Key})
		slog.Info("backup rotated out", "key", oldest.Key)
		infos = infos[1:]
	}
	return nil
}

// List returns every snapshot, newest first. Snapshots that fail to parse
// are logged and skipped, never fatal.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	infos, err := m.kv.List(ctx, storage.BackupPrefix)
	if err != nil {
		return nil, err
	}

	snapshots := make([]Snapshot, 0, len(infos))
	for _, info := range infos {
		kind, stamp, err := storage.ParseBackupKey(info.Key)
		if err != nil {
			slog.Warn("skipping snapshot with malformed key", "key", info.Key, "error", err)
			continue
		}

		raw, err := m.kv.Get(ctx, info.Key)
		if err != nil {
			slog.Warn("skipping unreadable snapshot", "key", info.Key, "error", err)
			continue
		}
		doc, err := exchange.Decode(raw)
		if err != nil {
			slog.Warn("skipping unparseable snapshot", "key", info.Key, "error", err)
			continue
		}

		snap := Snapshot{
			Key:         info.Key,
			Kind:        kind,
			Timestamp:   stamp,
			SizeBytes:   info.Size,
			RecordCount: doc.Count(),
		}
		if doc.BackupInfo != nil {
			snap.Description = doc.BackupInfo.Description
			snap.RecordCount = doc.BackupInfo.RecordCount
		}
		snapshots = append(snapshots, snap)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

func (m *Manager) emit(ev model.Event) {
	m.mu.Lock()
	listeners := append([]model.Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}
