package backup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/exchange"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/storage"
)

// Restore replaces the live store from a snapshot. The snapshot is
// integrity-checked first, and the current live state is captured as an
// automatic pre-restore snapshot before anything changes, so every restore
// is reversible.
func (m *Manager) Restore(ctx context.Context, key string) error {
	raw, err := m.kv.Get(ctx, key)
	if err != nil {
		return err
	}

	doc, err := exchange.Decode(raw)
	if err != nil {
		return err
	}
	data := doc.ToMap()
	if err := exchange.Verify(data); err != nil {
		return err
	}

	if _, err := m.CreateAutomatic(ctx, "pre-restore"); err != nil {
		return fmt.Errorf("failed to create pre-restore backup: %w", err)
	}

	if err := m.store.Replace(data); err != nil {
		return err
	}
	if err := m.engine.Save(ctx); err != nil {
		return err
	}

	count := m.store.TotalCount()
	m.emit(model.BackupRestored{Key: key, RecordCount: count})
	slog.Info("backup restored", "key", key, "records", count)
	return nil
}

// Delete hard-removes a snapshot.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, storage.BackupPrefix) {
		return common.NotFound("snapshot", key)
	}
	if err := m.kv.Delete(ctx, key); err != nil {
		return err
	}
	m.emit(model.BackupDeleted{Key: key})
	slog.Info("backup deleted", "key", key)
	return nil
}

// ExportPortable renders a snapshot, or the live store when key is empty,
// as a portable export file.
func (m *Manager) ExportPortable(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return exchange.Encode(m.store.Snapshot(), m.now(), nil)
	}
	raw, err := m.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	// Snapshot blobs already are portable documents.
	if _, err := exchange.Decode(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ImportPortable validates a portable file and records it as an
// imported-kind snapshot. The live store is never touched; applying the
// import requires an explicit Restore of the returned key. The current
// live state is snapshotted first, as before any risky operation.
func (m *Manager) ImportPortable(ctx context.Context, raw []byte) (string, error) {
	doc, err := exchange.Decode(raw)
	if err != nil {
		return "", err
	}
	data := doc.ToMap()
	if err := exchange.Verify(data); err != nil {
		return "", err
	}

	if _, err := m.CreateAutomatic(ctx, "pre-import"); err != nil {
		return "", fmt.Errorf("failed to create pre-import backup: %w", err)
	}

	description := "imported file"
	if doc.BackupInfo != nil && doc.BackupInfo.Description != "" {
		description = doc.BackupInfo.Description
	}
	return m.create(ctx, model.SnapshotImported, description, data)
}
