package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/exchange"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/storage"
)

// Load reads the latest durable image into the store, once at process
// start. A structurally damaged image is never silently lost: the raw
// bytes are preserved as an automatic pre-repair snapshot, invalid records
// are dropped best-effort, and the repaired image is written back.
func (e *Engine) Load(ctx context.Context) error {
	raw, err := e.kv.Get(ctx, storage.LiveImageKey)
	if errors.Is(err, common.ErrNotFound) {
		// First run: nothing persisted yet.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load store image: %w", err)
	}

	data, err := exchange.DecodeImage(raw)
	if err != nil {
		// The image is not even parseable. Preserve the bytes and start
		// from an empty, repaired image.
		slog.Error("store image is unparseable, preserving raw bytes before repair", "error", err)
		if backupErr := e.preRepairBackup(ctx, raw); backupErr != nil {
			return backupErr
		}
		return e.writeRepaired(ctx, emptyImage(), 0)
	}

	if verifyErr := exchange.Verify(data); verifyErr != nil {
		slog.Warn("store image failed integrity check, repairing", "error", verifyErr)
		if backupErr := e.preRepairBackup(ctx, raw); backupErr != nil {
			return backupErr
		}
		repaired, dropped := exchange.Repair(data)
		return e.writeRepaired(ctx, repaired, dropped)
	}

	if err := e.store.Replace(data); err != nil {
		return err
	}
	e.store.ClearDirty()
	return nil
}

// preRepairBackup stores the damaged image bytes under a fresh automatic
// snapshot key before any destructive repair.
func (e *Engine) preRepairBackup(ctx context.Context, raw []byte) error {
	key := storage.BackupKey(model.SnapshotAuto, time.Now())

	doc, err := wrapDamaged(raw)
	if err != nil {
		// Unparseable bytes are stored as-is; listing skips them but the
		// data survives for manual inspection.
		doc = raw
	}
	if err := e.kv.Put(ctx, key, doc); err != nil {
		return fmt.Errorf("failed to write pre-repair backup: %w", err)
	}
	slog.Info("pre-repair backup created", "key", key)
	return nil
}

// wrapDamaged turns decodable-but-invalid image bytes into a snapshot
// document so it shows up in backup listings.
func wrapDamaged(raw []byte) ([]byte, error) {
	data, err := exchange.DecodeImage(raw)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return exchange.Encode(data, now, &exchange.BackupInfo{
		Type:        model.SnapshotAuto,
		Description: "pre-repair",
		CreatedAt:   now,
		Timestamp:   now.UnixMilli(),
		RecordCount: exchange.ImageOf(data).Count(),
		Version:     exchange.Version,
	})
}

func (e *Engine) writeRepaired(ctx context.Context, data map[model.Category][]model.Record, dropped int) error {
	if err := e.store.Replace(data); err != nil {
		return err
	}
	if err := e.Save(ctx); err != nil {
		return err
	}
	slog.Info("store image repaired", "dropped_records", dropped, "kept_records", e.store.TotalCount())
	return nil
}

func emptyImage() map[model.Category][]model.Record {
	data := make(map[model.Category][]model.Record, len(model.AllCategories()))
	for _, c := range model.AllCategories() {
		data[c] = nil
	}
	return data
}
