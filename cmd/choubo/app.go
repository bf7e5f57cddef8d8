package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/choubo/choubo/internal/backup"
	"github.com/choubo/choubo/internal/cli"
	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/config"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/persist"
	"github.com/choubo/choubo/internal/storage"
	"github.com/choubo/choubo/internal/store"
)

// app wires the core together for one CLI invocation: open the backend,
// load the live image, start the save worker.
type app struct {
	cfg     *config.Config
	kv      storage.KV
	store   *store.Store
	engine  *persist.Engine
	backups *backup.Manager
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := common.SetupLogger(parseLevel(cfg.LogLevel), cfg.LogFormat); err != nil {
		return nil, err
	}

	kv, err := storage.NewSQLiteKV(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	st := store.New()
	engine := persist.New(st, kv, persist.Options{
		Retry: common.RetryOptions{
			MaxAttempts: cfg.SaveRetryAttempts,
			Unit:        cfg.SaveRetryUnit,
		},
	})
	if err := engine.Load(ctx); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	engine.Start()

	engine.Subscribe(func(ev model.Event) {
		if retry, ok := ev.(model.ManualRetryRequired); ok {
			fmt.Fprintln(os.Stderr, cli.FormatWarning(
				fmt.Sprintf("save failed after %d retries (%v); run 'choubo save' to retry", retry.RetryCount, retry.Err)))
		}
	})

	backups := backup.NewManager(st, engine, kv, backup.Options{
		RetainPerKind: cfg.BackupRetain,
		AutoFraction:  cfg.BackupFraction,
	})
	backups.ObserveSaves()

	return &app{cfg: cfg, kv: kv, store: st, engine: engine, backups: backups}, nil
}

// close flushes pending saves and releases the backend.
func (a *app) close() {
	if err := a.engine.Close(); err != nil {
		slog.Error("failed to flush pending save", "error", err)
	}
	if err := a.kv.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseCategory maps a CLI argument onto one of the fixed categories.
func parseCategory(arg string) (model.Category, error) {
	c := model.Category(arg)
	if !c.Valid() {
		names := make([]string, 0, len(model.AllCategories()))
		for _, known := range model.AllCategories() {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("unknown category %q (one of: %s)", arg, strings.Join(names, ", "))
	}
	return c, nil
}
