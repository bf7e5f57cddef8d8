// Package persist owns the durable save and load paths of the record
// store: serialization, the integrity gate, bounded retry with linear
// backoff, and best-effort repair of damaged images.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/exchange"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/storage"
	"github.com/choubo/choubo/internal/store"
)

// DefaultSizeWarnBytes is the soft image-size threshold. Exceeding it logs
// a warning but never blocks the save.
const DefaultSizeWarnBytes = 4 << 20

// Options configures the engine.
type Options struct {
	Retry         common.RetryOptions
	SizeWarnBytes int64
}

// Engine serializes the record store to the durable backend. Saves
// requested by store mutations are fire-and-forget: a single worker
// goroutine coalesces triggers and runs each save to its retry bound,
// preserving call order.
type Engine struct {
	store     *store.Store
	kv        storage.KV
	trigger   chan struct{}
	stop      chan struct{}
	done      chan struct{}
	listeners []model.Listener
	opts      Options
	failed    int
	saveMu    sync.Mutex
	mu        sync.Mutex
}

// New creates an engine and wires it as the store's saver.
func New(st *store.Store, kv storage.KV, opts Options) *Engine {
	if opts.SizeWarnBytes <= 0 {
		opts.SizeWarnBytes = DefaultSizeWarnBytes
	}
	e := &Engine{
		store:   st,
		kv:      kv,
		opts:    opts,
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	st.SetSaver(e.RequestSave)
	return e
}

// Subscribe registers a listener for save-status and manual-retry events.
func (e *Engine) Subscribe(l model.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Start launches the save worker.
func (e *Engine) Start() {
	go func() {
		defer close(e.done)
		for {
			select {
			case <-e.stop:
				return
			case <-e.trigger:
				if err := e.Save(context.Background()); err != nil {
					slog.Error("asynchronous save failed", "error", err)
				}
			}
		}
	}()
}

// Close flushes a pending dirty state with one final synchronous save and
// stops the worker.
func (e *Engine) Close() error {
	close(e.stop)
	<-e.done

	if e.store.Dirty() {
		return e.Save(context.Background())
	}
	return nil
}

// RequestSave asks for an asynchronous save. It never blocks; multiple
// requests before the worker wakes coalesce into one save.
func (e *Engine) RequestSave() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Save serializes and durably writes the current store image. A corrupt
// in-memory state is never persisted. Write failures are retried up to the
// bound with linear backoff; exhaustion raises a manual-retry signal
// instead of an error to the mutation path.
func (e *Engine) Save(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	snap := e.store.Snapshot()
	count := 0
	for _, recs := range snap {
		count += len(recs)
	}

	if err := exchange.Verify(snap); err != nil {
		e.emit(model.SaveStatus{Success: false, Timestamp: time.Now(), Err: err, RecordCount: count})
		return &common.RetryableError{Err: err, Retryable: false}
	}

	raw, err := exchange.EncodeImage(snap)
	if err != nil {
		return err
	}

	if int64(len(raw)) > e.opts.SizeWarnBytes {
		slog.Warn("store image exceeds size threshold",
			"size_bytes", len(raw),
			"threshold_bytes", e.opts.SizeWarnBytes)
	}

	err = common.WithRetry(ctx, func() error {
		return e.kv.Put(ctx, storage.LiveImageKey, raw)
	}, e.opts.Retry)

	now := time.Now()
	if err != nil {
		e.mu.Lock()
		e.failed++
		retries := e.failed * maxAttempts(e.opts.Retry)
		e.mu.Unlock()

		e.emit(model.SaveStatus{Success: false, Timestamp: now, Err: err, RecordCount: count})
		e.emit(model.ManualRetryRequired{Err: err, RetryCount: retries})
		slog.Error("durable save failed, manual retry required", "error", err, "retries", retries)
		return nil
	}

	e.mu.Lock()
	e.failed = 0
	e.mu.Unlock()
	e.store.ClearDirty()
	e.emit(model.SaveStatus{Success: true, Timestamp: now, RecordCount: count})
	return nil
}

// Retry runs a synchronous save for the manual-retry path. Unlike Save it
// reports write exhaustion as an error, since the caller asked explicitly.
func (e *Engine) Retry(ctx context.Context) error {
	if err := e.Save(ctx); err != nil {
		return err
	}
	if e.store.Dirty() {
		return fmt.Errorf("manual retry did not reach durable storage")
	}
	return nil
}

func (e *Engine) emit(ev model.Event) {
	e.mu.Lock()
	listeners := append([]model.Listener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

func maxAttempts(opts common.RetryOptions) int {
	if opts.MaxAttempts <= 0 {
		return 3
	}
	return opts.MaxAttempts
}
