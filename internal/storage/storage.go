// Package storage provides the durable key/blob backend behind the
// persistence engine and the backup manager. The live image occupies one
// key; snapshots occupy a kind-prefixed key namespace listable by prefix.
package storage

import (
	"context"
	"time"
)

// KeyInfo describes one stored blob.
type KeyInfo struct {
	UpdatedAt time.Time
	Key       string
	Size      int64
}

// KV is the durable storage surface consumed by the persistence engine
// and the backup manager.
type KV interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]KeyInfo, error)
	Close() error
}
