package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/choubo/choubo/internal/model"
)

// Key namespace. The live image occupies a single fixed key; each snapshot
// gets its own key under a kind-specific prefix so kinds rotate
// independently and the whole namespace is listable with one prefix scan.
const (
	LiveImageKey = "image:live"
	BackupPrefix = "backup:"
)

const backupStampFormat = "20060102T150405.000000000"

// BackupKeyPrefix returns the key prefix of one snapshot kind.
func BackupKeyPrefix(kind model.SnapshotKind) string {
	return BackupPrefix + string(kind) + ":"
}

// BackupKey builds a snapshot key from its kind and creation time. Keys of
// one kind sort lexicographically by creation time.
func BackupKey(kind model.SnapshotKind, t time.Time) string {
	return BackupKeyPrefix(kind) + t.UTC().Format(backupStampFormat)
}

// ParseBackupKey splits a snapshot key into kind and creation time.
func ParseBackupKey(key string) (model.SnapshotKind, time.Time, error) {
	rest, ok := strings.CutPrefix(key, BackupPrefix)
	if !ok {
		return "", time.Time{}, fmt.Errorf("not a backup key: %q", key)
	}
	kindStr, stamp, ok := strings.Cut(rest, ":")
	if !ok {
		return "", time.Time{}, fmt.Errorf("malformed backup key: %q", key)
	}
	t, err := time.Parse(backupStampFormat, stamp)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed backup key %q: %w", key, err)
	}
	return model.SnapshotKind(kindStr), t, nil
}
