package model

import "time"

// Action describes what happened to a record.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionMove   Action = "move"
)

// SnapshotKind tags how a snapshot came to exist.
type SnapshotKind string

const (
	SnapshotAuto     SnapshotKind = "auto"
	SnapshotManual   SnapshotKind = "manual"
	SnapshotImported SnapshotKind = "imported"
)

// Event is a typed notification raised by the core for UI/status
// collaborators. The interface is sealed; only the types below satisfy it.
type Event interface {
	event()
}

// RecordChanged is raised after every committed record mutation.
type RecordChanged struct {
	Category Category
	Action   Action
	Record   Record
}

// SaveStatus is raised after every durable-save attempt sequence.
type SaveStatus struct {
	Timestamp   time.Time
	Err         error
	RecordCount int
	Success     bool
}

// ManualRetryRequired is raised when automatic save retries are exhausted
// and the caller should offer a manual retry.
type ManualRetryRequired struct {
	Err        error
	RetryCount int
}

// BackupCreated is raised when a snapshot of any kind is written.
type BackupCreated struct {
	Key         string
	Kind        SnapshotKind
	Description string
}

// BackupDeleted is raised when a snapshot is removed, by rotation or by hand.
type BackupDeleted struct {
	Key string
}

// BackupRestored is raised after the live store has been replaced from a
// snapshot.
type BackupRestored struct {
	Key         string
	RecordCount int
}

func (RecordChanged) event()       {}
func (SaveStatus) event()          {}
func (ManualRetryRequired) event() {}
func (BackupCreated) event()       {}
func (BackupDeleted) event()       {}
func (BackupRestored) event()      {}

// Listener receives core events. Listeners run synchronously on the
// mutating goroutine and must not call back into the store.
type Listener func(Event)
