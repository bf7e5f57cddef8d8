// Package store implements the in-memory record store: the single mutation
// path for all financial entries, guarded by the schema validation gate.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/model"
)

// Store holds every record, partitioned by category. All access is
// serialized by a single-writer mutex; every read path returns defensive
// copies so callers can never mutate store state through a result.
type Store struct {
	now       func() time.Time
	records   map[model.Category][]model.Record
	index     map[string]model.Category
	saver     func()
	listeners []model.Listener
	mu        sync.RWMutex
	dirty     bool
}

// New creates an empty store with every category initialized.
func New() *Store {
	s := &Store{
		now:     time.Now,
		records: make(map[model.Category][]model.Record, len(model.AllCategories())),
		index:   make(map[string]model.Category),
	}
	for _, c := range model.AllCategories() {
		s.records[c] = nil
	}
	return s
}

// Subscribe registers a listener for store events. Listeners run
// synchronously after the mutation commits and must not call back in.
func (s *Store) Subscribe(l model.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// SetSaver installs the asynchronous save trigger invoked after every
// committed mutation. The trigger must not block.
func (s *Store) SetSaver(saver func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saver = saver
}

// SetClock overrides the timestamp source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Dirty reports whether a mutation has happened since the last ClearDirty.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// ClearDirty is called by the persistence engine after a successful save.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// Counts returns the record count per category.
func (s *Store) Counts() map[model.Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[model.Category]int, len(s.records))
	for c, recs := range s.records {
		counts[c] = len(recs)
	}
	return counts
}

// TotalCount returns the record count across all categories.
func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, recs := range s.records {
		total += len(recs)
	}
	return total
}

// Snapshot returns a deep copy of the whole store, keyed by category.
func (s *Store) Snapshot() map[model.Category][]model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[model.Category][]model.Record, len(s.records))
	for c, recs := range s.records {
		snap[c] = append([]model.Record(nil), recs...)
	}
	return snap
}

// Replace swaps the store's entire contents, used by load and restore
// paths. The replacement is integrity-checked first: every category must
// be known and every id globally unique. On error nothing changes.
func (s *Store) Replace(data map[model.Category][]model.Record) error {
	index, err := buildIndex(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make(map[model.Category][]model.Record, len(model.AllCategories()))
	for _, c := range model.AllCategories() {
		records[c] = append([]model.Record(nil), data[c]...)
	}
	s.records = records
	s.index = index
	s.dirty = true
	return nil
}

// buildIndex validates category names and global id uniqueness.
func buildIndex(data map[model.Category][]model.Record) (map[string]model.Category, error) {
	index := make(map[string]model.Category)
	for c, recs := range data {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", common.ErrBadCategory, c)
		}
		for _, rec := range recs {
			if _, dup := index[rec.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate id %s", common.ErrIntegrity, rec.ID)
			}
			index[rec.ID] = c
		}
	}
	return index, nil
}

// emit delivers an event to every listener. Called outside the lock.
func (s *Store) emit(ev model.Event) {
	s.mu.RLock()
	listeners := append([]model.Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}

// commit marks the store dirty and pings the async saver, outside the lock.
func (s *Store) commit() {
	s.mu.Lock()
	s.dirty = true
	saver := s.saver
	s.mu.Unlock()
	if saver != nil {
		saver()
	}
}
