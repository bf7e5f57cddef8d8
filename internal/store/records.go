package store

import (
	"fmt"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/schema"
)

// Add validates candidate fields and, on success, assigns identity and
// timestamps, appends the record, and triggers an asynchronous save.
// On validation failure nothing is mutated.
func (s *Store) Add(category model.Category, fields model.Fields) (model.Record, error) {
	if result := schema.Validate(category, fields); !result.Valid {
		return model.Record{}, common.NewValidationError(string(category), result.Errors)
	}

	s.mu.Lock()
	rec := s.buildLocked(fields)
	s.records[category] = append(s.records[category], rec)
	s.index[rec.ID] = category
	s.mu.Unlock()

	s.commit()
	s.emit(model.RecordChanged{Category: category, Action: model.ActionAdd, Record: rec})
	return rec, nil
}

// Update merges partial fields onto the existing record and re-validates
// the merged result, so a partial update can never leave required fields
// effectively empty. The original record is untouched on failure.
func (s *Store) Update(category model.Category, id string, partial model.Fields) (model.Record, error) {
	s.mu.Lock()
	pos, err := s.positionLocked(category, id)
	if err != nil {
		s.mu.Unlock()
		return model.Record{}, err
	}

	current := s.records[category][pos]
	merged := current.Fields().Merge(partial)
	if result := schema.Validate(category, merged); !result.Valid {
		s.mu.Unlock()
		return model.Record{}, common.NewValidationError(string(category), result.Errors)
	}

	current.Apply(merged)
	current.UpdatedAt = s.now()
	s.records[category][pos] = current
	s.mu.Unlock()

	s.commit()
	s.emit(model.RecordChanged{Category: category, Action: model.ActionUpdate, Record: current})
	return current, nil
}

// Delete hard-removes a record. There is no tombstone.
func (s *Store) Delete(category model.Category, id string) (model.Record, error) {
	s.mu.Lock()
	pos, err := s.positionLocked(category, id)
	if err != nil {
		s.mu.Unlock()
		return model.Record{}, err
	}

	removed := s.records[category][pos]
	s.records[category] = append(s.records[category][:pos], s.records[category][pos+1:]...)
	delete(s.index, id)
	s.mu.Unlock()

	s.commit()
	s.emit(model.RecordChanged{Category: category, Action: model.ActionDelete, Record: removed})
	return removed, nil
}

// Move transfers a record to another category after re-validating it
// against the destination's schema. UpdatedAt is bumped; id is kept.
func (s *Store) Move(from, to model.Category, id string) (model.Record, error) {
	if !to.Valid() {
		return model.Record{}, fmt.Errorf("%w: %q", common.ErrBadCategory, to)
	}

	s.mu.Lock()
	pos, err := s.positionLocked(from, id)
	if err != nil {
		s.mu.Unlock()
		return model.Record{}, err
	}

	rec := s.records[from][pos]
	if result := schema.Validate(to, rec.Fields()); !result.Valid {
		s.mu.Unlock()
		return model.Record{}, common.NewValidationError(string(to), result.Errors)
	}

	rec.UpdatedAt = s.now()
	s.records[from] = append(s.records[from][:pos], s.records[from][pos+1:]...)
	s.records[to] = append(s.records[to], rec)
	s.index[id] = to
	s.mu.Unlock()

	s.commit()
	s.emit(model.RecordChanged{Category: to, Action: model.ActionMove, Record: rec})
	return rec, nil
}

// ByCategory returns a copy of a category's records in insertion order.
func (s *Store) ByCategory(category model.Category) ([]model.Record, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrBadCategory, category)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Record(nil), s.records[category]...), nil
}

// ByID returns a single record by category and id.
func (s *Store) ByID(category model.Category, id string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, err := s.positionLocked(category, id)
	if err != nil {
		return model.Record{}, err
	}
	return s.records[category][pos], nil
}

// buildLocked assembles a fresh record from validated fields. The identity
// generator's collision probability is negligible, but global uniqueness is
// still enforced here against the id index.
func (s *Store) buildLocked(fields model.Fields) model.Record {
	id := model.NewID()
	for {
		if _, taken := s.index[id]; !taken {
			break
		}
		id = model.NewID()
	}

	now := s.now()
	rec := model.Record{ID: id, CreatedAt: now, UpdatedAt: now}
	rec.Apply(fields)
	return rec
}

// positionLocked finds a record's index within its category slice.
func (s *Store) positionLocked(category model.Category, id string) (int, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("%w: %q", common.ErrBadCategory, category)
	}
	for i, rec := range s.records[category] {
		if rec.ID == id {
			return i, nil
		}
	}
	return 0, common.NotFound("record", id)
}
