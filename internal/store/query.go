package store

import (
	"fmt"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/schema"
)

// DefaultGroup is the grouping key assigned to legacy records by the
// one-shot migration.
const DefaultGroup = "その他"

// linearize orders (year, month) pairs so cross-year ranges compare
// correctly: 2024-12 < 2025-01.
func linearize(year, month int) int {
	return year*100 + month
}

// QueryMonth returns every category's records for one (year, month).
func (s *Store) QueryMonth(year, month int) map[model.Category][]model.Record {
	key := linearize(year, month)
	return s.filter(func(r model.Record) bool {
		return linearize(r.Year, r.Month) == key
	})
}

// QueryYear returns every category's records for one year.
func (s *Store) QueryYear(year int) map[model.Category][]model.Record {
	return s.filter(func(r model.Record) bool {
		return r.Year == year
	})
}

// QueryRange returns every category's records within an inclusive
// (year, month) range.
func (s *Store) QueryRange(startYear, startMonth, endYear, endMonth int) map[model.Category][]model.Record {
	lo, hi := linearize(startYear, startMonth), linearize(endYear, endMonth)
	return s.filter(func(r model.Record) bool {
		k := linearize(r.Year, r.Month)
		return k >= lo && k <= hi
	})
}

func (s *Store) filter(keep func(model.Record) bool) map[model.Category][]model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[model.Category][]model.Record, len(s.records))
	for _, c := range model.AllCategories() {
		var matched []model.Record
		for _, rec := range s.records[c] {
			if keep(rec) {
				matched = append(matched, rec)
			}
		}
		out[c] = matched
	}
	return out
}

// BatchResult reports the outcome of a bulk insert. Errors are indexed by
// the candidate's position in the input.
type BatchResult struct {
	Added  []model.Record
	Errors []string
}

// AddBatch validates and inserts each candidate independently; one invalid
// candidate does not abort the batch.
func (s *Store) AddBatch(category model.Category, candidates []model.Fields) BatchResult {
	var result BatchResult
	for i, fields := range candidates {
		rec, err := s.Add(category, fields)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		result.Added = append(result.Added, rec)
	}
	return result
}

// SyncMonth replaces the whole record set of one (category, year, month)
// slice, for whole-month re-entry workflows. Every candidate is validated
// up front; if any fails, nothing changes. The month fields of each
// candidate are forced to the target slice.
func (s *Store) SyncMonth(category model.Category, year, month int, candidates []model.Fields) ([]model.Record, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrBadCategory, category)
	}

	prepared := make([]model.Fields, len(candidates))
	var errs []string
	for i, fields := range candidates {
		f := fields.Merge(model.Fields{model.FieldYear: year, model.FieldMonth: month})
		if result := schema.Validate(category, f); !result.Valid {
			for _, msg := range result.Errors {
				errs = append(errs, fmt.Sprintf("record %d: %s", i, msg))
			}
		}
		prepared[i] = f
	}
	if len(errs) > 0 {
		return nil, common.NewValidationError(string(category), errs)
	}

	key := linearize(year, month)

	s.mu.Lock()
	var kept, removed []model.Record
	for _, rec := range s.records[category] {
		if linearize(rec.Year, rec.Month) == key {
			removed = append(removed, rec)
			delete(s.index, rec.ID)
			continue
		}
		kept = append(kept, rec)
	}

	added := make([]model.Record, 0, len(prepared))
	for _, fields := range prepared {
		rec := s.buildLocked(fields)
		kept = append(kept, rec)
		s.index[rec.ID] = category
		added = append(added, rec)
	}
	s.records[category] = kept
	s.mu.Unlock()

	s.commit()
	for _, rec := range removed {
		s.emit(model.RecordChanged{Category: category, Action: model.ActionDelete, Record: rec})
	}
	for _, rec := range added {
		s.emit(model.RecordChanged{Category: category, Action: model.ActionAdd, Record: rec})
	}
	return added, nil
}

// AttachDefaultGroup assigns the default grouping key to every record that
// predates the group attribute. Returns the number of records mutated;
// a second run mutates nothing. A save is triggered only when it mutated
// anything.
func (s *Store) AttachDefaultGroup() int {
	s.mu.Lock()
	mutated := 0
	for c, recs := range s.records {
		for i, rec := range recs {
			if rec.Group != "" {
				continue
			}
			rec.Group = DefaultGroup
			rec.UpdatedAt = s.now()
			s.records[c][i] = rec
			mutated++
		}
	}
	s.mu.Unlock()

	if mutated > 0 {
		s.commit()
	}
	return mutated
}
