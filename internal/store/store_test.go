package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/model"
)

func salesFields(amount int64) model.Fields {
	return model.Fields{
		model.FieldYear:   2024,
		model.FieldMonth:  3,
		model.FieldAmount: amount,
	}
}

func TestAddAndGetByID(t *testing.T) {
	s := New()

	rec, err := s.Add(model.CategorySales, model.Fields{
		model.FieldYear: 2024, model.FieldMonth: 3, model.FieldAmount: int64(500000),
	})
	require.NoError(t, err)

	assert.True(t, model.ValidID(rec.ID))
	assert.Equal(t, int64(500000), rec.Amount)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	got, err := s.ByID(model.CategorySales, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	recs, err := s.ByCategory(model.CategorySales)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestAddRejectsInvalidFields(t *testing.T) {
	s := New()

	tests := []struct {
		fields model.Fields
		name   string
	}{
		{name: "missing amount", fields: model.Fields{model.FieldYear: 2024, model.FieldMonth: 3}},
		{name: "year out of range", fields: model.Fields{model.FieldYear: 1999, model.FieldMonth: 3, model.FieldAmount: int64(100)}},
		{name: "month out of range", fields: model.Fields{model.FieldYear: 2024, model.FieldMonth: 0, model.FieldAmount: int64(100)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(model.CategorySales, tt.fields)

			var validationErr *common.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, 0, s.TotalCount(), "failed add must not mutate the store")
		})
	}
}

func TestAddRejectsYear1999WithYearMessage(t *testing.T) {
	s := New()
	_, err := s.Add(model.CategoryPurchases, model.Fields{
		model.FieldYear: 1999, model.FieldMonth: 3, model.FieldAmount: int64(100),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year")
	assert.Equal(t, 0, s.TotalCount())
}

func TestUpdateMergesAndRevalidates(t *testing.T) {
	s := New()
	rec, err := s.Add(model.CategorySales, salesFields(100))
	require.NoError(t, err)

	updated, err := s.Update(model.CategorySales, rec.ID, model.Fields{model.FieldAmount: int64(250)})
	require.NoError(t, err)
	assert.Equal(t, int64(250), updated.Amount)
	assert.Equal(t, rec.Year, updated.Year, "unmentioned fields survive the merge")
	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, rec.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	got, err := s.ByID(model.CategorySales, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdateInvalidMergeLeavesRecordUnchanged(t *testing.T) {
	s := New()
	rec, err := s.Add(model.CategorySales, salesFields(100))
	require.NoError(t, err)

	_, err = s.Update(model.CategorySales, rec.ID, model.Fields{model.FieldYear: 3000})

	var validationErr *common.ValidationError
	require.ErrorAs(t, err, &validationErr)

	got, getErr := s.ByID(model.CategorySales, rec.ID)
	require.NoError(t, getErr)
	assert.Equal(t, rec, got, "no partial mutation on failed update")
}

func TestUpdateUnknownIDFails(t *testing.T) {
	s := New()
	_, err := s.Update(model.CategorySales, model.NewID(), model.Fields{model.FieldAmount: int64(1)})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	s := New()
	first, err := s.Add(model.CategorySales, salesFields(100))
	require.NoError(t, err)
	second, err := s.Add(model.CategorySales, salesFields(200))
	require.NoError(t, err)

	removed, err := s.Delete(model.CategorySales, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, removed.ID)
	assert.Equal(t, 1, s.TotalCount())

	_, err = s.ByID(model.CategorySales, first.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.ByID(model.CategorySales, second.ID)
	assert.NoError(t, err)

	_, err = s.Delete(model.CategorySales, first.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMoveRevalidatesAgainstDestination(t *testing.T) {
	s := New()
	rec, err := s.Add(model.CategoryFixedCosts, model.Fields{
		model.FieldYear: 2024, model.FieldMonth: 3, model.FieldAmount: int64(80000), model.FieldItem: "保険",
	})
	require.NoError(t, err)

	// fixedCosts -> variableCosts keeps the item label
	moved, err := s.Move(model.CategoryFixedCosts, model.CategoryVariableCosts, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, moved.ID)

	_, err = s.ByID(model.CategoryFixedCosts, rec.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.ByID(model.CategoryVariableCosts, rec.ID)
	assert.NoError(t, err)

	// variableCosts -> sales would leave an unknown item field behind
	_, err = s.Move(model.CategoryVariableCosts, model.CategorySales, rec.ID)
	var validationErr *common.ValidationError
	require.ErrorAs(t, err, &validationErr)
	_, err = s.ByID(model.CategoryVariableCosts, rec.ID)
	assert.NoError(t, err, "failed move must not mutate")
}

func TestDefensiveCopies(t *testing.T) {
	s := New()
	rec, err := s.Add(model.CategorySales, salesFields(100))
	require.NoError(t, err)

	recs, err := s.ByCategory(model.CategorySales)
	require.NoError(t, err)
	recs[0].Amount = 999

	got, err := s.ByID(model.CategorySales, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Amount, "mutating a result must not affect store state")

	snap := s.Snapshot()
	snap[model.CategorySales][0].Amount = 777
	got, err = s.ByID(model.CategorySales, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Amount)
}

func TestQueriesLinearizeYearMonth(t *testing.T) {
	s := New()
	add := func(c model.Category, year, month int) {
		fields := model.Fields{model.FieldYear: year, model.FieldMonth: month, model.FieldAmount: int64(10)}
		if c == model.CategoryVariableCosts {
			fields[model.FieldItem] = "消耗品"
		}
		_, err := s.Add(c, fields)
		require.NoError(t, err)
	}

	add(model.CategorySales, 2023, 12)
	add(model.CategorySales, 2024, 1)
	add(model.CategorySales, 2024, 5)
	add(model.CategoryVariableCosts, 2024, 1)

	byMonth := s.QueryMonth(2024, 1)
	assert.Len(t, byMonth[model.CategorySales], 1)
	assert.Len(t, byMonth[model.CategoryVariableCosts], 1)
	assert.Empty(t, byMonth[model.CategoryPurchases])

	byYear := s.QueryYear(2024)
	assert.Len(t, byYear[model.CategorySales], 2)

	// cross-year range: 2023-12 through 2024-01
	byRange := s.QueryRange(2023, 12, 2024, 1)
	assert.Len(t, byRange[model.CategorySales], 2)
	assert.Len(t, byRange[model.CategoryVariableCosts], 1)
}

func TestAddBatchIsPerRecord(t *testing.T) {
	s := New()

	result := s.AddBatch(model.CategorySales, []model.Fields{
		salesFields(100),
		{model.FieldYear: 1999, model.FieldMonth: 1, model.FieldAmount: int64(5)},
		salesFields(300),
	})

	assert.Len(t, result.Added, 2)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "record 1")
	assert.Equal(t, 2, s.TotalCount())
}

func TestSyncMonthReplacesSlice(t *testing.T) {
	s := New()
	vc := func(item string, amount int64, year, month int) model.Fields {
		return model.Fields{
			model.FieldYear: year, model.FieldMonth: month,
			model.FieldAmount: amount, model.FieldItem: item,
		}
	}

	_, err := s.Add(model.CategoryVariableCosts, vc("旧A", 10, 2024, 5))
	require.NoError(t, err)
	_, err = s.Add(model.CategoryVariableCosts, vc("旧B", 20, 2024, 5))
	require.NoError(t, err)
	keep, err := s.Add(model.CategoryVariableCosts, vc("別月", 30, 2024, 6))
	require.NoError(t, err)

	added, err := s.SyncMonth(model.CategoryVariableCosts, 2024, 5, []model.Fields{
		vc("新A", 100, 2024, 5),
		vc("新B", 200, 2024, 5),
	})
	require.NoError(t, err)
	assert.Len(t, added, 2)

	slice := s.QueryMonth(2024, 5)[model.CategoryVariableCosts]
	require.Len(t, slice, 2)
	items := []string{slice[0].Item, slice[1].Item}
	assert.ElementsMatch(t, []string{"新A", "新B"}, items)

	// the other month is untouched
	_, err = s.ByID(model.CategoryVariableCosts, keep.ID)
	assert.NoError(t, err)
}

func TestSyncMonthAbortsWhollyOnInvalidCandidate(t *testing.T) {
	s := New()
	old, err := s.Add(model.CategoryVariableCosts, model.Fields{
		model.FieldYear: 2024, model.FieldMonth: 5, model.FieldAmount: int64(10), model.FieldItem: "旧",
	})
	require.NoError(t, err)

	_, err = s.SyncMonth(model.CategoryVariableCosts, 2024, 5, []model.Fields{
		{model.FieldAmount: int64(100), model.FieldItem: "新"},
		{model.FieldAmount: int64(-5), model.FieldItem: "壊"},
	})
	var validationErr *common.ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = s.ByID(model.CategoryVariableCosts, old.ID)
	assert.NoError(t, err, "failed sync must leave the old slice alone")
	assert.Equal(t, 1, s.TotalCount())
}

func TestAttachDefaultGroupIsIdempotent(t *testing.T) {
	s := New()
	_, err := s.Add(model.CategorySales, salesFields(100))
	require.NoError(t, err)
	_, err = s.Add(model.CategoryPurchases, model.Fields{
		model.FieldYear: 2024, model.FieldMonth: 4, model.FieldAmount: int64(50), model.FieldGroup: "既存",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, s.AttachDefaultGroup(), "only the record without a group is mutated")
	assert.Equal(t, 0, s.AttachDefaultGroup(), "second run mutates nothing")

	recs, err := s.ByCategory(model.CategorySales)
	require.NoError(t, err)
	assert.Equal(t, DefaultGroup, recs[0].Group)

	recs, err = s.ByCategory(model.CategoryPurchases)
	require.NoError(t, err)
	assert.Equal(t, "既存", recs[0].Group)
}

func TestReplaceRejectsDuplicateIDs(t *testing.T) {
	s := New()
	now := time.Now()
	id := model.NewID()
	rec := model.Record{ID: id, CreatedAt: now, UpdatedAt: now, Year: 2024, Month: 1, Amount: 1}

	err := s.Replace(map[model.Category][]model.Record{
		model.CategorySales:     {rec},
		model.CategoryPurchases: {rec},
	})
	assert.ErrorIs(t, err, common.ErrIntegrity)
	assert.Equal(t, 0, s.TotalCount())
}

func TestEventsAndSaverFireOnMutations(t *testing.T) {
	s := New()

	var events []model.Event
	s.Subscribe(func(ev model.Event) { events = append(events, ev) })
	saves := 0
	s.SetSaver(func() { saves++ })

	rec, err := s.Add(model.CategorySales, salesFields(100))
	require.NoError(t, err)
	_, err = s.Update(model.CategorySales, rec.ID, model.Fields{model.FieldAmount: int64(200)})
	require.NoError(t, err)
	_, err = s.Delete(model.CategorySales, rec.ID)
	require.NoError(t, err)

	require.Len(t, events, 3)
	actions := []model.Action{
		events[0].(model.RecordChanged).Action,
		events[1].(model.RecordChanged).Action,
		events[2].(model.RecordChanged).Action,
	}
	assert.Equal(t, []model.Action{model.ActionAdd, model.ActionUpdate, model.ActionDelete}, actions)
	assert.Equal(t, 3, saves, "every mutation pings the saver")

	// validation failures must stay silent
	_, err = s.Add(model.CategorySales, model.Fields{model.FieldYear: 1999})
	require.Error(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, 3, saves)
}

func TestDirtyFlagLifecycle(t *testing.T) {
	s := New()
	assert.False(t, s.Dirty())

	_, err := s.Add(model.CategorySales, salesFields(100))
	require.NoError(t, err)
	assert.True(t, s.Dirty())

	s.ClearDirty()
	assert.False(t, s.Dirty())
}

func TestErrNotFoundIsDistinguishable(t *testing.T) {
	s := New()
	_, err := s.ByID(model.CategorySales, model.NewID())
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = s.ByCategory("bogus")
	assert.True(t, errors.Is(err, common.ErrBadCategory))
}
