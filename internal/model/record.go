package model

import (
	"math"
	"time"
)

// Field names shared by the schema registry, the validator, and the
// persisted image format. "category" inside a record is the cost item
// label, distinct from the Category partition the record lives in.
const (
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldAmount       = "amount"
	FieldItem         = "category"
	FieldPayee        = "payee"
	FieldManufacturer = "manufacturer"
	FieldGroup        = "group"
	FieldNote         = "note"
)

// Record is a single financial entry. ID and CreatedAt are assigned once at
// creation and never change; UpdatedAt is bumped on every mutation.
type Record struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Amount       int64     `json:"amount"`
	Item         string    `json:"category,omitempty"`
	Payee        string    `json:"payee,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Group        string    `json:"group,omitempty"`
	Note         string    `json:"note,omitempty"`
}

// Fields is the untyped candidate input for add and update operations.
// It passes the Validator before a Record is ever built from it.
type Fields map[string]any

// AsInt coerces a numeric field value to int64. JSON decoding hands us
// float64; CLI flags hand us int. NaN and fractional values are rejected.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// AsString coerces a string field value.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Fields flattens the record's mutable fields for merge-and-revalidate
// update flows. Identity and timestamps are not fields.
func (r Record) Fields() Fields {
	f := Fields{
		FieldYear:   r.Year,
		FieldMonth:  r.Month,
		FieldAmount: r.Amount,
	}
	if r.Item != "" {
		f[FieldItem] = r.Item
	}
	if r.Payee != "" {
		f[FieldPayee] = r.Payee
	}
	if r.Manufacturer != "" {
		f[FieldManufacturer] = r.Manufacturer
	}
	if r.Group != "" {
		f[FieldGroup] = r.Group
	}
	if r.Note != "" {
		f[FieldNote] = r.Note
	}
	return f
}

// Merge returns a copy of f overlaid with every entry of partial.
func (f Fields) Merge(partial Fields) Fields {
	merged := make(Fields, len(f)+len(partial))
	for k, v := range f {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// Apply copies validated field values onto the record. Callers must have
// run the Validator first; unknown keys and wrong types are ignored here.
func (r *Record) Apply(f Fields) {
	if v, ok := AsInt(f[FieldYear]); ok {
		r.Year = int(v)
	}
	if v, ok := AsInt(f[FieldMonth]); ok {
		r.Month = int(v)
	}
	if v, ok := AsInt(f[FieldAmount]); ok {
		r.Amount = v
	}
	if v, ok := AsString(f[FieldItem]); ok {
		r.Item = v
	}
	if v, ok := AsString(f[FieldPayee]); ok {
		r.Payee = v
	}
	if v, ok := AsString(f[FieldManufacturer]); ok {
		r.Manufacturer = v
	}
	if v, ok := AsString(f[FieldGroup]); ok {
		r.Group = v
	}
	if v, ok := AsString(f[FieldNote]); ok {
		r.Note = v
	}
}

// SpecialField returns whichever of item/payee/manufacturer the record
// carries, for flattened exports.
func (r Record) SpecialField() string {
	switch {
	case r.Item != "":
		return r.Item
	case r.Payee != "":
		return r.Payee
	case r.Manufacturer != "":
		return r.Manufacturer
	}
	return ""
}
