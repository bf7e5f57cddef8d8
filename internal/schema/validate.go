package schema

import (
	"fmt"

	"github.com/choubo/choubo/internal/model"
)

// Result is the outcome of validating a candidate record. Every violation
// is collected so a caller can show all of them at once.
type Result struct {
	Errors []string
	Valid  bool
}

// Validate checks candidate fields against a category's registered shape.
// It never panics and never short-circuits. Check order: category known,
// required fields present, declared types, numeric ranges, note length.
func Validate(category model.Category, fields model.Fields) Result {
	specs, ok := registry[category]
	if !ok {
		return Result{Errors: []string{fmt.Sprintf("unknown category %q", category)}}
	}

	var errs []string

	known := make(map[string]FieldSpec, len(specs))
	for _, spec := range specs {
		known[spec.Name] = spec
	}

	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		v, present := fields[spec.Name]
		if !present {
			errs = append(errs, fmt.Sprintf("%s is required", spec.Name))
			continue
		}
		switch spec.Kind {
		case KindInt:
			if _, ok := model.AsInt(v); !ok {
				errs = append(errs, fmt.Sprintf("%s must be a number", spec.Name))
			}
		case KindString:
			if s, ok := model.AsString(v); !ok || s == "" {
				errs = append(errs, fmt.Sprintf("%s must be a non-empty string", spec.Name))
			}
		}
	}

	for name, v := range fields {
		spec, ok := known[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("unknown field %q for category %s", name, category))
			continue
		}
		if spec.Required {
			continue // already checked above
		}
		switch spec.Kind {
		case KindInt:
			if _, ok := model.AsInt(v); !ok {
				errs = append(errs, fmt.Sprintf("%s must be a number", name))
			}
		case KindString:
			if _, ok := model.AsString(v); !ok {
				errs = append(errs, fmt.Sprintf("%s must be a string", name))
			}
		}
	}

	errs = append(errs, rangeErrors(fields)...)

	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Valid: true}
}

func rangeErrors(fields model.Fields) []string {
	var errs []string

	if v, present := fields[model.FieldYear]; present {
		if n, ok := model.AsInt(v); ok && (n < MinYear || n > MaxYear) {
			errs = append(errs, fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear))
		}
	}
	if v, present := fields[model.FieldMonth]; present {
		if n, ok := model.AsInt(v); ok && (n < MinMonth || n > MaxMonth) {
			errs = append(errs, fmt.Sprintf("month must be between %d and %d", MinMonth, MaxMonth))
		}
	}
	if v, present := fields[model.FieldAmount]; present {
		if n, ok := model.AsInt(v); ok && (n < MinAmount || n > MaxAmount) {
			errs = append(errs, fmt.Sprintf("amount must be between %d and %d", MinAmount, MaxAmount))
		}
	}
	if v, present := fields[model.FieldNote]; present {
		if s, ok := model.AsString(v); ok && len([]rune(s)) > MaxNote {
			errs = append(errs, fmt.Sprintf("note must be at most %d characters", MaxNote))
		}
	}

	return errs
}

// ValidateRecord re-checks a fully built record, used by integrity scans
// over loaded or imported images.
func ValidateRecord(category model.Category, rec model.Record) Result {
	if !model.ValidID(rec.ID) {
		return Result{Errors: []string{fmt.Sprintf("record id %q is not a valid identifier", rec.ID)}}
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.Before(rec.CreatedAt) {
		return Result{Errors: []string{fmt.Sprintf("record %s has inconsistent timestamps", rec.ID)}}
	}
	return Validate(category, rec.Fields())
}
