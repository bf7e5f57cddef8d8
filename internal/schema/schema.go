// Package schema holds the fixed per-category field definitions and the
// validation gate every record passes before it is admitted to the store.
package schema

import "github.com/choubo/choubo/internal/model"

// Kind is a field's declared scalar type.
type Kind int

const (
	// KindInt is an integral numeric field.
	KindInt Kind = iota
	// KindString is a text field.
	KindString
)

// Numeric and length bounds shared by every category.
const (
	MinYear   = 2000
	MaxYear   = 2100
	MinMonth  = 1
	MaxMonth  = 12
	MinAmount = 0
	MaxAmount = 999_999_999
	MaxNote   = 200
)

// FieldSpec declares one field of a category's record shape.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Required bool
	Min      int64
	Max      int64
	MaxLen   int
}

var commonFields = []FieldSpec{
	{Name: model.FieldYear, Kind: KindInt, Required: true, Min: MinYear, Max: MaxYear},
	{Name: model.FieldMonth, Kind: KindInt, Required: true, Min: MinMonth, Max: MaxMonth},
	{Name: model.FieldAmount, Kind: KindInt, Required: true, Min: MinAmount, Max: MaxAmount},
	{Name: model.FieldGroup, Kind: KindString},
	{Name: model.FieldNote, Kind: KindString, MaxLen: MaxNote},
}

// registry is the closed table of category shapes. Cost categories carry a
// required item label, payments a payee, deposits a manufacturer.
var registry = map[model.Category][]FieldSpec{
	model.CategorySales:          commonFields,
	model.CategoryPurchases:     commonFields,
	model.CategoryLaborCosts:    commonFields,
	model.CategoryConsumptionTax: commonFields,
	model.CategoryFixedCosts: append([]FieldSpec{
		{Name: model.FieldItem, Kind: KindString, Required: true},
	}, commonFields...),
	model.CategoryVariableCosts: append([]FieldSpec{
		{Name: model.FieldItem, Kind: KindString, Required: true},
	}, commonFields...),
	model.CategoryMonthlyPayments: append([]FieldSpec{
		{Name: model.FieldPayee, Kind: KindString, Required: true},
	}, commonFields...),
	model.CategoryManufacturerDeposits: append([]FieldSpec{
		{Name: model.FieldManufacturer, Kind: KindString, Required: true},
	}, commonFields...),
}

// FieldsFor returns the field specs of a category, or nil for an unknown one.
func FieldsFor(category model.Category) []FieldSpec {
	return registry[category]
}

// RequiredFor returns the names of a category's required fields.
func RequiredFor(category model.Category) []string {
	var names []string
	for _, spec := range registry[category] {
		if spec.Required {
			names = append(names, spec.Name)
		}
	}
	return names
}
