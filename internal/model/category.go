package model

// Category is a fixed partition of the record space. The set of categories
// is closed; there is no dynamic category creation.
type Category string

const (
	// CategorySales holds monthly sales totals.
	CategorySales Category = "sales"
	// CategoryPurchases holds monthly purchase totals.
	CategoryPurchases Category = "purchases"
	// CategoryFixedCosts holds itemized fixed costs (rent, insurance, ...).
	CategoryFixedCosts Category = "fixedCosts"
	// CategoryVariableCosts holds itemized variable costs.
	CategoryVariableCosts Category = "variableCosts"
	// CategoryLaborCosts holds monthly labor cost totals.
	CategoryLaborCosts Category = "laborCosts"
	// CategoryConsumptionTax holds consumption tax set-asides.
	CategoryConsumptionTax Category = "consumptionTax"
	// CategoryMonthlyPayments holds loan and installment payments.
	CategoryMonthlyPayments Category = "monthlyPayments"
	// CategoryManufacturerDeposits holds deposits held by manufacturers.
	CategoryManufacturerDeposits Category = "manufacturerDeposits"
)

// AllCategories returns every category in stable display order.
func AllCategories() []Category {
	return []Category{
		CategorySales,
		CategoryPurchases,
		CategoryFixedCosts,
		CategoryVariableCosts,
		CategoryLaborCosts,
		CategoryConsumptionTax,
		CategoryMonthlyPayments,
		CategoryManufacturerDeposits,
	}
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySales, CategoryPurchases, CategoryFixedCosts, CategoryVariableCosts,
		CategoryLaborCosts, CategoryConsumptionTax, CategoryMonthlyPayments, CategoryManufacturerDeposits:
		return true
	}
	return false
}

// DisplayName returns the Japanese label used in delimited-text exports.
func (c Category) DisplayName() string {
	switch c {
	case CategorySales:
		return "売上"
	case CategoryPurchases:
		return "仕入れ"
	case CategoryFixedCosts:
		return "固定費"
	case CategoryVariableCosts:
		return "変動費"
	case CategoryLaborCosts:
		return "人件費"
	case CategoryConsumptionTax:
		return "消費税"
	case CategoryMonthlyPayments:
		return "毎月の支払い"
	case CategoryManufacturerDeposits:
		return "メーカー預け金"
	default:
		return string(c)
	}
}
