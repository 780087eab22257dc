package models

// The API speaks camelCase while the requests table speaks snake_case. The
// sparse update path receives raw camelCase field maps, so the mapping has to
// exist as data rather than struct tags. It must stay a bijection: translating
// a record external→internal→external reproduces it exactly.

var externalToColumn = map[string]string{
	"id":             "id",
	"item":           "item",
	"quantity":       "quantity",
	"status":         "status",
	"requestedBy":    "requested_by",
	"requestedAt":    "requested_at",
	"processedBy":    "processed_by",
	"processedAt":    "processed_at",
	"refilledBy":     "refilled_by",
	"refilledAt":     "refilled_at",
	"noStockBy":      "no_stock_by",
	"noStockAt":      "no_stock_at",
	"refillerInput":  "refiller_input",
	"noStockInput":   "no_stock_input",
	"processorInput": "processor_input",
}

var columnToExternal = func() map[string]string {
	m := make(map[string]string, len(externalToColumn))
	for ext, col := range externalToColumn {
		m[col] = ext
	}
	return m
}()

// ColumnFor maps an external (camelCase) field name to its storage column.
func ColumnFor(external string) (string, bool) {
	col, ok := externalToColumn[external]
	return col, ok
}

// ExternalFor maps a storage column to its external (camelCase) field name.
func ExternalFor(column string) (string, bool) {
	ext, ok := columnToExternal[column]
	return ext, ok
}

// ExternalFields returns all known external field names.
func ExternalFields() []string {
	fields := make([]string, 0, len(externalToColumn))
	for ext := range externalToColumn {
		fields = append(fields, ext)
	}
	return fields
}
