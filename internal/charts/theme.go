package charts

import (
	"strings"

	"fintrax/internal/core"
)

// Chart colors, Tailwind 400 shades.
const (
	ColorIncome      = "#4ade80"
	ColorExpense     = "#f87171"
	ColorOtherBucket = "#64748b"
	ColorFallback    = "#94a3b8"
)

var ExpenseCategoryColors = map[string]string{
	"food":          "#f87171",
	"transport":     "#fb923c",
	"bills":         "#facc15",
	"entertainment": "#c084fc",
	"shopping":      "#f472b6",
	"other":         ColorFallback,
}

var IncomeCategoryColors = map[string]string{
	"salary":     "#4ade80",
	"freelance":  "#2dd4bf",
	"investment": "#38bdf8",
	"other":      ColorFallback,
}

// CategoryColor looks up a category in the palette for the transaction type,
// falling back to the palette's "other" color.
func CategoryColor(category string, t core.TransactionType) string {
	palette := ExpenseCategoryColors
	if t == core.Income {
		palette = IncomeCategoryColors
	}
	if c, ok := palette[strings.ToLower(category)]; ok {
		return c
	}
	return palette["other"]
}

// ValueColor is green for non-negative values and red otherwise.
func ValueColor(v float64) string {
	if v >= 0 {
		return ColorIncome
	}
	return ColorExpense
}
