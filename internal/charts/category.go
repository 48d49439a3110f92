package charts

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"fintrax/internal/core"
)

var hundred = decimal.NewFromInt(100)

// ExpenseCategoryData is one slice of a category pie chart.
type ExpenseCategoryData struct {
	Category   string          `json:"category"` // display label, e.g. "Eating Out"
	Key        string          `json:"key"`      // lower-cased category, e.g. "eating-out"
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
	Count      int             `json:"count"`
	Color      string          `json:"color"`
}

// AggregateExpensesByCategory groups expense transactions by category and
// returns them by amount, largest first. Transactions without a category are
// grouped under "other". An input with no expenses yields an empty slice.
func AggregateExpensesByCategory(txs []core.Transaction) []ExpenseCategoryData {
	return aggregateByCategory(txs, core.Expense)
}

// AggregateIncomeByCategory is AggregateExpensesByCategory for income, using
// the income palette.
func AggregateIncomeByCategory(txs []core.Transaction) []ExpenseCategoryData {
	return aggregateByCategory(txs, core.Income)
}

func aggregateByCategory(txs []core.Transaction, typ core.TransactionType) []ExpenseCategoryData {
	type bucket struct {
		amount decimal.Decimal
		count  int
	}
	buckets := make(map[string]*bucket)
	var order []string // first-seen order, so equal amounts sort deterministically
	total := decimal.Zero

	for _, t := range txs {
		if t.Type != typ {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(t.Category))
		if key == "" {
			key = "other"
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		b.amount = b.amount.Add(t.Amount)
		b.count++
		total = total.Add(t.Amount)
	}

	out := make([]ExpenseCategoryData, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		out = append(out, ExpenseCategoryData{
			Category:   CategoryLabel(key),
			Key:        key,
			Amount:     b.amount,
			Percentage: percentOf(b.amount, total),
			Count:      b.count,
			Color:      CategoryColor(key, typ),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

func percentOf(part, total decimal.Decimal) float64 {
	if !total.IsPositive() {
		return 0
	}
	return part.Div(total).Mul(hundred).InexactFloat64()
}

// CategoryLabel turns "eating-out" into "Eating Out".
func CategoryLabel(category string) string {
	words := strings.Split(category, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// ProcessExpenseDataForChart resolves the period, filters and aggregates.
func ProcessExpenseDataForChart(txs []core.Transaction, period core.TimePeriod, custom *core.DateRange, now time.Time) []ExpenseCategoryData {
	r := DateRangeForPeriod(period, custom, now)
	return AggregateExpensesByCategory(FilterTransactionsByDateRange(txs, r))
}

// TopCategories keeps the n largest categories and folds the rest into a
// single "Other" entry. data must already be sorted largest first.
func TopCategories(data []ExpenseCategoryData, n int) []ExpenseCategoryData {
	if n <= 0 || len(data) <= n {
		return data
	}
	out := make([]ExpenseCategoryData, n, n+1)
	copy(out, data[:n])

	other := ExpenseCategoryData{Category: "Other", Key: "other", Color: ColorOtherBucket}
	for _, d := range data[n:] {
		other.Amount = other.Amount.Add(d.Amount)
		other.Percentage += d.Percentage
		other.Count += d.Count
	}
	if other.Amount.IsPositive() {
		out = append(out, other)
	}
	return out
}
