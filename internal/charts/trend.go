package charts

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrax/internal/core"
)

type IncomeTrendData struct {
	Period     string          `json:"period"` // "Jan 2024"
	Date       time.Time       `json:"date"`   // first instant of the month
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	NetSavings decimal.Decimal `json:"net_savings"`
}

// AggregateTransactionsByMonth sums income and expense per calendar month and
// returns the months in ascending order. Months without transactions are
// absent; see ProcessIncomeTrendData for a gap-filled series.
func AggregateTransactionsByMonth(txs []core.Transaction) []IncomeTrendData {
	byMonth := make(map[monthKey]*IncomeTrendData)
	for _, t := range txs {
		k := monthOf(t.Date.Time)
		d, ok := byMonth[k]
		if !ok {
			d = &IncomeTrendData{Period: k.label(), Date: k.start(t.Date.Location())}
			byMonth[k] = d
		}
		switch t.Type {
		case core.Income:
			d.Income = d.Income.Add(t.Amount)
		case core.Expense:
			d.Expense = d.Expense.Add(t.Amount)
		}
	}

	out := make([]IncomeTrendData, 0, len(byMonth))
	for _, d := range byMonth {
		d.NetSavings = d.Income.Sub(d.Expense)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return monthOf(out[j].Date).after(monthOf(out[i].Date))
	})
	return out
}

// ProcessIncomeTrendData returns one entry per calendar month of the resolved
// range, zero-filled where nothing happened. A range spanning N months yields
// exactly N entries.
func ProcessIncomeTrendData(txs []core.Transaction, period core.TimePeriod, custom *core.DateRange, now time.Time) []IncomeTrendData {
	r := DateRangeForPeriod(period, custom, now)
	aggregated := AggregateTransactionsByMonth(FilterTransactionsByDateRange(txs, r))

	found := make(map[monthKey]IncomeTrendData, len(aggregated))
	for _, d := range aggregated {
		found[monthOf(d.Date)] = d
	}

	months := monthsBetween(r.StartDate.Time, r.EndDate.Time)
	out := make([]IncomeTrendData, 0, len(months))
	for _, k := range months {
		d, ok := found[k]
		if !ok {
			d = IncomeTrendData{Period: k.label()}
		}
		d.Date = k.start(now.Location())
		out = append(out, d)
	}
	return out
}

// PeriodTotals sums a transaction list.
type PeriodTotals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

func CalculatePeriodTotals(txs []core.Transaction) PeriodTotals {
	var p PeriodTotals
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			p.Income = p.Income.Add(t.Amount)
		case core.Expense:
			p.Expense = p.Expense.Add(t.Amount)
		}
	}
	p.Net = p.Income.Sub(p.Expense)
	return p
}

// BalancePoint is the running balance right after one transaction.
type BalancePoint struct {
	Date    core.Date       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceTrend replays transactions in date order on top of initial.
func BalanceTrend(txs []core.Transaction, initial decimal.Decimal) []BalancePoint {
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})

	out := make([]BalancePoint, 0, len(sorted))
	running := initial
	for _, t := range sorted {
		switch t.Type {
		case core.Income:
			running = running.Add(t.Amount)
		case core.Expense:
			running = running.Sub(t.Amount)
		}
		out = append(out, BalancePoint{Date: t.Date, Balance: running})
	}
	return out
}
