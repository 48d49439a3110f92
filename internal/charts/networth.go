package charts

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrax/internal/core"
)

type NetWorthData struct {
	Period      string          `json:"period"`
	Date        time.Time       `json:"date"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	NetWorth    decimal.Decimal `json:"net_worth"`
}

// NetWorthPoint is a reconstructed balance sheet at one date.
type NetWorthPoint struct {
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	NetWorth    decimal.Decimal `json:"net_worth"`
}

// CalculateNetWorthAtDate walks backward from the current balance: every
// transaction dated after target and no later than now is undone, income
// subtracted and expenses added back. Assets never go below zero.
//
// Liabilities are taken as constant over time; no history of them exists.
func CalculateNetWorthAtDate(balance, savings, liabilities decimal.Decimal, txs []core.Transaction, target, now time.Time) NetWorthPoint {
	targetDay, today := core.CivilDay(target), core.CivilDay(now)

	historical := balance
	for _, t := range txs {
		day := core.CivilDay(t.Date.Time)
		if day <= targetDay || day > today {
			continue
		}
		switch t.Type {
		case core.Income:
			historical = historical.Sub(t.Amount)
		case core.Expense:
			historical = historical.Add(t.Amount)
		}
	}

	assets := decimal.Max(decimal.Zero, historical.Add(savings))
	return NetWorthPoint{
		Assets:      assets,
		Liabilities: liabilities,
		NetWorth:    assets.Sub(liabilities),
	}
}

// ProcessNetWorthData produces one point per calendar month of the resolved
// range, each taken at the month's last day. Months after the current one
// carry the current values. When the range ends before the current month a
// final point with the exact current values is appended.
func ProcessNetWorthData(balance, savings, liabilities decimal.Decimal, txs []core.Transaction, period core.TimePeriod, custom *core.DateRange, now time.Time) []NetWorthData {
	r := DateRangeForPeriod(period, custom, now)
	loc := now.Location()
	current := monthOf(now)

	months := monthsBetween(r.StartDate.Time, r.EndDate.Time)
	out := make([]NetWorthData, 0, len(months)+1)
	for _, k := range months {
		p := CalculateNetWorthAtDate(balance, savings, liabilities, txs, core.EndOfMonth(k.start(loc)), now)
		out = append(out, newNetWorthData(k, loc, p))
	}

	if len(out) == 0 || current.after(monthOf(out[len(out)-1].Date)) {
		p := CalculateNetWorthAtDate(balance, savings, liabilities, nil, now, now)
		out = append(out, newNetWorthData(current, loc, p))
	}
	return out
}

func newNetWorthData(k monthKey, loc *time.Location, p NetWorthPoint) NetWorthData {
	return NetWorthData{
		Period:      k.label(),
		Date:        k.start(loc),
		Assets:      p.Assets,
		Liabilities: p.Liabilities,
		NetWorth:    p.NetWorth,
	}
}

// NetWorthGrowth is the growth in percent from the first to the last point.
func NetWorthGrowth(series []NetWorthData) float64 {
	if len(series) < 2 {
		return 0
	}
	first, last := series[0].NetWorth, series[len(series)-1].NetWorth
	return CalculateGrowthPercentage(first.InexactFloat64(), last.InexactFloat64())
}
