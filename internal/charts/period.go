// Package charts turns transaction lists into chart-ready aggregates.
//
// Every function is pure. Anything relative to "today" takes an explicit now;
// calendar arithmetic happens in now.Location().
package charts

import (
	"time"

	"fintrax/internal/core"
)

// DateRangeForPeriod resolves a symbolic period against now. custom is only
// consulted for core.CustomPeriod; when it is nil the range runs from January
// 1st to today. Unknown periods resolve like core.ThisMonth.
func DateRangeForPeriod(period core.TimePeriod, custom *core.DateRange, now time.Time) core.DateRange {
	y, m, loc := now.Year(), now.Month(), now.Location()
	day := func(year int, month time.Month, d int) core.Date {
		// time.Date normalizes day 0 to the last day of the previous month.
		return core.NewDate(year, month, d, loc)
	}

	switch period {
	case core.ThisMonth:
		return core.DateRange{StartDate: day(y, m, 1), EndDate: day(y, m+1, 0)}
	case core.LastMonth:
		return core.DateRange{StartDate: day(y, m-1, 1), EndDate: day(y, m, 0)}
	case core.Last3Months:
		return core.DateRange{StartDate: day(y, m-3, 1), EndDate: day(y, m+1, 0)}
	case core.Last6Months:
		return core.DateRange{StartDate: day(y, m-6, 1), EndDate: day(y, m+1, 0)}
	case core.ThisYear:
		return core.DateRange{StartDate: day(y, time.January, 1), EndDate: day(y, time.December, 31)}
	case core.CustomPeriod:
		if custom != nil {
			return *custom
		}
		return core.DateRange{StartDate: day(y, time.January, 1), EndDate: day(y, m, now.Day())}
	default:
		return DateRangeForPeriod(core.ThisMonth, nil, now)
	}
}

// TimePeriodLabel returns the display label for a period.
func TimePeriodLabel(period core.TimePeriod) string {
	switch period {
	case core.ThisMonth:
		return "This Month"
	case core.LastMonth:
		return "Last Month"
	case core.Last3Months:
		return "Last 3 Months"
	case core.Last6Months:
		return "Last 6 Months"
	case core.ThisYear:
		return "This Year"
	case core.CustomPeriod:
		return "Custom Range"
	default:
		return "This Month"
	}
}

// FilterTransactionsByDateRange keeps transactions dated within r, both ends
// inclusive. The input order is preserved.
func FilterTransactionsByDateRange(txs []core.Transaction, r core.DateRange) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if r.Contains(t.Date.Time) {
			out = append(out, t)
		}
	}
	return out
}

// monthKey identifies a calendar month independent of location.
type monthKey struct {
	year  int
	month time.Month
}

func monthOf(t time.Time) monthKey {
	return monthKey{year: t.Year(), month: t.Month()}
}

func (k monthKey) next() monthKey {
	if k.month == time.December {
		return monthKey{year: k.year + 1, month: time.January}
	}
	return monthKey{year: k.year, month: k.month + 1}
}

func (k monthKey) after(o monthKey) bool {
	return k.year > o.year || (k.year == o.year && k.month > o.month)
}

// label renders "Jan 2024".
func (k monthKey) label() string {
	return time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

func (k monthKey) start(loc *time.Location) time.Time {
	return time.Date(k.year, k.month, 1, 0, 0, 0, 0, loc)
}

// monthsBetween lists every month from the month of start through the month
// of end, inclusive. It is empty when start is after end.
func monthsBetween(start, end time.Time) []monthKey {
	var months []monthKey
	last := monthOf(end)
	for k := monthOf(start); !k.after(last); k = k.next() {
		months = append(months, k)
	}
	return months
}
