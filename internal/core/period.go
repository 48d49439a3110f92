package core

// TimePeriod is a symbolic chart window resolved against a reference time.
type TimePeriod string

const (
	ThisMonth    TimePeriod = "this-month"
	LastMonth    TimePeriod = "last-month"
	Last3Months  TimePeriod = "last-3-months"
	Last6Months  TimePeriod = "last-6-months"
	ThisYear     TimePeriod = "this-year"
	CustomPeriod TimePeriod = "custom"
)

// TimePeriods lists the supported periods in display order.
func TimePeriods() []TimePeriod {
	return []TimePeriod{ThisMonth, LastMonth, Last3Months, Last6Months, ThisYear, CustomPeriod}
}

// ParseTimePeriod returns the period named by s and whether it is known.
func ParseTimePeriod(s string) (TimePeriod, bool) {
	for _, p := range TimePeriods() {
		if string(p) == s {
			return p, true
		}
	}
	return ThisMonth, false
}
