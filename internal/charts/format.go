package charts

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders whole rupees with Indian digit grouping:
// 1234567 -> "₹12,34,567", -5000 -> "-₹5,000".
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + "₹" + groupIndian(rounded.String())
}

// groupIndian inserts separators after the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// FormatPercentage renders one decimal place: 45.678 -> "45.7%".
func FormatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

// FormatCompactNumber abbreviates with Indian units: K (thousand), L (lakh),
// Cr (crore). Values below a thousand are rounded to an integer.
func FormatCompactNumber(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	// Thresholds apply to the rounded value, so 999.6 is 1.0K, not 1000.
	switch {
	case math.Round(v/1e4) >= 1e3:
		return sign + strconv.FormatFloat(v/1e7, 'f', 1, 64) + "Cr"
	case math.Round(v/1e2) >= 1e3:
		return sign + strconv.FormatFloat(v/1e5, 'f', 1, 64) + "L"
	case math.Round(v) >= 1e3:
		return sign + strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	default:
		r := math.Round(v)
		if r == 0 {
			return "0"
		}
		return sign + strconv.FormatFloat(r, 'f', 0, 64)
	}
}

// CalculateGrowthPercentage returns the change in percent of |oldValue|.
// From zero it is 100, -100 or 0 depending on the sign of newValue.
func CalculateGrowthPercentage(oldValue, newValue float64) float64 {
	if oldValue == 0 {
		switch {
		case newValue > 0:
			return 100
		case newValue < 0:
			return -100
		default:
			return 0
		}
	}
	return (newValue - oldValue) / math.Abs(oldValue) * 100
}

// FormatGrowthPercentage always carries a sign: 25.5 -> "+25.5%", 0 -> "+0.0%".
func FormatGrowthPercentage(g float64) string {
	if g >= 0 {
		return fmt.Sprintf("+%.1f%%", g)
	}
	return fmt.Sprintf("%.1f%%", g)
}
