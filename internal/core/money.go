// Package core provides money parsing and handling utilities.
//
// This file contains the parser for amounts typed by hand into spreadsheets
// and forms, where currency symbols and thousands separators are common.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount to a positive decimal rounded to paise.
//
// It strips a leading rupee sign and comma digit grouping (both 1,50,000 and
// 150,000 are accepted) and performs half-up rounding on the third decimal
// place. Returns ErrInvalidAmount for signed, zero, or malformed input.
//
// Examples:
//
//	ParseAmount("5000")       -> 5000
//	ParseAmount("₹1,50,000")  -> 150000
//	ParseAmount("12.345")     -> 12.35 (rounds up)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.ContainsAny(s, "eE") {
		// decimal.NewFromString accepts exponents; hand-typed amounts never have them
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
