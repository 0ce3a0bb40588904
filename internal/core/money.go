// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal. This file contains the form-input
// parser and the display formatter used by the templates.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted amounts and receipt memo lines.
const CurrencySymbol = "¥"

// ParseAmount converts a user-entered amount into a decimal.
//
// Commas are thousands separators (12,345) and the dot is the decimal point.
// A leading currency symbol is ignored and the result is rounded half-up to
// two fractional digits.
// Negative values and anything that is not a plain number are rejected; zero
// is allowed.
//
// Examples:
//
//	ParseAmount("1500")    -> 1500, nil
//	ParseAmount("12,345")  -> 12345, nil
//	ParseAmount("99.999")  -> 100, nil
//	ParseAmount("¥980")    -> 980, nil
//	ParseAmount("-1")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, CurrencySymbol)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatAmount renders an amount with thousands separators, e.g. "¥12,345".
// Whole amounts are printed without fractional digits.
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	d = d.Abs()

	var s string
	if d.Equal(d.Truncate(0)) {
		s = d.StringFixed(0)
	} else {
		s = d.StringFixed(2)
	}

	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}

	out := CurrencySymbol + b.String()
	if neg {
		out = "-" + out
	}
	return out
}
