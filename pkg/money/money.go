// Package money centralizes monetary arithmetic. All derived amounts are
// rounded to two fractional digits, half up, exactly once at the point a
// field is produced. Intermediate sums stay unrounded.
package money

import "github.com/shopspring/decimal"

// Zero is the canonical 0.00 amount.
var Zero = decimal.Zero

// Round2 rounds half up to two decimal places. decimal.Round rounds half
// away from zero, which is identical for the non-negative amounts this
// system deals in.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Line multiplies a unit price by a quantity without rounding.
func Line(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// Cap returns value limited to at most limit.
func Cap(value, limit decimal.Decimal) decimal.Decimal {
	if value.GreaterThan(limit) {
		return limit
	}
	return value
}

// IsNegative reports whether the amount is below zero.
func IsNegative(d decimal.Decimal) bool {
	return d.Sign() < 0
}

// MustParse parses a literal amount; it panics on malformed input and is
// intended for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
