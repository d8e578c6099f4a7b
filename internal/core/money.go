// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing Rupiah amounts as users and the
// AI write them ("Rp 50.000", "25rb", "1,5jt") and for formatting them back.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is a signed Rupiah amount. Positive is income, negative is expense.
type Money struct {
	value decimal.Decimal
}

var idPrinter = message.NewPrinter(language.Indonesian)

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{value: d}
}

// MoneyFromInt builds a whole-Rupiah amount.
func MoneyFromInt(n int64) Money {
	return Money{value: decimal.NewFromInt(n)}
}

// MoneyFromFloat is used by the row codec when a sheet returns a float cell.
func MoneyFromFloat(f float64) Money {
	return Money{value: decimal.NewFromFloat(f)}
}

func (m Money) Decimal() decimal.Decimal { return m.value }
func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) Sign() int                { return m.value.Sign() }
func (m Money) Add(o Money) Money        { return Money{value: m.value.Add(o.value)} }
func (m Money) Sub(o Money) Money        { return Money{value: m.value.Sub(o.value)} }
func (m Money) Abs() Money               { return Money{value: m.value.Abs()} }
func (m Money) Neg() Money               { return Money{value: m.value.Neg()} }
func (m Money) Cmp(o Money) int          { return m.value.Cmp(o.value) }
func (m Money) Equal(o Money) bool       { return m.value.Equal(o.value) }

// String returns the plain decimal form stored in the ledger ("-25000").
func (m Money) String() string {
	return m.value.String()
}

// Float64 is for ledger backends that store numeric cells.
func (m Money) Float64() float64 {
	f, _ := m.value.Float64()
	return f
}

// Rupiah formats the amount for chat replies, e.g. "Rp 50.000" or "-Rp 25.000".
func (m Money) Rupiah() string {
	sign := ""
	if m.value.Sign() < 0 {
		sign = "-"
	}
	abs := m.value.Abs().Round(2)
	whole := abs.Truncate(0)
	out := sign + "Rp " + idPrinter.Sprintf("%d", whole.IntPart())
	if frac := abs.Sub(whole); !frac.IsZero() {
		digits := frac.StringFixed(2)
		out += "," + digits[strings.IndexByte(digits, '.')+1:]
	}
	return out
}

var multipliers = []struct {
	suffix string
	factor int64
}{
	{"juta", 1_000_000},
	{"ribu", 1_000},
	{"jt", 1_000_000},
	{"rb", 1_000},
	{"k", 1_000},
}

// ParseAmount converts a user or AI supplied amount into Money.
//
// It understands an optional "Rp" prefix, a leading sign, Indonesian
// thousand separators (dot), a decimal comma, and the ribu/rb/k and
// juta/jt suffixes. Zero and non-numeric values return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("Rp 50.000") -> 50000
//	ParseAmount("-25rb")     -> -25000
//	ParseAmount("1,5jt")     -> 1500000
//	ParseAmount("12.50")     -> 12.5
func ParseAmount(s string) (Money, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "rp"))
	s = strings.TrimPrefix(s, ".")
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	s = strings.ReplaceAll(s, " ", "")

	factor := int64(1)
	for _, m := range multipliers {
		if strings.HasSuffix(s, m.suffix) {
			factor = m.factor
			s = strings.TrimSuffix(s, m.suffix)
			break
		}
	}
	num := normalizeSeparators(s, factor > 1)
	if num == "" {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range num {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	d = d.Mul(decimal.NewFromInt(factor))
	if d.IsZero() {
		return Money{}, ErrInvalidAmount
	}
	if negative {
		d = d.Neg()
	}
	return Money{value: d}, nil
}

// Money converts a raw AI amount. JSON number literals are parsed as plain
// decimals, including exponent forms; strings go through ParseAmount.
func (v RawValue) Money() (Money, error) {
	if !v.Number {
		return ParseAmount(v.Text)
	}
	d, err := decimal.NewFromString(v.Text)
	if err != nil || d.IsZero() {
		return Money{}, ErrInvalidAmount
	}
	return Money{value: d}, nil
}

// normalizeSeparators rewrites s into a dot-decimal string without grouping.
// A comma is always the decimal separator. Dots are grouping separators when
// there is a comma, when there are several of them, or when a single dot is
// followed by exactly three digits and no multiplier suffix was present.
func normalizeSeparators(s string, hasMultiplier bool) string {
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	dots := strings.Count(s, ".")
	switch {
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	case dots == 1 && !hasMultiplier:
		if i := strings.IndexByte(s, '.'); len(s)-i-1 == 3 {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}
