// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for every amount in the system
// and the helpers that parse user input into it.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency-agnostic decimal amount.
//
// It serializes as a bare JSON number so the wire format matches what
// mobile clients already send, and accepts both numbers and numeric
// strings when decoding.
type Money struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromFloat converts a float to Money. Intended for tests and
// values that were already parsed as JSON numbers.
func MoneyFromFloat(f float64) Money {
	return Money{Decimal: decimal.NewFromFloat(f)}
}

// MustMoney parses s and panics on failure. Only use with literals.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("core: invalid money literal %q: %v", s, err))
	}
	return Money{Decimal: d}
}

// ParseAmount converts user input to a strictly positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rejects signs, empty input and anything that is not a plain decimal.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("0")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Zero, ErrInvalidAmount
	}
	// decimal.NewFromString accepts exponents; user input should not.
	if strings.ContainsAny(s, "eE") {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	m := Money{Decimal: d}
	if !m.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return m, nil
}

// Plus returns m + o.
func (m Money) Plus(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// Minus returns m - o.
func (m Money) Minus(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}

// Equals reports whether both amounts are numerically equal.
func (m Money) Equals(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// String renders the amount with two decimals for display.
func (m Money) String() string {
	return m.StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON reads a JSON number or numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	m.Decimal = d
	return nil
}

// Sum adds up the amount of every expense.
func Sum(expenses []Expense) Money {
	total := Zero
	for _, e := range expenses {
		total = total.Plus(e.Amount)
	}
	return total
}
