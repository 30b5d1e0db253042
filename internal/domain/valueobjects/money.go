// Package valueobjects - Money is the amount type used everywhere in the
// ledger. It wraps a fixed-point decimal so arithmetic is exact; binary
// floating point never touches a balance.
//
// Value Object Pattern:
// - Immutable: all operations return new Money instances
// - Self-validating: cannot create Money with more than two fractional digits
package valueobjects

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by every amount.
// Matches the numeric(20,2) columns in the store.
const Scale = 2

// Common domain errors for Money operations
var (
	ErrInvalidAmount  = errors.New("invalid amount format")
	ErrTooManyDigits  = errors.New("amount cannot have more than two decimal places")
	ErrNegativeAmount = errors.New("amount cannot be negative")
)

// Money represents an exact scale-2 decimal amount of some asset.
// The asset itself is tracked separately (wallets are per-asset), so Money
// carries only the number.
type Money struct {
	amount decimal.Decimal
}

// NewMoney parses a decimal string (e.g. "100.50") into Money.
// Rejects malformed input and amounts with more than two fractional digits.
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -Scale {
		// NewFromString preserves the written exponent, so "1.005" is
		// detectable here even though it round-trips through decimal fine.
		if !d.Equal(d.Round(Scale)) {
			return Money{}, fmt.Errorf("%w: %q", ErrTooManyDigits, s)
		}
	}
	return Money{amount: d.Round(Scale)}, nil
}

// NewPositiveMoney parses a decimal string and additionally requires > 0.
func NewPositiveMoney(s string) (Money, error) {
	m, err := NewMoney(s)
	if err != nil {
		return Money{}, err
	}
	if !m.IsPositive() {
		return Money{}, fmt.Errorf("amount must be greater than zero: %q", s)
	}
	return m, nil
}

// NewMoneyFromDecimal wraps an already-parsed decimal. Used by repositories
// hydrating rows; the store guarantees scale 2.
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{amount: d.Round(Scale)}
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// String renders the amount with exactly two fractional digits ("70.00").
func (m Money) String() string {
	return m.amount.StringFixed(Scale)
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other. The result may be negative; callers enforce
// balance policy.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Neg returns -m. Debit ledger entries carry the negated transfer amount.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative reports whether the amount is strictly less than zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// Equal reports whether the two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// MarshalJSON renders the amount as a JSON string with two fractional
// digits, so replayed idempotent responses are byte-identical.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := NewMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
