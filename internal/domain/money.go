package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed count of the smallest currency unit (cents, paise, ...).
// All amounts inside the engine are Money; decimal strings only exist at the boundary.
type Money int64

// ParseMoney converts a user-facing decimal string ("150.00") into minor units of the currency.
// Values with more fractional digits than the currency allows are rejected instead of rounded.
func ParseMoney(s string, currency Currency) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	minor := d.Shift(currency.Precision)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places for %s", ErrInvalidAmount, s, currency.Precision, currency.Code)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}

	return Money(minor.IntPart()), nil
}

// Format renders the amount with the currency's fixed number of decimal places.
// This is the only place minor units are turned back into a display string.
func (m Money) Format(currency Currency) string {
	return decimal.New(int64(m), -currency.Precision).StringFixed(currency.Precision)
}

// Decimal returns the amount as a decimal in major units
func (m Money) Decimal(currency Currency) decimal.Decimal {
	return decimal.New(int64(m), -currency.Precision)
}

// Abs returns the magnitude of the amount
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Sum adds a list of amounts
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}
