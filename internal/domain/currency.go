package domain

import (
	"fmt"
	"strings"
)

// Currency describes how a currency's minor units map to its display value
type Currency struct {
	Code      string
	Precision int32 // Number of fractional digits (2 for EUR, 0 for JPY)
}

var currencies = map[string]Currency{
	"EUR": {Code: "EUR", Precision: 2},
	"USD": {Code: "USD", Precision: 2},
	"GBP": {Code: "GBP", Precision: 2},
	"INR": {Code: "INR", Precision: 2},
	"BRL": {Code: "BRL", Precision: 2},
	"CHF": {Code: "CHF", Precision: 2},
	"JPY": {Code: "JPY", Precision: 0},
	"KRW": {Code: "KRW", Precision: 0},
	"KWD": {Code: "KWD", Precision: 3},
	"BHD": {Code: "BHD", Precision: 3},
}

// LookupCurrency returns the currency registered for an ISO 4217 code
func LookupCurrency(code string) (Currency, error) {
	c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}
