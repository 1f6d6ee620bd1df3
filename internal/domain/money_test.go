package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	eur, _ := LookupCurrency("EUR")
	jpy, _ := LookupCurrency("JPY")
	kwd, _ := LookupCurrency("KWD")

	tests := []struct {
		name     string
		input    string
		currency Currency
		want     Money
		wantErr  bool
	}{
		{name: "Two decimals", input: "150.25", currency: eur, want: 15025},
		{name: "Whole amount", input: "90", currency: eur, want: 9000},
		{name: "One decimal", input: "0.5", currency: eur, want: 50},
		{name: "Surrounding spaces", input: " 12.00 ", currency: eur, want: 1200},
		{name: "Negative", input: "-3.10", currency: eur, want: -310},
		{name: "Zero precision", input: "1001", currency: jpy, want: 1001},
		{name: "Three decimals", input: "1.234", currency: kwd, want: 1234},
		{name: "Too many decimals", input: "1.005", currency: eur, wantErr: true},
		{name: "Fraction of yen", input: "10.5", currency: jpy, wantErr: true},
		{name: "Not a number", input: "ten", currency: eur, wantErr: true},
		{name: "Empty", input: "", currency: eur, wantErr: true},
		{name: "Out of range", input: "99999999999999999999", currency: eur, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input, tt.currency)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoney_Format(t *testing.T) {
	eur, _ := LookupCurrency("eur")
	jpy, _ := LookupCurrency("JPY")
	bhd, _ := LookupCurrency("BHD")

	assert.Equal(t, "60.00", Money(6000).Format(eur))
	assert.Equal(t, "-30.05", Money(-3005).Format(eur))
	assert.Equal(t, "0.00", Money(0).Format(eur))
	assert.Equal(t, "0.01", Money(1).Format(eur))
	assert.Equal(t, "-500", Money(-500).Format(jpy))
	assert.Equal(t, "1.005", Money(1005).Format(bhd))
}

func TestMoney_FormatParseRoundTrip(t *testing.T) {
	usd, _ := LookupCurrency("USD")
	for _, m := range []Money{0, 1, 99, 100, 123456789, -42} {
		parsed, err := ParseMoney(m.Format(usd), usd)
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}

func TestMoney_Helpers(t *testing.T) {
	assert.Equal(t, Money(5), Money(-5).Abs())
	assert.Equal(t, Money(5), Money(5).Abs())
	assert.Equal(t, Money(6), Sum(1, 2, 3))
	assert.Equal(t, Money(0), Sum())
}

func TestLookupCurrency(t *testing.T) {
	c, err := LookupCurrency(" gbp ")
	require.NoError(t, err)
	assert.Equal(t, Currency{Code: "GBP", Precision: 2}, c)

	_, err = LookupCurrency("XYZ")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}
