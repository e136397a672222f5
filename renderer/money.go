package renderer

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency of the prices sent by the API.
const DefaultCurrency = "KRW"

// Money is an amount in a currency, formatted the way the currency is.
type Money struct {
	value decimal.Decimal // major units
	cur   string
}

// NewMoney returns an amount of currency.
func NewMoney(value decimal.Decimal, currency string) Money {
	return Money{value: value, cur: currency}
}

func (m Money) currency() money.Currency {
	// the constructor never returns a nil currency, unlike GetCurrency
	return *money.New(0, m.cur).Currency()
}

// String returns the amount formatted with the currency symbol, rounded to
// the currency fraction.
func (m Money) String() string {
	cur := m.currency()
	minor := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// SignedString is like String with an explicit sign. Zero is "-".
func (m Money) SignedString() string {
	switch {
	case m.value.IsZero():
		return "-"
	case m.value.IsPositive():
		return "+" + m.String()
	default:
		return m.String()
	}
}

// Percent is a percentage as sent by the API: 12.5 means 12.5%.
type Percent decimal.Decimal

func (p Percent) String() string { return decimal.Decimal(p).StringFixed(2) + "%" }

// SignedString is like String with an explicit sign. Zero is "-".
func (p Percent) SignedString() string {
	d := decimal.Decimal(p)
	switch {
	case d.IsZero():
		return "-"
	case d.IsPositive():
		return "+" + p.String()
	default:
		return p.String()
	}
}

// ratio formats a plain number with two decimals.
func ratio(d decimal.Decimal) string { return d.StringFixed(2) }
