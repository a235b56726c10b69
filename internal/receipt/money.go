// Package receipt holds the cart and receipt data model.
package receipt

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a currency amount. The zero value is $0.00.
type Money struct {
	d decimal.Decimal
}

// NewMoney parses a decimal string such as "3.50".
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("receipt: parse amount %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustMoney is NewMoney for literals. It panics on malformed input.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromCents builds an amount from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// MoneyFromDecimal wraps d unchanged.
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{d: d} }

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Mul multiplies by a quantity.
func (m Money) Mul(qty int) Money { return Money{d: m.d.Mul(decimal.NewFromInt(int64(qty)))} }

// MulRate multiplies by a rate and rounds to the cent, half away from zero.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate).Round(2)}
}

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// Format renders the amount with two decimals and no currency symbol.
func (m Money) Format() string { return m.d.StringFixed(2) }

// String renders "$3.50". Negative amounts render as "$-1.00".
func (m Money) String() string { return "$" + m.Format() }
