package receipt

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMoneyString(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{Money{}, "$0.00"},
		{MustMoney("3.5"), "$3.50"},
		{MoneyFromCents(756), "$7.56"},
		{MustMoney("1.005"), "$1.01"}, // half away from zero
		{MustMoney("-1.005"), "$-1.01"},
		{MustMoney("2.004"), "$2.00"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestNewMoneyInvalid(t *testing.T) {
	if _, err := NewMoney("3,50"); err == nil {
		t.Error("NewMoney(\"3,50\") should fail")
	}
}

func TestItemLineTotal(t *testing.T) {
	it := Item{Name: "Cookie", Quantity: 3, UnitPrice: MustMoney("1.99")}
	if got := it.LineTotal().String(); got != "$5.97" {
		t.Errorf("LineTotal() = %s, want $5.97", got)
	}
}

func TestDocumentTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []Item
		subtotal string
		tax      string
		total    string
	}{
		{
			name:     "two coffees",
			items:    []Item{{Name: "Coffee", Quantity: 2, UnitPrice: MustMoney("3.50")}},
			subtotal: "$7.00", tax: "$0.56", total: "$7.56",
		},
		{
			name:     "empty cart",
			subtotal: "$0.00", tax: "$0.00", total: "$0.00",
		},
		{
			name: "mixed",
			items: []Item{
				{Name: "Sandwich", Quantity: 1, UnitPrice: MustMoney("7.99")},
				{Name: "Chips", Quantity: 2, UnitPrice: MustMoney("1.25")},
			},
			// 10.49 * 0.08 = 0.8392
			subtotal: "$10.49", tax: "$0.84", total: "$11.33",
		},
		{
			name:     "quantity multiplies before tax",
			items:    []Item{{Name: "Water", Quantity: 4, UnitPrice: MustMoney("1.50")}},
			subtotal: "$6.00", tax: "$0.48", total: "$6.48",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Document{Items: tt.items, TaxRate: DefaultTaxRate}
			if got := doc.Subtotal().String(); got != tt.subtotal {
				t.Errorf("Subtotal() = %s, want %s", got, tt.subtotal)
			}
			if got := doc.Tax().String(); got != tt.tax {
				t.Errorf("Tax() = %s, want %s", got, tt.tax)
			}
			if got := doc.Total().String(); got != tt.total {
				t.Errorf("Total() = %s, want %s", got, tt.total)
			}
		})
	}
}

func TestMulRateRoundsHalfAwayFromZero(t *testing.T) {
	// 0.3125 * 0.08 = 0.025
	got := MustMoney("0.3125").MulRate(DefaultTaxRate)
	if got.String() != "$0.03" {
		t.Errorf("MulRate() = %s, want $0.03", got)
	}
}

func TestTaxLabel(t *testing.T) {
	tests := []struct {
		rate string
		want string
	}{
		{"0.08", "Tax (8%):"},
		{"0.0725", "Tax (7.25%):"},
		{"0", "Tax (0%):"},
	}
	for _, tt := range tests {
		if got := TaxLabel(decimal.RequireFromString(tt.rate)); got != tt.want {
			t.Errorf("TaxLabel(%s) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestNewDocument(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	doc := New(DefaultStore, nil, 42, now)
	if doc.StoreName != "THERMAL PRINTER POS" || doc.Number != 42 || !doc.Timestamp.Equal(now) {
		t.Errorf("New() = %+v", doc)
	}
	if !doc.TaxRate.Equal(DefaultTaxRate) {
		t.Errorf("TaxRate = %s, want %s", doc.TaxRate, DefaultTaxRate)
	}
}
