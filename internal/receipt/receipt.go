package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the flat sales tax applied to the subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// Item is one cart line.
type Item struct {
	Name      string
	Quantity  int
	UnitPrice Money
}

// LineTotal is UnitPrice × Quantity.
func (it Item) LineTotal() Money { return it.UnitPrice.Mul(it.Quantity) }

// Document is a receipt ready to print. Subtotal, tax and total are derived
// from Items on every call.
type Document struct {
	StoreName string
	Address   string
	Phone     string
	Items     []Item
	TaxRate   decimal.Decimal
	Timestamp time.Time
	Number    int
}

// New builds a document stamped with now, using DefaultTaxRate.
func New(store Store, items []Item, number int, now time.Time) Document {
	return Document{
		StoreName: store.Name,
		Address:   store.Address,
		Phone:     store.Phone,
		Items:     items,
		TaxRate:   DefaultTaxRate,
		Timestamp: now,
		Number:    number,
	}
}

func (d Document) Subtotal() Money {
	var sum Money
	for _, it := range d.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Tax is the subtotal times TaxRate, rounded to the cent.
func (d Document) Tax() Money { return d.Subtotal().MulRate(d.TaxRate) }

func (d Document) Total() Money { return d.Subtotal().Add(d.Tax()) }

// TaxLabel renders the tax line label, e.g. "Tax (8%):".
func TaxLabel(rate decimal.Decimal) string {
	return "Tax (" + rate.Shift(2).String() + "%):"
}
