package escpos

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PEWANG24/thermal-printer-pos/internal/receipt"
)

// Receipt column widths. Content longer than a field overflows it.
const (
	qtyWidth   = 8
	priceWidth = 12
	totalWidth = 8
	labelWidth = 20
)

const (
	DefaultThanks = "Thank you for your business!"
	farewell      = "Visit us again soon!"
)

const (
	dateLayout = "1/2/2006"
	timeLayout = "3:04:05 PM"
)

func padLeft(s string, width int) string {
	if n := width - len([]rune(s)); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}

func padRight(s string, width int) string {
	if n := width - len([]rune(s)); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// ItemLine prints the item name, then quantity, unit price and line total
// right-aligned in 8, 12 and 8 columns, then a blank line.
func (e *Encoder) ItemLine(name string, qty int, unitPrice, lineTotal receipt.Money) *Encoder {
	e.Align(AlignLeft)
	e.Line(name)
	e.Line(padLeft("Qty: "+strconv.Itoa(qty), qtyWidth) + " " +
		padLeft("@ "+unitPrice.String(), priceWidth) + " " +
		padLeft(lineTotal.String(), totalWidth))
	return e.Feed(1)
}

// TotalLine prints label in 20 columns and amount right-aligned in 8.
func (e *Encoder) TotalLine(label string, amount receipt.Money, emphasized bool) *Encoder {
	e.Align(AlignLeft)
	text := padRight(label, labelWidth) + " " + padLeft(amount.String(), totalWidth)
	if emphasized {
		return e.Emphasized(func(e *Encoder) { e.Line(text) })
	}
	return e.Line(text)
}

// Header initializes the printer and prints the store block.
func (e *Encoder) Header(store, address, phone string) *Encoder {
	e.Initialize()
	e.Align(AlignCenter)
	e.FontSize(SizeDouble).Bold(true)
	e.Line(store)
	e.FontSize(SizeNormal).Bold(false)
	if address != "" {
		e.Line(address)
	}
	if phone != "" {
		e.Line("Tel: " + phone)
	}
	e.Feed(1)
	e.DefaultRule()
	return e.Align(AlignLeft)
}

// Footer prints the closing lines and cuts.
func (e *Encoder) Footer(thanks string) *Encoder {
	e.Feed(1)
	e.Align(AlignCenter)
	e.Line(thanks)
	e.Line(farewell)
	e.Feed(2)
	e.DefaultRule()
	e.Feed(3)
	return e.Cut(e.opts.PartialCut)
}

// RenderReceipt appends a complete receipt for doc.
func (e *Encoder) RenderReceipt(doc receipt.Document) *Encoder {
	e.Header(doc.StoreName, doc.Address, doc.Phone)

	e.Line(fmt.Sprintf("Receipt #: %d", doc.Number))
	e.Line("Date: " + doc.Timestamp.Format(dateLayout))
	e.Line("Time: " + doc.Timestamp.Format(timeLayout))
	e.Feed(1)
	e.DefaultRule()
	e.Line("ITEMS:")
	e.DefaultRule()

	for _, it := range doc.Items {
		e.ItemLine(it.Name, it.Quantity, it.UnitPrice, it.LineTotal())
	}

	e.DefaultRule()
	e.TotalLine("Subtotal:", doc.Subtotal(), false)
	e.TotalLine(receipt.TaxLabel(doc.TaxRate), doc.Tax(), false)
	e.DefaultRule()
	e.TotalLine("TOTAL:", doc.Total(), true)
	e.DefaultRule()

	return e.Footer(DefaultThanks)
}

// Encode renders doc into a fresh buffer. The output depends only on doc
// and opts.
func Encode(doc receipt.Document, opts Options) []byte {
	return NewEncoder(opts).RenderReceipt(doc).Bytes()
}

// Preview renders doc with the same layout as Encode but without control
// sequences, for display on a terminal.
func Preview(doc receipt.Document) string {
	return string(newPlainEncoder().RenderReceipt(doc).buf)
}
