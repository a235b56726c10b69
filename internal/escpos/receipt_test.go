package escpos

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/PEWANG24/thermal-printer-pos/internal/receipt"
)

var testTime = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func coffeeDoc() receipt.Document {
	return receipt.Document{
		StoreName: "THERMAL PRINTER POS",
		Address:   "123 Main Street, City, State",
		Phone:     "(555) 123-4567",
		Items: []receipt.Item{
			{Name: "Coffee", Quantity: 2, UnitPrice: receipt.MustMoney("3.50")},
		},
		TaxRate:   receipt.DefaultTaxRate,
		Timestamp: testTime,
		Number:    1234,
	}
}

// assertInOrder fails unless every part occurs in got, each after the
// previous one.
func assertInOrder(t *testing.T, got []byte, parts ...[]byte) {
	t.Helper()
	rest := got
	for i, p := range parts {
		j := bytes.Index(rest, p)
		if j < 0 {
			t.Fatalf("part %d %q not found after previous parts", i, p)
		}
		rest = rest[j+len(p):]
	}
}

func TestItemLine(t *testing.T) {
	got := NewEncoder(Options{}).ItemLine("Coffee", 2, receipt.MustMoney("3.5"), receipt.MustMoney("7")).Bytes()

	var want []byte
	want = append(want, 0x1B, 0x61, 0x00)
	want = append(want, "Coffee\n"...)
	want = append(want, "  Qty: 2      @ $3.50    $7.00\n"...)
	want = append(want, '\n')

	if !bytes.Equal(got, want) {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestItemLineOverflow(t *testing.T) {
	got := NewEncoder(Options{}).ItemLine("Bulk", 123456, receipt.MustMoney("1"), receipt.MustMoney("123456")).Bytes()
	want := "Qty: 123456      @ $1.00 $123456.00\n"
	if !bytes.Contains(got, []byte(want)) {
		t.Errorf("overflowing fields should be kept whole, got %q", got)
	}
}

func TestTotalLine(t *testing.T) {
	got := NewEncoder(Options{}).TotalLine("Subtotal:", receipt.MustMoney("7"), false).Bytes()
	want := append([]byte{0x1B, 0x61, 0x00}, "Subtotal:               $7.00\n"...)
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTotalLineEmphasized(t *testing.T) {
	got := NewEncoder(Options{}).TotalLine("TOTAL:", receipt.MustMoney("7.56"), true).Bytes()

	var want []byte
	want = append(want, 0x1B, 0x61, 0x00)
	want = append(want, 0x1B, 0x45, 0x01, 0x1B, 0x21, 0x30)
	want = append(want, "TOTAL:"+strings.Repeat(" ", 18)+"$7.56\n"...)
	want = append(want, 0x1B, 0x45, 0x00, 0x1B, 0x21, 0x00)

	if !bytes.Equal(got, want) {
		t.Errorf("got  % X\nwant % X", got, want)
	}
}

func TestHeader(t *testing.T) {
	got := NewEncoder(Options{}).Header("SHOP", "", "555").Bytes()

	var want []byte
	want = append(want, 0x1B, 0x40)
	want = append(want, 0x1B, 0x61, 0x01)
	want = append(want, 0x1B, 0x21, 0x30, 0x1B, 0x45, 0x01)
	want = append(want, "SHOP\n"...)
	want = append(want, 0x1B, 0x21, 0x00, 0x1B, 0x45, 0x00)
	want = append(want, "Tel: 555\n"...)
	want = append(want, '\n')
	want = append(want, strings.Repeat("=", 32)+"\n"...)
	want = append(want, 0x1B, 0x61, 0x00)

	if !bytes.Equal(got, want) {
		t.Errorf("got  % X\nwant % X", got, want)
	}
}

func TestRenderReceiptLayout(t *testing.T) {
	got := Encode(coffeeDoc(), Options{})
	rule := []byte(strings.Repeat("=", 32) + "\n")

	if !bytes.HasPrefix(got, []byte{0x1B, 0x40}) {
		t.Fatalf("receipt should start with ESC @, got % X", got[:4])
	}
	if !bytes.HasSuffix(got, []byte{0x1D, 0x56, 0x00}) {
		t.Fatalf("receipt should end with a full cut, got % X", got[len(got)-4:])
	}

	assertInOrder(t, got,
		[]byte("THERMAL PRINTER POS\n"),
		[]byte("123 Main Street, City, State\n"),
		[]byte("Tel: (555) 123-4567\n"),
		rule,
		[]byte("Receipt #: 1234\n"),
		[]byte("Date: 3/5/2024\n"),
		[]byte("Time: 2:07:09 PM\n\n"),
		rule,
		[]byte("ITEMS:\n"),
		rule,
		[]byte("Coffee\n"),
		[]byte("  Qty: 2      @ $3.50    $7.00\n\n"),
		rule,
		[]byte("Subtotal:               $7.00\n"),
		[]byte("Tax (8%):               $0.56\n"),
		rule,
		[]byte("TOTAL:"+strings.Repeat(" ", 18)+"$7.56\n"),
		rule,
		[]byte("Thank you for your business!\n"),
		[]byte("Visit us again soon!\n\n\n"),
		rule,
		[]byte{'\n', '\n', '\n', 0x1D, 0x56, 0x00},
	)
}

func TestRenderReceiptPartialCut(t *testing.T) {
	got := Encode(coffeeDoc(), Options{PartialCut: true})
	if !bytes.HasSuffix(got, []byte{0x1D, 0x56, 0x01}) {
		t.Errorf("receipt should end with a partial cut, got % X", got[len(got)-3:])
	}
}

func TestRenderReceiptEmptyCart(t *testing.T) {
	doc := coffeeDoc()
	doc.Items = nil
	got := Encode(doc, Options{})
	rule := strings.Repeat("=", 32) + "\n"

	// Header rule, item rules with nothing between, totals at zero.
	if !bytes.Contains(got, []byte("ITEMS:\n"+rule+rule)) {
		t.Error("empty cart should print the item rules back to back")
	}
	assertInOrder(t, got,
		[]byte("Subtotal:               $0.00\n"),
		[]byte("Tax (8%):               $0.00\n"),
		[]byte("TOTAL:"+strings.Repeat(" ", 18)+"$0.00\n"),
	)
	if !bytes.HasSuffix(got, []byte{0x1D, 0x56, 0x00}) {
		t.Error("empty receipt should still cut")
	}
}

func TestRenderReceiptOmitsEmptyContactLines(t *testing.T) {
	doc := coffeeDoc()
	doc.Address = ""
	doc.Phone = ""
	got := Encode(doc, Options{})
	if bytes.Contains(got, []byte("Tel:")) {
		t.Error("phone line printed for an empty phone")
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a := Encode(coffeeDoc(), Options{})
	b := Encode(coffeeDoc(), Options{})
	if !bytes.Equal(a, b) {
		t.Error("Encode() should be deterministic for the same document")
	}
}

func TestEncodeItemOrder(t *testing.T) {
	doc := coffeeDoc()
	doc.Items = []receipt.Item{
		{Name: "Salad", Quantity: 1, UnitPrice: receipt.MustMoney("8.50")},
		{Name: "Chips", Quantity: 1, UnitPrice: receipt.MustMoney("1.25")},
		{Name: "Water", Quantity: 1, UnitPrice: receipt.MustMoney("1.50")},
	}
	assertInOrder(t, Encode(doc, Options{}),
		[]byte("Salad\n"), []byte("Chips\n"), []byte("Water\n"),
	)
}

func TestPreview(t *testing.T) {
	got := Preview(coffeeDoc())
	if strings.ContainsAny(got, "\x1b\x1d") {
		t.Error("preview should not contain control sequences")
	}
	for _, want := range []string{
		"THERMAL PRINTER POS\n",
		"  Qty: 2      @ $3.50    $7.00\n",
		"TOTAL:" + strings.Repeat(" ", 18) + "$7.56\n",
		"Visit us again soon!\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("preview missing %q", want)
		}
	}
}
