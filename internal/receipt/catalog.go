package receipt

import (
	"fmt"
	"strconv"
	"strings"
)

// Product is a sellable catalog entry.
type Product struct {
	ID       int
	Name     string
	Price    Money
	Category string
}

// Catalog is an ordered product list.
type Catalog []Product

// DefaultCatalog is the register's built-in menu.
var DefaultCatalog = Catalog{
	{1, "Coffee", MustMoney("3.50"), "Beverages"},
	{2, "Tea", MustMoney("2.50"), "Beverages"},
	{3, "Sandwich", MustMoney("7.99"), "Food"},
	{4, "Salad", MustMoney("8.50"), "Food"},
	{5, "Cookie", MustMoney("1.99"), "Dessert"},
	{6, "Muffin", MustMoney("3.25"), "Dessert"},
	{7, "Soda", MustMoney("2.00"), "Beverages"},
	{8, "Water", MustMoney("1.50"), "Beverages"},
	{9, "Pizza Slice", MustMoney("4.99"), "Food"},
	{10, "Chips", MustMoney("1.25"), "Snacks"},
}

// Lookup finds a product by numeric id or case-insensitive name.
func (c Catalog) Lookup(key string) (Product, bool) {
	key = strings.TrimSpace(key)
	if id, err := strconv.Atoi(key); err == nil {
		for _, p := range c {
			if p.ID == id {
				return p, true
			}
		}
		return Product{}, false
	}
	for _, p := range c {
		if strings.EqualFold(p.Name, key) {
			return p, true
		}
	}
	return Product{}, false
}

// ParseCart builds items from "key[:qty]" arguments, e.g. "1:2" or
// "cookie". Repeated products merge into one line in first-seen order.
func (c Catalog) ParseCart(args []string) ([]Item, error) {
	var items []Item
	index := make(map[int]int)
	for _, arg := range args {
		key, qtyStr, hasQty := strings.Cut(arg, ":")
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(qtyStr)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("receipt: invalid quantity in %q", arg)
			}
			qty = n
		}
		p, ok := c.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("receipt: unknown product %q", key)
		}
		if i, ok := index[p.ID]; ok {
			items[i].Quantity += qty
			continue
		}
		index[p.ID] = len(items)
		items = append(items, Item{Name: p.Name, Quantity: qty, UnitPrice: p.Price})
	}
	return items, nil
}

// Store is the header block printed at the top of a receipt.
type Store struct {
	Name    string
	Address string
	Phone   string
}

// DefaultStore is used when no store is configured.
var DefaultStore = Store{
	Name:    "THERMAL PRINTER POS",
	Address: "123 Main Street, City, State",
	Phone:   "(555) 123-4567",
}

// DemoStores are presets selectable by name from the CLI.
var DemoStores = []Store{
	{"Coffee Corner", "123 Main Street, Downtown", "(555) 123-4567"},
	{"Quick Bites Cafe", "456 Oak Avenue, Midtown", "(555) 987-6543"},
	{"Thermal Printer POS", "789 Tech Boulevard, Innovation District", "(555) 456-7890"},
}

// FindStore returns the demo store whose name matches, ignoring case.
func FindStore(name string) (Store, bool) {
	for _, s := range DemoStores {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Store{}, false
}
