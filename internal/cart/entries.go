package cart

// Entry is the persisted form of a line: just the product and quantity.
// Product details are re-read from the catalog when the cart is restored.
type Entry struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// Adjustment describes a change Restore had to make to a stored entry.
type Adjustment struct {
	ProductID uint
	Name      string
	Requested int
	Kept      int
}

// Entries returns the cart as ordered entries.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, Entry{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return out
}

// Restore rebuilds a cart from stored entries against freshly fetched
// products. Entries for unknown products are dropped and quantities above
// the current stock are lowered to it; both are reported as adjustments.
func Restore(products []Product, entries []Entry) (*Cart, []Adjustment) {
	byID := make(map[uint]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	c := New()
	var adj []Adjustment
	for _, e := range entries {
		if e.Quantity <= 0 || c.index(e.ProductID) >= 0 {
			continue
		}
		p, ok := byID[e.ProductID]
		if !ok {
			adj = append(adj, Adjustment{ProductID: e.ProductID, Requested: e.Quantity})
			continue
		}
		qty := e.Quantity
		if qty > p.Stock {
			qty = p.Stock
			adj = append(adj, Adjustment{ProductID: p.ID, Name: p.Name, Requested: e.Quantity, Kept: qty})
		}
		if qty > 0 {
			c.lines = append(c.lines, Line{Product: p, Quantity: qty})
		}
	}
	return c, adj
}
