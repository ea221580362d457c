// Package cart holds the point-of-sale cart and the checkout that turns it
// into a recorded sale.
//
// A Cart validates requested quantities against the stock figure captured
// when the product was fetched. That check is client-side only; the server
// re-validates stock when the sale is recorded.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientStock = errors.New("cart: insufficient stock")
	ErrInvalidQuantity   = errors.New("cart: quantity must not be negative")
	ErrLineNotFound      = errors.New("cart: product not in cart")
)

// StockError reports a requested quantity above the available stock.
type StockError struct {
	ProductID uint
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d of %q in stock, %d requested", e.Available, e.Name, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// Product is the snapshot of an inventory item a line refers to.
type Product struct {
	ID       uint
	Name     string
	Category string
	Price    decimal.Decimal
	Cost     decimal.Decimal
	Stock    int
}

// Line is one product in an in-progress sale.
type Line struct {
	Product  Product
	Quantity int
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CostTotal is cost times quantity.
func (l Line) CostTotal() decimal.Decimal {
	return l.Product.Cost.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Profit is Subtotal minus CostTotal.
func (l Line) Profit() decimal.Decimal {
	return l.Subtotal().Sub(l.CostTotal())
}

// Totals are the derived sums of a cart.
type Totals struct {
	Total     decimal.Decimal
	TotalCost decimal.Decimal
	Profit    decimal.Decimal
	Units     int
}

// Cart is an ordered set of lines keyed by product id. The zero value is an
// empty cart. A Cart is not safe for concurrent use.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart { return &Cart{} }

func (c *Cart) index(productID uint) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// AddLine adds one unit of p. An existing line is incremented, bounded by
// its stock; a new line starts at quantity 1.
func (c *Cart) AddLine(p Product) error {
	if i := c.index(p.ID); i >= 0 {
		l := &c.lines[i]
		if l.Quantity+1 > l.Product.Stock {
			return &StockError{ProductID: p.ID, Name: l.Product.Name, Requested: l.Quantity + 1, Available: l.Product.Stock}
		}
		l.Quantity++
		return nil
	}
	if p.Stock < 1 {
		return &StockError{ProductID: p.ID, Name: p.Name, Requested: 1, Available: p.Stock}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
	return nil
}

// UpdateQuantity sets the quantity of a line. Zero removes the line; values
// above stock are rejected and leave the cart unchanged.
func (c *Cart) UpdateQuantity(productID uint, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	i := c.index(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty == 0 {
		c.RemoveLine(productID)
		return nil
	}
	l := &c.lines[i]
	if qty > l.Product.Stock {
		return &StockError{ProductID: productID, Name: l.Product.Name, Requested: qty, Available: l.Product.Stock}
	}
	l.Quantity = qty
	return nil
}

// RemoveLine deletes the line for productID if present.
func (c *Cart) RemoveLine(productID uint) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for productID.
func (c *Cart) Line(productID uint) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Cart) Len() int      { return len(c.lines) }
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Clear drops every line.
func (c *Cart) Clear() { c.lines = nil }

// Totals sums the cart. Decimal addition is exact, so the result does not
// depend on line order.
func (c *Cart) Totals() Totals {
	t := Totals{Total: decimal.Zero, TotalCost: decimal.Zero}
	for _, l := range c.lines {
		t.Total = t.Total.Add(l.Subtotal())
		t.TotalCost = t.TotalCost.Add(l.CostTotal())
		t.Units += l.Quantity
	}
	t.Profit = t.Total.Sub(t.TotalCost)
	return t
}
