package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the snapshot of a completed sale, used for print and export.
type Receipt struct {
	SaleID   uint
	Lines    []Line
	Total    decimal.Decimal
	Profit   decimal.Decimal
	IssuedAt time.Time
}

// Units is the number of items sold.
func (r Receipt) Units() int {
	n := 0
	for _, l := range r.Lines {
		n += l.Quantity
	}
	return n
}

// Text renders the receipt as fixed-width plain text.
func (r Receipt) Text(businessName string) string {
	const width = 40
	var b strings.Builder
	center := func(s string) {
		pad := (width - len(s)) / 2
		if pad < 0 {
			pad = 0
		}
		b.WriteString(strings.Repeat(" ", pad) + s + "\n")
	}

	center(businessName)
	center("Date: " + r.IssuedAt.Format("2006-01-02 15:04:05"))
	if r.SaleID != 0 {
		center(fmt.Sprintf("Sale #%d", r.SaleID))
	}
	b.WriteString(strings.Repeat("-", width) + "\n")
	for _, l := range r.Lines {
		left := fmt.Sprintf("%s x%d", l.Product.Name, l.Quantity)
		right := "$" + l.Subtotal().StringFixed(2)
		gap := width - len(left) - len(right)
		if gap < 1 {
			gap = 1
		}
		b.WriteString(left + strings.Repeat(" ", gap) + right + "\n")
	}
	b.WriteString(strings.Repeat("-", width) + "\n")
	total := "$" + r.Total.StringFixed(2)
	gap := width - len("Total:") - len(total)
	if gap < 1 {
		gap = 1
	}
	b.WriteString("Total:" + strings.Repeat(" ", gap) + total + "\n\n")
	center("Thank you for your purchase!")
	return b.String()
}
