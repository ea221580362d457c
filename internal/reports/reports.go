// Package reports aggregates recorded sale items and inventory into the
// summaries served under /sales and /products/summary.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bizmanager/internal/models"
)

// Row is one sold product line, flattened for the sales history table.
type Row struct {
	SaleID         uint            `json:"sale_id"`
	Date           time.Time       `json:"date"`
	ProductName    string          `json:"product_name"`
	Category       string          `json:"category"`
	QuantitySold   int             `json:"quantity_sold"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	TotalCostPrice decimal.Decimal `json:"total_cost_price"`
	Profit         decimal.Decimal `json:"profit"`
}

// Rows flattens items, newest first.
func Rows(items []models.SaleItem) []Row {
	rows := make([]Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, Row{
			SaleID:         it.SaleID,
			Date:           it.CreatedAt,
			ProductName:    it.ProductName,
			Category:       it.Category,
			QuantitySold:   it.Quantity,
			TotalPrice:     it.TotalPrice,
			TotalCostPrice: it.TotalPrice.Sub(it.Profit),
			Profit:         it.Profit,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
	return rows
}

// Daily is the revenue of one calendar day.
type Daily struct {
	Date         string          `json:"date"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	Transactions int             `json:"transactions"`
}

// DailySummary sums the items that fall on day (in day's location).
func DailySummary(day time.Time, items []models.SaleItem) Daily {
	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)
	d := Daily{Date: start.Format("2006-01-02"), Revenue: decimal.Zero, Cost: decimal.Zero, Profit: decimal.Zero}
	sales := map[uint]struct{}{}
	for _, it := range items {
		at := it.CreatedAt.In(day.Location())
		if at.Before(start) || !at.Before(end) {
			continue
		}
		d.Revenue = d.Revenue.Add(it.TotalPrice)
		d.Profit = d.Profit.Add(it.Profit)
		sales[it.SaleID] = struct{}{}
	}
	d.Cost = d.Revenue.Sub(d.Profit)
	d.Transactions = len(sales)
	return d
}

// Month is one point of the yearly series.
type Month struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Profit  decimal.Decimal `json:"profit"`
}

// MonthlySeries returns twelve entries, January to December of year.
func MonthlySeries(year int, loc *time.Location, items []models.SaleItem) []Month {
	out := make([]Month, 12)
	for i := range out {
		out[i] = Month{
			Month:   time.Month(i + 1).String()[:3],
			Revenue: decimal.Zero,
			Cost:    decimal.Zero,
			Profit:  decimal.Zero,
		}
	}
	for _, it := range items {
		at := it.CreatedAt.In(loc)
		if at.Year() != year {
			continue
		}
		m := &out[at.Month()-1]
		m.Revenue = m.Revenue.Add(it.TotalPrice)
		m.Profit = m.Profit.Add(it.Profit)
		m.Cost = m.Revenue.Sub(m.Profit)
	}
	return out
}

// Profit is the profit/loss summary of a period. Margin is a percentage of
// revenue rounded to two places, zero when there is no revenue.
type Profit struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
	Margin   decimal.Decimal `json:"margin"`
}

func ProfitSummary(items []models.SaleItem) Profit {
	p := Profit{Revenue: decimal.Zero, Profit: decimal.Zero, Margin: decimal.Zero}
	for _, it := range items {
		p.Revenue = p.Revenue.Add(it.TotalPrice)
		p.Profit = p.Profit.Add(it.Profit)
	}
	p.Expenses = p.Revenue.Sub(p.Profit)
	if !p.Revenue.IsZero() {
		p.Margin = p.Profit.Div(p.Revenue).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return p
}

// LowStock is a product at or below the reorder threshold.
type LowStock struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Inventory summarizes the catalog of a business.
type Inventory struct {
	TotalProducts   int             `json:"totalProducts"`
	TotalCategories int             `json:"totalCategories"`
	TotalUnits      int             `json:"totalUnits"`
	StockValue      decimal.Decimal `json:"stockValue"`
	LowStock        []LowStock      `json:"lowStock"`
}

// DefaultLowStock is the reorder threshold used by the summary endpoint.
const DefaultLowStock = 5

// InventorySummary counts products and distinct non-empty categories and
// values the stock at cost.
func InventorySummary(products []models.Product, threshold int) Inventory {
	inv := Inventory{StockValue: decimal.Zero, LowStock: []LowStock{}}
	cats := map[string]struct{}{}
	for _, p := range products {
		inv.TotalProducts++
		inv.TotalUnits += p.Quantity
		inv.StockValue = inv.StockValue.Add(p.CostPrice.Mul(decimal.NewFromInt(int64(p.Quantity))))
		if p.Category != "" {
			cats[p.Category] = struct{}{}
		}
		if p.Quantity <= threshold {
			inv.LowStock = append(inv.LowStock, LowStock{ID: p.ID, Name: p.Name, Quantity: p.Quantity})
		}
	}
	inv.TotalCategories = len(cats)
	sort.Slice(inv.LowStock, func(i, j int) bool { return inv.LowStock[i].Quantity < inv.LowStock[j].Quantity })
	return inv
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
