package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizmanager/internal/models"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// SaleLine asks for Quantity units of a product.
type SaleLine struct {
	ProductID uint
	Quantity  int
}

// StockError names the product that could not cover its line.
type StockError struct {
	ProductID uint
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: %d requested, %d available", e.Name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// MergeLines sums duplicate products and orders lines by product id, which
// is also the order rows are locked in.
func MergeLines(lines []SaleLine) ([]SaleLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptySale
	}
	qty := map[uint]int{}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, ErrInvalidQuantity)
		}
		qty[l.ProductID] += l.Quantity
	}
	out := make([]SaleLine, 0, len(qty))
	for id, q := range qty {
		out = append(out, SaleLine{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// priceLine checks stock, decrements p and returns the sold item priced
// from p.
func priceLine(p *models.Product, l SaleLine) (models.SaleItem, error) {
	if p.Quantity < l.Quantity {
		return models.SaleItem{}, &StockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity, Available: p.Quantity}
	}
	p.Quantity -= l.Quantity
	q := decimal.NewFromInt(int64(l.Quantity))
	total := p.Price.Mul(q)
	return models.SaleItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Category:    p.Category,
		Quantity:    l.Quantity,
		UnitPrice:   p.Price,
		UnitCost:    p.CostPrice,
		TotalPrice:  total,
		Profit:      total.Sub(p.CostPrice.Mul(q)),
	}, nil
}

func summarize(sale *models.Sale) {
	sale.Total, sale.Profit = decimal.Zero, decimal.Zero
	for _, it := range sale.Items {
		sale.Total = sale.Total.Add(it.TotalPrice)
		sale.Profit = sale.Profit.Add(it.Profit)
	}
	sale.TotalCost = sale.Total.Sub(sale.Profit)
}

// RecordSale writes a sale and decrements stock in one transaction. Either
// every line is recorded or none is.
func (s *Store) RecordSale(ctx context.Context, businessID, userID uint, lines []SaleLine) (*models.Sale, error) {
	merged, err := MergeLines(lines)
	if err != nil {
		return nil, err
	}

	sale := &models.Sale{BusinessID: businessID, UserID: userID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range merged {
			var p models.Product
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND business_id = ?", l.ProductID, businessID).
				First(&p).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %d: %w", l.ProductID, ErrUnknownProduct)
			}
			if err != nil {
				return err
			}
			item, err := priceLine(&p, l)
			if err != nil {
				return err
			}
			if err := tx.Model(&p).Update("quantity", p.Quantity).Error; err != nil {
				return err
			}
			sale.Items = append(sale.Items, item)
		}
		summarize(sale)
		return tx.Create(sale).Error
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrUnknownProduct) {
			return nil, err
		}
		return nil, translate(err, "record sale")
	}
	return sale, nil
}

// SaleFilter narrows sale item queries. Zero times are unbounded.
type SaleFilter struct {
	From     time.Time
	To       time.Time
	Category string
	Page
}

// SaleItems returns the matching sold lines, newest first, with the total
// match count.
func (s *Store) SaleItems(ctx context.Context, businessID uint, f SaleFilter) ([]models.SaleItem, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.SaleItem{}).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.business_id = ?", businessID)
	if !f.From.IsZero() {
		q = q.Where("sale_items.created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("sale_items.created_at <= ?", f.To)
	}
	if f.Category != "" {
		q = q.Where("sale_items.category = ?", f.Category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count sale items")
	}
	var items []models.SaleItem
	err := f.Page.apply(q).Select("sale_items.*").Order("sale_items.created_at desc, sale_items.id").Find(&items).Error
	if err != nil {
		return nil, 0, translate(err, "list sale items")
	}
	return items, total, nil
}
