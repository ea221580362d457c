// Package events announces recorded sales to downstream consumers
// (warehouse, accounting) over a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bizmanager/internal/models"
)

// SaleRecorded is published once a sale has been committed.
type SaleRecorded struct {
	SaleID     uint            `json:"sale_id"`
	BusinessID uint            `json:"business_id"`
	UserID     uint            `json:"user_id"`
	Total      decimal.Decimal `json:"total"`
	Profit     decimal.Decimal `json:"profit"`
	Items      []SaleLine      `json:"items"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// SaleLine is one product of a recorded sale.
type SaleLine struct {
	ProductID    uint `json:"product_id"`
	QuantitySold int  `json:"quantity_sold"`
}

// FromSale builds the event for s.
func FromSale(s *models.Sale) SaleRecorded {
	ev := SaleRecorded{
		SaleID:     s.ID,
		BusinessID: s.BusinessID,
		UserID:     s.UserID,
		Total:      s.Total,
		Profit:     s.Profit,
		RecordedAt: s.CreatedAt,
		Items:      make([]SaleLine, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		ev.Items = append(ev.Items, SaleLine{ProductID: it.ProductID, QuantitySold: it.Quantity})
	}
	return ev
}

// Key partitions events by business.
func (e SaleRecorded) Key() string {
	return fmt.Sprintf("sale-recorded-%d", e.BusinessID)
}

func (e SaleRecorded) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sale event: %w", err)
	}
	return body, nil
}

// Publisher delivers sale events.
type Publisher interface {
	PublishSale(ctx context.Context, ev SaleRecorded) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishSale(context.Context, SaleRecorded) error { return nil }
func (Nop) Close() error                                    { return nil }
