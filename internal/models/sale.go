package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a finalized transaction. Totals are computed by the server at write time.
type Sale struct {
	Base
	BusinessID uint            `gorm:"index;not null" json:"business_id"`
	UserID     uint            `gorm:"index" json:"user_id"`
	Total      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	TotalCost  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_cost"`
	Profit     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"profit"`
	Items      []SaleItem      `json:"items"`
}

// SaleItem captures one product line with the prices in force when it was sold.
type SaleItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleID      uint            `gorm:"index;not null" json:"sale_id"`
	ProductID   uint            `gorm:"index;not null" json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `gorm:"index" json:"category"`
	Quantity    int             `gorm:"not null" json:"quantity_sold"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	UnitCost    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_cost"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	Profit      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"profit"`
	CreatedAt   time.Time       `json:"created_at"`
}
