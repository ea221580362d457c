package models

import "github.com/shopspring/decimal"

// Product is one inventory item of a business.
type Product struct {
	Base
	BusinessID  uint            `gorm:"index;not null" json:"business_id"`
	Name        string          `gorm:"not null" json:"name"`
	Category    string          `gorm:"index" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CostPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"cost_price"`
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`
}
