package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Base holds the columns every table shares.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func init() {
	// clients read prices as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// All lists every model for migrations.
func All() []any {
	return []any{&Business{}, &User{}, &Product{}, &Sale{}, &SaleItem{}}
}
