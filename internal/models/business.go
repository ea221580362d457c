package models

// Business is the tenant every other row belongs to.
type Business struct {
	Base
	Name    string `gorm:"uniqueIndex;not null" json:"business_name"`
	Address string `json:"business_address"`
	Phone   string `json:"business_phone"`
	Email   string `json:"business_email"`
}
