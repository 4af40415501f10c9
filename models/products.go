package models

import (
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog.
// Price is the live price and changes over time; orders copy it into
// their own lines at checkout instead of referencing it.
type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"not null"`
	Description string
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CategoryID  uint            `gorm:"not null"`
	Category    Category        `gorm:"foreignKey:CategoryID"`
	ImageRef    string
}

func (p *Product) TableName() string {
	return "products"
}
