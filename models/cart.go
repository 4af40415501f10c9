package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the mutable per-owner shopping cart. Exactly one cart exists
// per owner; checkout empties it but never deletes the row.
type Cart struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerID   string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func (c *Cart) TableName() string {
	return "carts"
}

// TotalItems returns the sum of item quantities. Items must be loaded.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice returns the live-priced cart total. Items and their
// products must be loaded; the result tracks current catalog prices,
// unlike an order total which is frozen.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// CartItem is one (product, quantity) line. The composite unique index
// guarantees at most one line per product in a cart; adding the same
// product again increments the quantity instead.
type CartItem struct {
	ID        uint    `gorm:"primaryKey"`
	CartID    uint    `gorm:"uniqueIndex:idx_cart_items_cart_product;not null"`
	ProductID uint    `gorm:"uniqueIndex:idx_cart_items_cart_product;not null"`
	Product   Product `gorm:"foreignKey:ProductID"`
	Quantity  int     `gorm:"not null"`
}

func (i *CartItem) TableName() string {
	return "cart_items"
}
