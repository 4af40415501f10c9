package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ErrInvalidTransition is returned when an order status change is not
// allowed by the transition table.
var ErrInvalidTransition = errors.New("invalid order status transition")

// transitions maps each status to the statuses reachable from it.
// delivered and cancelled are terminal; cancellation is only possible
// while the order is still pending.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// CanTransitionTo reports whether next is reachable from s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus maps a request string to a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// PaymentMethods lists the accepted payment method values.
var PaymentMethods = []string{"Credit Card", "PayPal"}

func ValidPaymentMethod(s string) bool {
	for _, m := range PaymentMethods {
		if m == s {
			return true
		}
	}
	return false
}

// Order is created atomically with its items at checkout and is
// immutable afterwards except for Status and UpdatedAt.
type Order struct {
	ID              uint   `gorm:"primaryKey"`
	OwnerID         string `gorm:"index;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ShippingAddress string      `gorm:"not null"`
	PhoneNumber     string      `gorm:"size:15"`
	PaymentMethod   string      `gorm:"size:50"`
	Status          OrderStatus `gorm:"type:varchar(20);default:'pending'"`
	Items           []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *Order) TableName() string {
	return "orders"
}

// TotalItems returns the sum of item quantities. Items must be loaded.
func (o *Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums the stored line prices, so historical totals are
// unaffected by later catalog edits.
func (o *Order) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// OrderItem is one (product, quantity, price) line. Price is copied
// from the product at the instant the order is created and is never
// re-read from the catalog afterwards.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"index;not null"`
	ProductID uint            `gorm:"not null"`
	Product   Product         `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

func (i *OrderItem) TableName() string {
	return "order_items"
}

// LineTotal is the stored unit price times the quantity.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
