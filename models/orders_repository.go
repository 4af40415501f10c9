package models

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCartEmpty is returned when checkout finds no lines to convert.
var ErrCartEmpty = errors.New("cart is empty")

// ErrOrderNotFound is returned when an order does not exist or is not
// owned by the caller. Ownership misses look identical to missing rows
// so order ids cannot be probed.
var ErrOrderNotFound = errors.New("order not found")

// ErrStatusConflict is returned when a concurrent writer changed the
// order status between our check and our update.
var ErrStatusConflict = errors.New("order status changed concurrently")

// CheckoutDetails carries the shipping and payment fields captured on
// the order at checkout.
type CheckoutDetails struct {
	ShippingAddress string
	PhoneNumber     string
	PaymentMethod   string
}

type OrdersRepository struct {
	db *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		db: db,
	}
}

// PlaceOrder converts the owner's cart lines into a new pending order
// inside a single transaction.
//
// Deleting the cart lines with RETURNING is the serialization point:
// of two concurrent checkouts for the same owner, only one gets a
// non-empty result set; the other fails with ErrCartEmpty and no order
// is created. Product prices are read here, inside the transaction,
// never from when the line entered the cart. A product that vanished
// from the catalog since then aborts the whole transaction, rolling the
// cart lines back.
func (r *OrdersRepository) PlaceOrder(ownerID string, details CheckoutDetails) (*Order, error) {
	var order Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var cart Cart
		if err := tx.Where("owner_id = ?", ownerID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartEmpty
			}
			return err
		}

		var lines []CartItem
		if err := tx.Clauses(clause.Returning{}).
			Where("cart_id = ?", cart.ID).
			Delete(&lines).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrCartEmpty
		}

		items := make([]OrderItem, 0, len(lines))
		for _, line := range lines {
			var product Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrProductNotFound, line.ProductID)
				}
				return err
			}
			items = append(items, OrderItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
		}

		order = Order{
			OwnerID:         ownerID,
			Status:          OrderStatusPending,
			ShippingAddress: details.ShippingAddress,
			PhoneNumber:     details.PhoneNumber,
			PaymentMethod:   details.PaymentMethod,
			Items:           items,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ownerID, order.ID)
}

// UpdateStatus applies one transition of the order status state
// machine. The UPDATE carries the previously observed status in its
// WHERE clause, so a racing writer makes it match zero rows instead of
// being silently overwritten.
func (r *OrdersRepository) UpdateStatus(ownerID string, orderID uint, next OrderStatus) (*Order, error) {
	var order Order
	if err := r.db.Where("id = ? AND owner_id = ?", orderID, ownerID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	res := r.db.Model(&Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", next)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStatusConflict
	}

	return r.GetByID(ownerID, orderID)
}

// ListByOwner returns the owner's orders, newest first, with items and
// their products loaded.
func (r *OrdersRepository) ListByOwner(ownerID string) ([]Order, error) {
	var orders []Order
	if err := r.db.
		Preload("Items.Product").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrdersRepository) GetByID(ownerID string, orderID uint) (*Order, error) {
	var order Order
	if err := r.db.
		Preload("Items.Product").
		Where("id = ? AND owner_id = ?", orderID, ownerID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}
