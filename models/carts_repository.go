package models

import (
	"errors"

	"gorm.io/gorm"
)

// ErrCartItemNotFound is returned when a cart line does not exist or
// does not belong to the caller's cart.
var ErrCartItemNotFound = errors.New("cart item not found")

// ErrInvalidQuantity is returned when an add uses a non-positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

type CartsRepository struct {
	db *gorm.DB
}

func NewCartsRepository(db *gorm.DB) *CartsRepository {
	return &CartsRepository{
		db: db,
	}
}

// Get returns the owner's cart with items and their products loaded,
// creating the cart lazily on first access. The unique index on
// owner_id makes this idempotent: a concurrent first request may win
// the insert, in which case we fall back to fetching its row.
func (r *CartsRepository) Get(ownerID string) (*Cart, error) {
	var cart Cart
	err := r.db.Preload("Items.Product").Where("owner_id = ?", ownerID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = Cart{OwnerID: ownerID}
	if err := r.db.Create(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing Cart
			if err := r.db.Preload("Items.Product").Where("owner_id = ?", ownerID).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &cart, nil
}

// AddItem merges quantity into the owner's line for the product, or
// inserts a new line. The increment is a single UPDATE so two
// concurrent adds cannot lose each other's quantity.
func (r *CartsRepository) AddItem(ownerID string, productID uint, quantity int) (*CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var product Product
	if err := r.db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	cart, err := r.Get(ownerID)
	if err != nil {
		return nil, err
	}

	if err := r.mergeItem(cart.ID, productID, quantity); err != nil {
		return nil, err
	}

	var item CartItem
	if err := r.db.Preload("Product").
		Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CartsRepository) mergeItem(cartID, productID uint, quantity int) error {
	res := r.db.Model(&CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	item := CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
	if err := r.db.Create(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent add inserted the line between our UPDATE and
			// INSERT; fold our quantity into it.
			return r.db.Model(&CartItem{}).
				Where("cart_id = ? AND product_id = ?", cartID, productID).
				UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error
		}
		return err
	}
	return nil
}

// SetItemQuantity updates a line's quantity; zero or below deletes the
// line, so a negative quantity is never observable. The returned item
// is nil when the line was deleted.
func (r *CartsRepository) SetItemQuantity(ownerID string, itemID uint, quantity int) (*CartItem, error) {
	var item CartItem
	err := r.db.
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.owner_id = ?", itemID, ownerID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	if quantity <= 0 {
		if err := r.db.Delete(&CartItem{}, item.ID).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := r.db.Model(&CartItem{}).Where("id = ?", item.ID).
		UpdateColumn("quantity", quantity).Error; err != nil {
		return nil, err
	}

	var updated CartItem
	if err := r.db.Preload("Product").First(&updated, item.ID).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// Clear deletes all lines from the owner's cart. The cart row itself
// persists for reuse. A missing cart is treated as already empty.
func (r *CartsRepository) Clear(ownerID string) error {
	var cart Cart
	if err := r.db.Where("owner_id = ?", ownerID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return r.db.Where("cart_id = ?", cart.ID).Delete(&CartItem{}).Error
}
