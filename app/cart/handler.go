package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/decommerce/storefront-api/app/api"
	"github.com/decommerce/storefront-api/app/auth"
	"github.com/decommerce/storefront-api/models"
)

type ItemResponse struct {
	ID        uint    `json:"id"`
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

type Response struct {
	Items      []ItemResponse `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPrice float64        `json:"total_price"`
}

// CartStore is the persistent cart for authenticated owners.
type CartStore interface {
	Get(ownerID string) (*models.Cart, error)
	AddItem(ownerID string, productID uint, quantity int) (*models.CartItem, error)
	SetItemQuantity(ownerID string, itemID uint, quantity int) (*models.CartItem, error)
	Clear(ownerID string) error
}

// SessionCarts holds anonymous carts keyed by session token. Lines are
// keyed by product id, which doubles as the line id in responses.
type SessionCarts interface {
	Lines(token string) map[uint]int
	Add(token string, productID uint, quantity int) int
	Set(token string, productID uint, quantity int) (int, bool)
	Clear(token string)
}

type ProductCatalog interface {
	GetByID(id uint) (*models.Product, error)
}

type CartHandler struct {
	carts    CartStore
	sessions SessionCarts
	catalog  ProductCatalog
}

func NewCartHandler(carts CartStore, sessions SessionCarts, catalog ProductCatalog) *CartHandler {
	return &CartHandler{
		carts:    carts,
		sessions: sessions,
		catalog:  catalog,
	}
}

func (h *CartHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.FromContext(r.Context())
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing owner")
		return
	}

	if !owner.Authenticated {
		api.JSON(w, http.StatusOK, h.sessionResponse(owner.ID))
		return
	}

	cart, err := h.carts.Get(owner.ID)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to fetch cart")
		return
	}
	api.JSON(w, http.StatusOK, cartResponse(cart))
}

func (h *CartHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.FromContext(r.Context())
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing owner")
		return
	}

	var input struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if input.Quantity < 1 {
		api.Error(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	if !owner.Authenticated {
		product, err := h.catalog.GetByID(input.ProductID)
		if err != nil {
			if errors.Is(err, models.ErrProductNotFound) {
				api.Error(w, http.StatusNotFound, "Product not found")
				return
			}
			api.Error(w, http.StatusInternalServerError, "failed to add item")
			return
		}
		quantity := h.sessions.Add(owner.ID, input.ProductID, input.Quantity)
		api.JSON(w, http.StatusOK, sessionItemResponse(product, quantity))
		return
	}

	item, err := h.carts.AddItem(owner.ID, input.ProductID, input.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrProductNotFound):
			api.Error(w, http.StatusNotFound, "Product not found")
		case errors.Is(err, models.ErrInvalidQuantity):
			api.Error(w, http.StatusBadRequest, "quantity must be at least 1")
		default:
			api.Error(w, http.StatusInternalServerError, "failed to add item")
		}
		return
	}
	api.JSON(w, http.StatusOK, itemResponse(item))
}

func (h *CartHandler) HandleSetItemQuantity(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.FromContext(r.Context())
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing owner")
		return
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		api.Error(w, http.StatusNotFound, "cart item not found")
		return
	}

	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if !owner.Authenticated {
		quantity, found := h.sessions.Set(owner.ID, uint(id), input.Quantity)
		if !found {
			api.Error(w, http.StatusNotFound, "cart item not found")
			return
		}
		if quantity <= 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		product, err := h.catalog.GetByID(uint(id))
		if err != nil {
			api.Error(w, http.StatusInternalServerError, "failed to update item")
			return
		}
		api.JSON(w, http.StatusOK, sessionItemResponse(product, quantity))
		return
	}

	item, err := h.carts.SetItemQuantity(owner.ID, uint(id), input.Quantity)
	if err != nil {
		if errors.Is(err, models.ErrCartItemNotFound) {
			api.Error(w, http.StatusNotFound, "cart item not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if item == nil {
		// Quantity dropped to zero; the line is gone.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	api.JSON(w, http.StatusOK, itemResponse(item))
}

func (h *CartHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.FromContext(r.Context())
	if !ok {
		api.Error(w, http.StatusUnauthorized, "missing owner")
		return
	}

	if !owner.Authenticated {
		h.sessions.Clear(owner.ID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.carts.Clear(owner.ID); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func cartResponse(cart *models.Cart) Response {
	items := make([]ItemResponse, len(cart.Items))
	for i := range cart.Items {
		items[i] = itemResponse(&cart.Items[i])
	}
	return Response{
		Items:      items,
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice().InexactFloat64(),
	}
}

func itemResponse(item *models.CartItem) ItemResponse {
	unit := item.Product.Price
	return ItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Name:      item.Product.Name,
		UnitPrice: unit.InexactFloat64(),
		Quantity:  item.Quantity,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(item.Quantity))).InexactFloat64(),
	}
}

func sessionItemResponse(product *models.Product, quantity int) ItemResponse {
	return ItemResponse{
		ID:        product.ID,
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price.InexactFloat64(),
		Quantity:  quantity,
		LineTotal: product.Price.Mul(decimal.NewFromInt(int64(quantity))).InexactFloat64(),
	}
}

// sessionResponse resolves the session lines against the live catalog.
// Lines whose product vanished since being added are not shown.
func (h *CartHandler) sessionResponse(token string) Response {
	lines := h.sessions.Lines(token)

	ids := make([]uint, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	resp := Response{Items: make([]ItemResponse, 0, len(ids))}
	total := decimal.Zero
	for _, id := range ids {
		product, err := h.catalog.GetByID(id)
		if err != nil {
			continue
		}
		item := sessionItemResponse(product, lines[id])
		resp.Items = append(resp.Items, item)
		resp.TotalItems += lines[id]
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(lines[id]))))
	}
	resp.TotalPrice = total.InexactFloat64()
	return resp
}
