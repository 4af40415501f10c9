package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

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
	ID              uint           `json:"id"`
	Status          string         `json:"status"`
	ShippingAddress string         `json:"shipping_address"`
	PhoneNumber     string         `json:"phone_number"`
	PaymentMethod   string         `json:"payment_method"`
	Items           []ItemResponse `json:"items"`
	TotalItems      int            `json:"total_items"`
	TotalPrice      float64        `json:"total_price"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type ListResponse struct {
	Total  int        `json:"total"`
	Orders []Response `json:"orders"`
}

type OrderStore interface {
	PlaceOrder(ownerID string, details models.CheckoutDetails) (*models.Order, error)
	UpdateStatus(ownerID string, orderID uint, next models.OrderStatus) (*models.Order, error)
	ListByOwner(ownerID string) ([]models.Order, error)
	GetByID(ownerID string, orderID uint) (*models.Order, error)
}

type OrdersHandler struct {
	orders OrderStore
	logger *zap.Logger
}

func NewOrdersHandler(orders OrderStore, logger *zap.Logger) *OrdersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrdersHandler{orders: orders, logger: logger}
}

// authOwner rejects anonymous sessions. Orders need a durable owner
// identity, so session carts must sign in before checking out.
func (h *OrdersHandler) authOwner(w http.ResponseWriter, r *http.Request) (auth.Owner, bool) {
	owner, ok := auth.FromContext(r.Context())
	if !ok || !owner.Authenticated {
		api.Error(w, http.StatusUnauthorized, "authentication required")
		return auth.Owner{}, false
	}
	return owner, true
}

func (h *OrdersHandler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authOwner(w, r)
	if !ok {
		return
	}

	var input struct {
		ShippingAddress string `json:"shipping_address"`
		PhoneNumber     string `json:"phone_number"`
		PaymentMethod   string `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msg := validateCheckout(input.ShippingAddress, input.PhoneNumber, input.PaymentMethod); msg != "" {
		api.Error(w, http.StatusBadRequest, msg)
		return
	}

	order, err := h.orders.PlaceOrder(owner.ID, models.CheckoutDetails{
		ShippingAddress: input.ShippingAddress,
		PhoneNumber:     input.PhoneNumber,
		PaymentMethod:   input.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrCartEmpty):
			api.Error(w, http.StatusConflict, "cart is empty")
		case errors.Is(err, models.ErrProductNotFound):
			api.Error(w, http.StatusNotFound, "Product not found")
		default:
			h.logger.Error("place order failed", zap.String("owner_id", owner.ID), zap.Error(err))
			api.Error(w, http.StatusInternalServerError, "failed to place order")
		}
		return
	}

	h.logger.Info("order placed",
		zap.Uint("order_id", order.ID),
		zap.String("owner_id", owner.ID),
		zap.Int("items", order.TotalItems()),
		zap.String("total", order.TotalPrice().StringFixed(2)),
	)
	api.JSON(w, http.StatusCreated, orderResponse(order))
}

func (h *OrdersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authOwner(w, r)
	if !ok {
		return
	}

	list, err := h.orders.ListByOwner(owner.ID)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	resp := ListResponse{Total: len(list), Orders: make([]Response, len(list))}
	for i := range list {
		resp.Orders[i] = orderResponse(&list[i])
	}
	api.JSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authOwner(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		api.Error(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.orders.GetByID(owner.ID, uint(id))
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			api.Error(w, http.StatusNotFound, "order not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to retrieve order")
		return
	}
	api.JSON(w, http.StatusOK, orderResponse(order))
}

func (h *OrdersHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.authOwner(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		api.Error(w, http.StatusNotFound, "order not found")
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	next, err := models.ParseOrderStatus(input.Status)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "unknown order status")
		return
	}

	order, err := h.orders.UpdateStatus(owner.ID, uint(id), next)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			api.Error(w, http.StatusNotFound, "order not found")
		case errors.Is(err, models.ErrInvalidTransition):
			api.Error(w, http.StatusConflict, "invalid status transition")
		case errors.Is(err, models.ErrStatusConflict):
			api.Error(w, http.StatusConflict, "order status changed concurrently")
		default:
			api.Error(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}

	h.logger.Info("order status updated",
		zap.Uint("order_id", order.ID),
		zap.String("status", string(order.Status)),
	)
	api.JSON(w, http.StatusOK, orderResponse(order))
}

func validateCheckout(address, phone, payment string) string {
	if address == "" {
		return "shipping_address is required"
	}
	if !validPhone(phone) {
		return "phone_number must be 7 to 15 digits"
	}
	if !models.ValidPaymentMethod(payment) {
		return "unsupported payment method"
	}
	return ""
}

// validPhone accepts digits with optional +, -, and space separators,
// capped at the 15 characters the column stores.
func validPhone(phone string) bool {
	if len(phone) < 7 || len(phone) > 15 {
		return false
	}
	digits := 0
	for _, c := range phone {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '+' || c == '-' || c == ' ':
		default:
			return false
		}
	}
	return digits >= 7
}

func orderResponse(order *models.Order) Response {
	items := make([]ItemResponse, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		items[i] = ItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			UnitPrice: item.Price.InexactFloat64(),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal().InexactFloat64(),
		}
	}
	return Response{
		ID:              order.ID,
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		PhoneNumber:     order.PhoneNumber,
		PaymentMethod:   order.PaymentMethod,
		Items:           items,
		TotalItems:      order.TotalItems(),
		TotalPrice:      order.TotalPrice().InexactFloat64(),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
