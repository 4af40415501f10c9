package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decommerce/storefront-api/app/auth"
	"github.com/decommerce/storefront-api/models"
)

type MockOrderStore struct {
	Order  *models.Order
	Orders []models.Order
	Err    error

	lastOwnerID string
	lastOrderID uint
	lastStatus  models.OrderStatus
	lastDetails models.CheckoutDetails
	placeCalled bool
}

func (m *MockOrderStore) PlaceOrder(ownerID string, details models.CheckoutDetails) (*models.Order, error) {
	m.lastOwnerID = ownerID
	m.lastDetails = details
	m.placeCalled = true
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

func (m *MockOrderStore) UpdateStatus(ownerID string, orderID uint, next models.OrderStatus) (*models.Order, error) {
	m.lastOwnerID = ownerID
	m.lastOrderID = orderID
	m.lastStatus = next
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

func (m *MockOrderStore) ListByOwner(ownerID string) ([]models.Order, error) {
	m.lastOwnerID = ownerID
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Orders, nil
}

func (m *MockOrderStore) GetByID(ownerID string, orderID uint) (*models.Order, error) {
	m.lastOwnerID = ownerID
	m.lastOrderID = orderID
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:              42,
		OwnerID:         "user-1",
		ShippingAddress: "12 Ocean Drive",
		PhoneNumber:     "+254700111222",
		PaymentMethod:   "Credit Card",
		Status:          models.OrderStatusPending,
		Items: []models.OrderItem{
			{ID: 1, OrderID: 42, ProductID: 1, Quantity: 2, Price: price("10.00"), Product: models.Product{ID: 1, Name: "Mug"}},
			{ID: 2, OrderID: 42, ProductID: 2, Quantity: 1, Price: price("5.00"), Product: models.Product{ID: 2, Name: "Coaster"}},
		},
	}
}

func authedRequest(r *http.Request) *http.Request {
	return r.WithContext(auth.WithOwner(r.Context(), auth.Owner{ID: "user-1", Authenticated: true}))
}

func anonRequest(r *http.Request) *http.Request {
	return r.WithContext(auth.WithOwner(r.Context(), auth.Owner{ID: "sess-1", Authenticated: false}))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["error"]
}

func TestHandlePlace(t *testing.T) {
	validBody := `{"shipping_address": "12 Ocean Drive", "phone_number": "+254700111222", "payment_method": "Credit Card"}`

	tests := []struct {
		name       string
		body       string
		storeErr   error
		wantStatus int
		wantError  string
		wantCalled bool
	}{
		{
			name:       "success",
			body:       validBody,
			wantStatus: http.StatusCreated,
			wantCalled: true,
		},
		{
			name:       "empty cart",
			body:       validBody,
			storeErr:   models.ErrCartEmpty,
			wantStatus: http.StatusConflict,
			wantError:  "cart is empty",
			wantCalled: true,
		},
		{
			name:       "product removed mid-checkout",
			body:       validBody,
			storeErr:   models.ErrProductNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "Product not found",
			wantCalled: true,
		},
		{
			name:       "missing address",
			body:       `{"phone_number": "+254700111222", "payment_method": "PayPal"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "shipping_address is required",
		},
		{
			name:       "phone too long",
			body:       `{"shipping_address": "12 Ocean Drive", "phone_number": "1234567890123456", "payment_method": "PayPal"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "phone_number must be 7 to 15 digits",
		},
		{
			name:       "phone with letters",
			body:       `{"shipping_address": "12 Ocean Drive", "phone_number": "0700-CALL", "payment_method": "PayPal"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "phone_number must be 7 to 15 digits",
		},
		{
			name:       "unknown payment method",
			body:       `{"shipping_address": "12 Ocean Drive", "phone_number": "+254700111222", "payment_method": "Barter"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "unsupported payment method",
		},
		{
			name:       "malformed body",
			body:       `{"shipping_address": `,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON body",
		},
		{
			name:       "store failure",
			body:       validBody,
			storeErr:   errors.New("connection lost"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to place order",
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockOrderStore{Order: sampleOrder(), Err: tt.storeErr}
			handler := NewOrdersHandler(store, nil)

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			req = authedRequest(req)
			rec := httptest.NewRecorder()

			handler.HandlePlace(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, store.placeCalled)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rec))
				return
			}

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, uint(42), resp.ID)
			assert.Equal(t, "pending", resp.Status)
			assert.Equal(t, 3, resp.TotalItems)
			assert.InDelta(t, 25.00, resp.TotalPrice, 0.001)
			assert.Equal(t, "12 Ocean Drive", store.lastDetails.ShippingAddress)
		})
	}
}

func TestHandlePlaceRequiresAuthentication(t *testing.T) {
	store := &MockOrderStore{Order: sampleOrder()}
	handler := NewOrdersHandler(store, nil)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
	req = anonRequest(req)
	rec := httptest.NewRecorder()

	handler.HandlePlace(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication required", errorBody(t, rec))
	assert.False(t, store.placeCalled)
}

func TestHandleList(t *testing.T) {
	store := &MockOrderStore{Orders: []models.Order{*sampleOrder()}}
	handler := NewOrdersHandler(store, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req = authedRequest(req)
	rec := httptest.NewRecorder()

	handler.HandleList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", store.lastOwnerID)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, uint(42), resp.Orders[0].ID)
}

func TestHandleListEmpty(t *testing.T) {
	handler := NewOrdersHandler(&MockOrderStore{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req = authedRequest(req)
	rec := httptest.NewRecorder()

	handler.HandleList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
	assert.Empty(t, resp.Orders)
}

func TestHandleGet(t *testing.T) {
	tests := []struct {
		name       string
		orderID    string
		storeErr   error
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			orderID:    "42",
			wantStatus: http.StatusOK,
		},
		{
			name:       "not found",
			orderID:    "99",
			storeErr:   models.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "order not found",
		},
		{
			name:       "non-numeric id",
			orderID:    "abc",
			wantStatus: http.StatusNotFound,
			wantError:  "order not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockOrderStore{Order: sampleOrder(), Err: tt.storeErr}
			handler := NewOrdersHandler(store, nil)

			req := httptest.NewRequest(http.MethodGet, "/orders/"+tt.orderID, nil)
			req.SetPathValue("id", tt.orderID)
			req = authedRequest(req)
			rec := httptest.NewRecorder()

			handler.HandleGet(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rec))
				return
			}
			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, uint(42), resp.ID)
			require.Len(t, resp.Items, 2)
			assert.InDelta(t, 20.00, resp.Items[0].LineTotal, 0.001)
		})
	}
}

func TestHandleUpdateStatus(t *testing.T) {
	shipped := sampleOrder()
	shipped.Status = models.OrderStatusShipped

	tests := []struct {
		name       string
		body       string
		storeOrder *models.Order
		storeErr   error
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			body:       `{"status": "shipped"}`,
			storeOrder: shipped,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown status",
			body:       `{"status": "teleported"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "unknown order status",
		},
		{
			name:       "invalid transition",
			body:       `{"status": "pending"}`,
			storeErr:   models.ErrInvalidTransition,
			wantStatus: http.StatusConflict,
			wantError:  "invalid status transition",
		},
		{
			name:       "concurrent update",
			body:       `{"status": "shipped"}`,
			storeErr:   models.ErrStatusConflict,
			wantStatus: http.StatusConflict,
			wantError:  "order status changed concurrently",
		},
		{
			name:       "not found",
			body:       `{"status": "shipped"}`,
			storeErr:   models.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "order not found",
		},
		{
			name:       "malformed body",
			body:       `{"status": `,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockOrderStore{Order: tt.storeOrder, Err: tt.storeErr}
			handler := NewOrdersHandler(store, nil)

			req := httptest.NewRequest(http.MethodPatch, "/orders/42/status", strings.NewReader(tt.body))
			req.SetPathValue("id", "42")
			req = authedRequest(req)
			rec := httptest.NewRecorder()

			handler.HandleUpdateStatus(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rec))
				return
			}
			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "shipped", resp.Status)
			assert.Equal(t, models.OrderStatusShipped, store.lastStatus)
		})
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+254700111222", true},
		{"0700 111 222", true},
		{"555-0100-99", true},
		{"1234567", true},
		{"123456", false},
		{"1234567890123456", false},
		{"0700-CALL", false},
		{"++--  ++--", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validPhone(tt.phone), tt.phone)
	}
}
