package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/decommerce/storefront-api/app/auth"
	"github.com/decommerce/storefront-api/app/cart"
	"github.com/decommerce/storefront-api/app/catalog"
	"github.com/decommerce/storefront-api/app/categories"
	"github.com/decommerce/storefront-api/app/orders"
	"github.com/decommerce/storefront-api/app/session"
	"github.com/decommerce/storefront-api/metrics"
	"github.com/decommerce/storefront-api/models"
)

type route struct {
	pattern string
	handler http.HandlerFunc
}

// newRouter wires repositories, handlers and middleware onto a mux.
// sessions is shared with the caller so it can run the expiry sweeper.
func newRouter(db *gorm.DB, sessions *session.Store, jwtSecret []byte, logger *zap.Logger) http.Handler {
	productsRepo := models.NewProductsRepository(db)
	categoriesRepo := models.NewCategoriesRepository(db)
	cartsRepo := models.NewCartsRepository(db)
	ordersRepo := models.NewOrdersRepository(db)

	catalogHandler := catalog.NewCatalogHandler(productsRepo)
	categoriesHandler := categories.NewCategoryHandler(categoriesRepo)
	cartHandler := cart.NewCartHandler(cartsRepo, sessions, productsRepo)
	ordersHandler := orders.NewOrdersHandler(ordersRepo, logger)

	serverMetrics := metrics.NewServerMetrics("api")

	routes := []route{
		{"GET /health", handleHealth},
		{"GET /categories", categoriesHandler.HandleGetAll},
		{"POST /categories", categoriesHandler.HandleCreate},
		{"GET /products", catalogHandler.HandleGet},
		{"GET /products/{id}", catalogHandler.HandleGetProduct},
		{"GET /cart", cartHandler.HandleGet},
		{"POST /cart/items", cartHandler.HandleAddItem},
		{"PUT /cart/items/{id}", cartHandler.HandleSetItemQuantity},
		{"DELETE /cart", cartHandler.HandleClear},
		{"POST /orders", ordersHandler.HandlePlace},
		{"GET /orders", ordersHandler.HandleList},
		{"GET /orders/{id}", ordersHandler.HandleGet},
		{"PATCH /orders/{id}/status", ordersHandler.HandleUpdateStatus},
	}

	mux := http.NewServeMux()
	for _, r := range routes {
		mux.Handle(r.pattern, serverMetrics.Instrument(r.pattern, r.handler))
	}
	mux.Handle("GET /metrics", serverMetrics.Handler())

	return requestLogger(logger)(auth.Middleware(jwtSecret)(mux))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status": "ok"}`))
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
