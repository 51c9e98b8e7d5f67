// Package handler exposes the order core over HTTP: the checkout endpoints
// used by the storefront and the API-key-guarded admin surface.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/banglamart/ordercore/internal/cache"
	"github.com/banglamart/ordercore/internal/domain/coupon"
	"github.com/banglamart/ordercore/internal/domain/order"
	"github.com/banglamart/ordercore/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// RecentOrdersTTL bounds how stale the cached admin order list may get.
	RecentOrdersTTL time.Duration
	// StatsTTL bounds how stale the cached dashboard aggregates may get.
	StatsTTL time.Duration
	// RecentOrdersLimit caps the admin order list size.
	RecentOrdersLimit int
}

// Handler serves the HTTP API, delegating business logic to the order
// service and the domain repositories.
type Handler struct {
	cfg        Config
	products   product.Repository
	orders     *order.Service
	orderStore order.Repository
	coupons    coupon.Repository
	validator  *coupon.Validator
	codeFilter *coupon.CodeFilter
	views      *cache.Cache
}

// New constructs a Handler with the required dependencies.
func New(
	cfg Config,
	products product.Repository,
	orders *order.Service,
	orderStore order.Repository,
	coupons coupon.Repository,
	validator *coupon.Validator,
	codeFilter *coupon.CodeFilter,
	views *cache.Cache,
) *Handler {
	if cfg.RecentOrdersTTL <= 0 {
		cfg.RecentOrdersTTL = 5 * time.Minute
	}
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 10 * time.Minute
	}
	if cfg.RecentOrdersLimit <= 0 {
		cfg.RecentOrdersLimit = 50
	}
	return &Handler{
		cfg:        cfg,
		products:   products,
		orders:     orders,
		orderStore: orderStore,
		coupons:    coupons,
		validator:  validator,
		codeFilter: codeFilter,
		views:      views,
	}
}

// Routes builds the router. The admin subtree is wrapped with the given
// authentication middleware.
func (h *Handler) Routes(adminAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Post("/orders", h.CreateOrder)
		r.Post("/coupons/validate", h.ValidateCoupon)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuth)
		r.Get("/orders", h.ListRecentOrders)
		r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
		r.Get("/stats", h.DashboardStats)
		r.Post("/coupons", h.CreateCoupon)
		r.Patch("/coupons/{code}/active", h.SetCouponActive)
	})

	return r
}
