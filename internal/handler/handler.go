// Package handler exposes the order, task and balance operations over HTTP.
package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/set-night/boostly/internal/config"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/middleware"
	"github.com/set-night/boostly/internal/service"
)

// CatalogLister lists the purchasable services.
type CatalogLister interface {
	Services() []domain.ServiceDefinition
}

// Handler holds all dependencies needed by the HTTP handlers.
type Handler struct {
	cfg        *config.Config
	orders     *service.OrderService
	tasks      *service.TaskService
	ledger     *service.LedgerService
	payments   *service.PaymentVerifier
	catalog    CatalogLister
	rateLimits middleware.RateLimitStore
	ping       func(ctx context.Context) error
	now        func() time.Time
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg        *config.Config
	Orders     *service.OrderService
	Tasks      *service.TaskService
	Ledger     *service.LedgerService
	Payments   *service.PaymentVerifier
	Catalog    CatalogLister
	RateLimits middleware.RateLimitStore
	// Ping reports storage health. Optional.
	Ping func(ctx context.Context) error
	// Now defaults to time.Now.
	Now func() time.Time
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		cfg:        deps.Cfg,
		orders:     deps.Orders,
		tasks:      deps.Tasks,
		ledger:     deps.Ledger,
		payments:   deps.Payments,
		catalog:    deps.Catalog,
		rateLimits: deps.RateLimits,
		ping:       deps.Ping,
		now:        now,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.health)
	r.GET("/catalog", h.listCatalog)
	r.POST("/payments/callback", h.paymentCallback)

	api := r.Group("/",
		middleware.Auth(h.cfg.APITokens, h.cfg.IsAdmin),
		middleware.RateLimit(h.rateLimits, h.cfg.RateLimitPerMinute, h.now),
	)

	api.POST("/order", h.createOrder)
	api.POST("/order/bulk", h.createBulkOrder)
	api.POST("/order/quote", h.quoteOrder)
	api.GET("/order/:id", h.getOrder)
	api.POST("/order/:id/repeat", h.repeatOrder)
	api.POST("/order/:id/report", h.reportIssue)
	api.POST("/order/:id/cancel", h.cancelOrder)
	api.POST("/order/:id/delivered", middleware.AdminOnly(), h.markDelivered)

	api.GET("/tasks/available", h.listAvailableTasks)
	api.POST("/tasks/:id/execute", h.executeTask)

	api.GET("/balance", h.getBalance)
}
