package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cityprint/api/internal/payments"
	"github.com/cityprint/api/internal/platform/auth"
	"github.com/cityprint/api/internal/platform/httpx"
	"github.com/cityprint/api/internal/platform/observability"
	"github.com/cityprint/api/internal/repositories"
	"github.com/cityprint/api/internal/services"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Logger   *zap.Logger
	Catalog  services.CatalogService
	Orders   services.OrderService
	Quotes   services.QuoteService
	Health   repositories.HealthRepository
	Customer *auth.Authenticator
	Staff    *auth.StaffVerifier
	Gateway  payments.Gateway

	RequestTimeout time.Duration
}

// NewRouter assembles the chi router with middleware and all route groups.
func NewRouter(deps RouterDeps) (http.Handler, error) {
	if deps.Catalog == nil {
		return nil, errors.New("router: catalog service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("router: order service is required")
	}
	if deps.Quotes == nil {
		return nil, errors.New("router: quote service is required")
	}
	if deps.Health == nil {
		return nil, errors.New("router: health repository is required")
	}
	if deps.Customer == nil {
		return nil, errors.New("router: customer authenticator is required")
	}
	if deps.Staff == nil {
		return nil, errors.New("router: staff verifier is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	requestTimeout := deps.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	healthHandler := NewHealthHandler(deps.Health)
	productHandler := NewProductHandler(deps.Catalog)
	orderHandler := NewOrderHandler(deps.Orders, deps.Gateway)
	adminOrderHandler := NewAdminOrderHandler(deps.Orders)
	quoteHandler := NewQuoteHandler(deps.Quotes)
	webhookHandler := NewWebhookHandler(deps.Orders, deps.Gateway)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.InjectLoggerMiddleware(logger))
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Use(deps.Customer.OptionalCustomerAuth())
			r.Get("/", productHandler.List)
			r.Get("/{productID}", productHandler.Get)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(deps.Customer.RequireCustomerAuth())
			r.Post("/", orderHandler.Create)
			r.Get("/", orderHandler.List)
			r.Get("/{orderID}", orderHandler.Get)
			r.Post("/{orderID}/payment/verify", orderHandler.VerifyPayment)
		})

		r.Route("/quotes", func(r chi.Router) {
			r.With(deps.Customer.OptionalCustomerAuth()).Post("/", quoteHandler.Create)
			r.With(deps.Customer.RequireCustomerAuth()).Get("/{quoteID}", quoteHandler.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.Staff.RequireStaffAuth())

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", adminOrderHandler.List)
				r.Post("/bulk/status", adminOrderHandler.BulkTransition)
				r.Get("/{orderID}", adminOrderHandler.Get)
				r.Post("/{orderID}/status", adminOrderHandler.Transition)
				r.Post("/{orderID}/cancel", adminOrderHandler.Cancel)
			})

			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", quoteHandler.AdminList)
				r.Post("/{quoteID}/respond", quoteHandler.AdminRespond)
				r.Post("/{quoteID}/close", quoteHandler.AdminClose)
			})
		})

		r.Post("/webhooks/razorpay", webhookHandler.Razorpay)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "route not found", http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(r.Context(), w, httpx.NewError("validation_error", "method not allowed", http.StatusMethodNotAllowed))
	})

	return r, nil
}
