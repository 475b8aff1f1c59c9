package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/payments"
	"github.com/cityprint/api/internal/platform/auth"
	"github.com/cityprint/api/internal/platform/httpx"
	"github.com/cityprint/api/internal/repositories"
	"github.com/cityprint/api/internal/services"
)

// OrderHandler serves the customer-facing order endpoints.
type OrderHandler struct {
	orders  services.OrderService
	gateway payments.Gateway
}

// NewOrderHandler constructs an OrderHandler. The gateway may be nil when
// online payments are not configured.
func NewOrderHandler(orders services.OrderService, gateway payments.Gateway) *OrderHandler {
	return &OrderHandler{orders: orders, gateway: gateway}
}

type createOrderRequest struct {
	Customer customerPayload `json:"customer"`
	Delivery struct {
		Method  string          `json:"method"`
		Address *addressPayload `json:"address,omitempty"`
	} `json:"delivery"`
	Payment struct {
		Method string `json:"method"`
	} `json:"payment"`
	Items []struct {
		ProductID      string                 `json:"productId"`
		VariantID      string                 `json:"variantId,omitempty"`
		Quantity       int                    `json:"quantity"`
		Specifications []specificationPayload `json:"specifications,omitempty"`
	} `json:"items"`
	DiscountAmount int64 `json:"discountAmount,omitempty"`
}

// Create serves POST /api/v1/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		CustomerUID:    identity.UID,
		Customer:       customerFromPayload(req.Customer),
		DeliveryMethod: domain.DeliveryMethod(req.Delivery.Method),
		Address:        addressFromPayload(req.Delivery.Address),
		PaymentMethod:  domain.PaymentMethod(req.Payment.Method),
		DiscountAmount: req.DiscountAmount,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.OrderItemInput{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			Specifications: specificationsFromPayload(item.Specifications),
		})
	}

	result, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	response := map[string]any{
		"ok":    true,
		"order": orderToPayload(result.Order),
	}
	if result.ProviderOrder != nil {
		response["providerOrder"] = map[string]any{
			"id":       result.ProviderOrder.ID,
			"amount":   result.ProviderOrder.Amount,
			"currency": result.ProviderOrder.Currency,
		}
	}
	if len(result.Warnings) > 0 {
		response["warnings"] = result.Warnings
	}
	httpx.WriteJSON(w, http.StatusCreated, response)
}

// Get serves GET /api/v1/orders/{orderID}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"), services.OrderReadOptions{
		CustomerUID: identity.UID,
		Staff:       identity.IsStaff(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"order": orderToPayload(order),
	})
}

// List serves GET /api/v1/orders, scoped to the authenticated customer.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	page, err := h.orders.ListOrders(ctx, repositories.OrderListFilter{
		CustomerUID: identity.UID,
		Status:      domain.OrderStatus(r.URL.Query().Get("status")),
		Pagination: domain.Pagination{
			PageSize:  queryInt(r, "pageSize"),
			PageToken: r.URL.Query().Get("pageToken"),
		},
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	orders := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		orders = append(orders, orderToPayload(order))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"orders":        orders,
		"nextPageToken": page.NextPageToken,
	})
}

type verifyPaymentRequest struct {
	OrderID           string `json:"orderId"`
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

// VerifyPayment serves POST /api/v1/orders/{orderID}/payment/verify: the
// storefront posts the checkout completion callback here so the capture is
// recorded against the order.
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}
	if h.gateway == nil {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "online payments are not enabled", http.StatusBadRequest))
		return
	}

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	orderID := chi.URLParam(r, "orderID")

	// Ownership check before touching payment state.
	order, err := h.orders.GetOrder(ctx, orderID, services.OrderReadOptions{
		CustomerUID: identity.UID,
		Staff:       identity.IsStaff(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	// The signature proves the triple is genuine, not that it belongs to this
	// order; the stored provider order id is the binding.
	if order.Payment.ProviderOrderID != nil && *order.Payment.ProviderOrderID != req.RazorpayOrderID {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "payment does not belong to this order", http.StatusBadRequest))
		return
	}

	if err := h.gateway.VerifyCallback(payments.CallbackVerification{
		OrderID:   req.RazorpayOrderID,
		PaymentID: req.RazorpayPaymentID,
		Signature: req.RazorpaySignature,
	}); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "payment signature verification failed", http.StatusUnauthorized))
		return
	}

	order, err = h.orders.ApplyPaymentEvent(ctx, services.PaymentEventCommand{
		OrderID:           orderID,
		Status:            domain.PaymentPaid,
		ProviderOrderID:   req.RazorpayOrderID,
		ProviderPaymentID: req.RazorpayPaymentID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"order": orderToPayload(order),
	})
}
