package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/platform/auth"
	"github.com/cityprint/api/internal/platform/httpx"
	"github.com/cityprint/api/internal/repositories"
	"github.com/cityprint/api/internal/services"
)

// AdminOrderHandler serves the back-office order endpoints. All routes are
// mounted behind staff authentication.
type AdminOrderHandler struct {
	orders services.OrderService
}

// NewAdminOrderHandler constructs an AdminOrderHandler.
func NewAdminOrderHandler(orders services.OrderService) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders}
}

// List serves GET /api/v1/admin/orders with back-office filters.
func (h *AdminOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := repositories.OrderListFilter{
		CustomerUID:   query.Get("customerUid"),
		Status:        domain.OrderStatus(query.Get("status")),
		PaymentStatus: domain.PaymentStatus(query.Get("paymentStatus")),
		Pagination: domain.Pagination{
			PageSize:  queryInt(r, "pageSize"),
			PageToken: query.Get("pageToken"),
		},
	}
	if after := parseQueryTime(query.Get("placedAfter")); after != nil {
		filter.PlacedAfter = after
	}
	if before := parseQueryTime(query.Get("placedBefore")); before != nil {
		filter.PlacedBefore = before
	}

	page, err := h.orders.ListOrders(ctx, filter)
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

// Get serves GET /api/v1/admin/orders/{orderID}.
func (h *AdminOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"), services.OrderReadOptions{Staff: true})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"order": orderToPayload(order),
	})
}

type transitionRequest struct {
	Status   string `json:"status"`
	Tracking *struct {
		Carrier string `json:"carrier"`
		Number  string `json:"number"`
	} `json:"tracking,omitempty"`
}

// Transition serves POST /api/v1/admin/orders/{orderID}/status.
func (h *AdminOrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.TransitionStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Target:  domain.OrderStatus(req.Status),
		Actor:   actorUID(ctx),
	}
	if req.Tracking != nil {
		cmd.Tracking = &domain.Tracking{Carrier: req.Tracking.Carrier, Number: req.Tracking.Number}
	}

	order, err := h.orders.TransitionStatus(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"order": orderToPayload(order),
	})
}

type bulkTransitionRequest struct {
	OrderIDs []string `json:"orderIds"`
	Status   string   `json:"status"`
}

type bulkTransitionItem struct {
	OrderID string        `json:"orderId"`
	Ok      bool          `json:"ok"`
	Order   *orderPayload `json:"order,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
}

// BulkTransition serves POST /api/v1/admin/orders/bulk/status and reports a
// per-order outcome instead of failing the whole batch.
func (h *AdminOrderHandler) BulkTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bulkTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "request body is not valid JSON", http.StatusBadRequest))
		return
	}
	if len(req.OrderIDs) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "orderIds must not be empty", http.StatusBadRequest))
		return
	}

	results := h.orders.BulkTransition(ctx, services.BulkTransitionCommand{
		OrderIDs: req.OrderIDs,
		Target:   domain.OrderStatus(req.Status),
		Actor:    actorUID(ctx),
	})

	items := make([]bulkTransitionItem, 0, len(results))
	for _, result := range results {
		item := bulkTransitionItem{OrderID: result.OrderID}
		if result.Err != nil {
			item.Code, item.Message = bulkErrorCode(result.Err)
		} else {
			item.Ok = true
			payload := orderToPayload(result.Order)
			item.Order = &payload
		}
		items = append(items, item)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"results": items,
	})
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Cancel serves POST /api/v1/admin/orders/{orderID}/cancel.
func (h *AdminOrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req cancelRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("validation_error", "request body is not valid JSON", http.StatusBadRequest))
			return
		}
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Reason:  req.Reason,
		Actor:   actorUID(ctx),
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

func actorUID(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return identity.UID
}

func bulkErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return "not_found", "order not found"
	case errors.Is(err, services.ErrIllegalTransition):
		return "illegal_transition", err.Error()
	case errors.Is(err, services.ErrOrderInvalidInput):
		return "validation_error", err.Error()
	default:
		return "internal_error", "internal error"
	}
}

func parseQueryTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}
