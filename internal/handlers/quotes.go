package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/platform/auth"
	"github.com/cityprint/api/internal/platform/httpx"
	"github.com/cityprint/api/internal/repositories"
	"github.com/cityprint/api/internal/services"
)

// QuoteHandler serves custom-work quote requests. Creation is open to
// anonymous visitors; reads require ownership or staff.
type QuoteHandler struct {
	quotes services.QuoteService
}

// NewQuoteHandler constructs a QuoteHandler.
func NewQuoteHandler(quotes services.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

type createQuoteRequest struct {
	Customer       customerPayload        `json:"customer"`
	ProductID      string                 `json:"productId,omitempty"`
	Quantity       int                    `json:"quantity"`
	Specifications []specificationPayload `json:"specifications,omitempty"`
	Message        string                 `json:"message,omitempty"`
}

// Create serves POST /api/v1/quotes.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "request body is not valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateQuoteCommand{
		Customer:       customerFromPayload(req.Customer),
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		Specifications: specificationsFromPayload(req.Specifications),
		Message:        req.Message,
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		cmd.CustomerUID = identity.UID
	}

	quote, err := h.quotes.CreateQuote(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"ok":    true,
		"quote": quoteToPayload(quote),
	})
}

// Get serves GET /api/v1/quotes/{quoteID}.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	quote, err := h.quotes.GetQuote(ctx, chi.URLParam(r, "quoteID"), services.OrderReadOptions{
		CustomerUID: identity.UID,
		Staff:       identity.IsStaff(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"quote": quoteToPayload(quote),
	})
}

// AdminList serves GET /api/v1/admin/quotes.
func (h *QuoteHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := h.quotes.ListQuotes(ctx, repositories.QuoteListFilter{
		Status: domain.QuoteStatus(r.URL.Query().Get("status")),
		Pagination: domain.Pagination{
			PageSize:  queryInt(r, "pageSize"),
			PageToken: r.URL.Query().Get("pageToken"),
		},
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	quotes := make([]quotePayload, 0, len(page.Items))
	for _, quote := range page.Items {
		quotes = append(quotes, quoteToPayload(quote))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"quotes":        quotes,
		"nextPageToken": page.NextPageToken,
	})
}

// AdminRespond serves POST /api/v1/admin/quotes/{quoteID}/respond.
func (h *QuoteHandler) AdminRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	quote, err := h.quotes.Respond(ctx, chi.URLParam(r, "quoteID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"quote": quoteToPayload(quote),
	})
}

// AdminClose serves POST /api/v1/admin/quotes/{quoteID}/close.
func (h *QuoteHandler) AdminClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	quote, err := h.quotes.Close(ctx, chi.URLParam(r, "quoteID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"quote": quoteToPayload(quote),
	})
}
