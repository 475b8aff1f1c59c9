package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/payments"
	"github.com/cityprint/api/internal/platform/httpx"
	"github.com/cityprint/api/internal/platform/requestctx"
	"github.com/cityprint/api/internal/services"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives gateway payment events and applies them to orders.
type WebhookHandler struct {
	orders  services.OrderService
	gateway payments.Gateway
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(orders services.OrderService, gateway payments.Gateway) *WebhookHandler {
	return &WebhookHandler{orders: orders, gateway: gateway}
}

type razorpayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Status  string            `json:"status"`
				Amount  int64             `json:"amount"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Razorpay serves POST /api/v1/webhooks/razorpay. The raw body signature is
// verified before any parsing; unrecognised events are acknowledged so the
// gateway stops retrying them.
func (h *WebhookHandler) Razorpay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.gateway == nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "payment gateway not configured", http.StatusInternalServerError))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "unable to read request body", http.StatusBadRequest))
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if err := h.gateway.VerifyWebhook(body, signature); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "webhook signature verification failed", http.StatusUnauthorized))
		return
	}

	var event razorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", "webhook body is not valid JSON", http.StatusBadRequest))
		return
	}

	status, handled := paymentStatusForEvent(event.Event)
	if !handled {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "ignored": true})
		return
	}

	entity := event.Payload.Payment.Entity
	orderNumber := strings.TrimSpace(entity.Notes["orderNumber"])
	if orderNumber == "" {
		requestctx.Logger(ctx).Warn("webhook payment without order reference",
			zap.String("event", event.Event),
			zap.String("paymentId", entity.ID),
		)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "ignored": true})
		return
	}

	if _, err := h.orders.ApplyPaymentEvent(ctx, services.PaymentEventCommand{
		OrderID:           orderNumber,
		Status:            status,
		ProviderOrderID:   entity.OrderID,
		ProviderPaymentID: entity.ID,
		Amount:            entity.Amount,
	}); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func paymentStatusForEvent(event string) (domain.PaymentStatus, bool) {
	switch event {
	case "payment.captured":
		return domain.PaymentPaid, true
	case "payment.failed":
		return domain.PaymentFailed, true
	case "refund.processed":
		return domain.PaymentRefunded, true
	default:
		return "", false
	}
}
