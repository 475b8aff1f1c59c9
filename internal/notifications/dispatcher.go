package notifications

import (
	"context"
	"time"

	domain "github.com/cityprint/api/internal/domain"
)

// EventType enumerates the order lifecycle events published for downstream
// channels (email, SMS, staff dashboards).
type EventType string

const (
	EventOrderPlaced         EventType = "order.placed"
	EventOrderStatusChanged  EventType = "order.status_changed"
	EventOrderCancelled      EventType = "order.cancelled"
	EventPaymentCaptured     EventType = "payment.captured"
	EventPaymentFailed       EventType = "payment.failed"
	EventPaymentRefunded     EventType = "payment.refunded"
	EventQuoteRequestCreated EventType = "quote.created"
)

// OrderEvent is the message published for each lifecycle change. Amounts are
// formatted for display in DisplayTotal; GrandTotal stays in paise.
type OrderEvent struct {
	// EventID is a ULID assigned at publish time so consumers can
	// deduplicate redeliveries.
	EventID       string             `json:"eventId,omitempty"`
	Type          EventType          `json:"type"`
	OrderID       string             `json:"orderId,omitempty"`
	OrderNumber   string             `json:"orderNumber,omitempty"`
	QuoteID       string             `json:"quoteId,omitempty"`
	CustomerName  string             `json:"customerName,omitempty"`
	CustomerEmail string             `json:"customerEmail,omitempty"`
	CustomerPhone string             `json:"customerPhone,omitempty"`
	FromStatus    domain.OrderStatus `json:"fromStatus,omitempty"`
	ToStatus      domain.OrderStatus `json:"toStatus,omitempty"`
	GrandTotal    int64              `json:"grandTotal,omitempty"`
	DisplayTotal  string             `json:"displayTotal,omitempty"`
	Currency      string             `json:"currency,omitempty"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

// Dispatcher publishes order lifecycle events. Implementations must be safe
// for concurrent use; delivery is best-effort and never blocks the order flow.
type Dispatcher interface {
	Dispatch(ctx context.Context, event OrderEvent)
}

// NoopDispatcher drops all events, used when notifications are not configured.
type NoopDispatcher struct{}

// Dispatch implements Dispatcher.
func (NoopDispatcher) Dispatch(context.Context, OrderEvent) {}
