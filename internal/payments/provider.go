package payments

import (
	"context"
	"errors"
	"time"
)

// Status enumerates the normalised payment states shared across gateways.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or gateway confirmation.
	StatusPending Status = "pending"
	// StatusCaptured indicates the gateway reports the payment as captured.
	StatusCaptured Status = "captured"
	// StatusFailed indicates the gateway reports a failure and no further action is possible.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been refunded.
	StatusRefunded Status = "refunded"
)

// ErrSignatureMismatch is returned when a callback or webhook signature does not verify.
var ErrSignatureMismatch = errors.New("payments: signature verification failed")

// OrderRequest captures the payload required to open a gateway order for an
// amount in paise.
type OrderRequest struct {
	Amount   int64
	Currency string
	// Receipt ties the gateway order back to the shop order number.
	Receipt string
	Notes   map[string]string
}

// GatewayOrder is the provider-side order handle returned to the client for
// checkout completion.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
}

// PaymentDetails normalises gateway specific payment fields for storage.
type PaymentDetails struct {
	PaymentID  string
	OrderID    string
	Status     Status
	Amount     int64
	Currency   string
	Method     string
	CapturedAt *time.Time
}

// CallbackVerification carries the fields returned by the client-side
// checkout completion callback.
type CallbackVerification struct {
	OrderID   string
	PaymentID string
	Signature string
}

// RefundRequest defines a gateway refund attempt. A nil Amount refunds in full.
type RefundRequest struct {
	PaymentID string
	Amount    *int64
	Notes     map[string]string
}

// Gateway defines the contract payment adapters implement.
type Gateway interface {
	// CreateOrder opens a gateway-side order that the storefront uses to
	// collect payment.
	CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error)
	// FetchPayment loads the authoritative payment state for reconciliation.
	FetchPayment(ctx context.Context, paymentID string) (PaymentDetails, error)
	// Refund returns the captured amount to the customer.
	Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error)
	// VerifyCallback checks the checkout completion signature.
	VerifyCallback(verification CallbackVerification) error
	// VerifyWebhook checks the webhook body signature.
	VerifyWebhook(body []byte, signature string) error
}
