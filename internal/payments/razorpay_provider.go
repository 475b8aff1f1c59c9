package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	razorpayutils "github.com/razorpay/razorpay-go/utils"

	"github.com/cityprint/api/internal/platform/config"
)

// RazorpayGateway implements Gateway on top of the Razorpay REST client.
type RazorpayGateway struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
}

// NewRazorpayGateway constructs a RazorpayGateway from configuration.
func NewRazorpayGateway(cfg config.RazorpayConfig) (*RazorpayGateway, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, errors.New("payments: razorpay key id and secret are required")
	}
	return &RazorpayGateway{
		client:        razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

// CreateOrder opens a Razorpay order for the grand total.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (GatewayOrder, error) {
	if g == nil || g.client == nil {
		return GatewayOrder{}, errors.New("payments: razorpay gateway not initialised")
	}
	if req.Amount <= 0 {
		return GatewayOrder{}, errors.New("payments: order amount must be positive")
	}
	if err := ctx.Err(); err != nil {
		return GatewayOrder{}, err
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": strings.ToUpper(strings.TrimSpace(req.Currency)),
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("payments: razorpay order create: %w", err)
	}

	return GatewayOrder{
		ID:       stringField(body, "id"),
		Amount:   int64Field(body, "amount"),
		Currency: stringField(body, "currency"),
		Status:   stringField(body, "status"),
	}, nil
}

// FetchPayment loads the authoritative payment state from Razorpay.
func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (PaymentDetails, error) {
	if g == nil || g.client == nil {
		return PaymentDetails{}, errors.New("payments: razorpay gateway not initialised")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return PaymentDetails{}, errors.New("payments: payment id is required")
	}
	if err := ctx.Err(); err != nil {
		return PaymentDetails{}, err
	}

	body, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("payments: razorpay payment fetch: %w", err)
	}
	return paymentFromBody(body), nil
}

// Refund returns the captured amount. A nil request amount refunds in full.
func (g *RazorpayGateway) Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error) {
	if g == nil || g.client == nil {
		return PaymentDetails{}, errors.New("payments: razorpay gateway not initialised")
	}
	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		return PaymentDetails{}, errors.New("payments: payment id is required")
	}
	if err := ctx.Err(); err != nil {
		return PaymentDetails{}, err
	}

	amount := int64(0)
	if req.Amount != nil {
		amount = *req.Amount
	} else {
		payment, err := g.FetchPayment(ctx, paymentID)
		if err != nil {
			return PaymentDetails{}, err
		}
		amount = payment.Amount
	}
	if amount <= 0 {
		return PaymentDetails{}, errors.New("payments: refund amount must be positive")
	}

	data := map[string]interface{}{}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	if _, err := g.client.Payment.Refund(paymentID, int(amount), data, nil); err != nil {
		return PaymentDetails{}, fmt.Errorf("payments: razorpay refund: %w", err)
	}

	return g.FetchPayment(ctx, paymentID)
}

// VerifyCallback checks the checkout completion signature produced by the
// Razorpay client SDK.
func (g *RazorpayGateway) VerifyCallback(verification CallbackVerification) error {
	if g == nil {
		return errors.New("payments: razorpay gateway not initialised")
	}
	params := map[string]interface{}{
		"razorpay_order_id":   verification.OrderID,
		"razorpay_payment_id": verification.PaymentID,
	}
	if !razorpayutils.VerifyPaymentSignature(params, verification.Signature, g.keySecret) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyWebhook checks the X-Razorpay-Signature header against the raw body.
func (g *RazorpayGateway) VerifyWebhook(body []byte, signature string) error {
	if g == nil {
		return errors.New("payments: razorpay gateway not initialised")
	}
	if strings.TrimSpace(g.webhookSecret) == "" {
		return errors.New("payments: webhook secret not configured")
	}
	if !razorpayutils.VerifyWebhookSignature(string(body), signature, g.webhookSecret) {
		return ErrSignatureMismatch
	}
	return nil
}

func paymentFromBody(body map[string]interface{}) PaymentDetails {
	details := PaymentDetails{
		PaymentID: stringField(body, "id"),
		OrderID:   stringField(body, "order_id"),
		Amount:    int64Field(body, "amount"),
		Currency:  stringField(body, "currency"),
		Method:    stringField(body, "method"),
	}

	switch stringField(body, "status") {
	case "captured":
		details.Status = StatusCaptured
	case "failed":
		details.Status = StatusFailed
	case "refunded":
		details.Status = StatusRefunded
	default:
		details.Status = StatusPending
	}

	if ts := int64Field(body, "created_at"); ts > 0 && details.Status == StatusCaptured {
		captured := time.Unix(ts, 0).UTC()
		details.CapturedAt = &captured
	}

	return details
}

func stringField(body map[string]interface{}, key string) string {
	if body == nil {
		return ""
	}
	if value, ok := body[key].(string); ok {
		return value
	}
	return ""
}

func int64Field(body map[string]interface{}, key string) int64 {
	if body == nil {
		return 0
	}
	switch value := body[key].(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	default:
		return 0
	}
}

// Ensure interface compliance.
var _ Gateway = (*RazorpayGateway)(nil)
