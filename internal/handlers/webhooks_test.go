package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/payments"
)

const capturedWebhookBody = `{
	"event": "payment.captured",
	"payload": {
		"payment": {
			"entity": {
				"id": "pay_123",
				"order_id": "order_rzp_1",
				"status": "captured",
				"amount": 23600,
				"notes": {"orderNumber": "CP240115001"}
			}
		}
	}
}`

func webhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "sig")
	return req
}

func TestRazorpayWebhook(t *testing.T) {
	t.Run("capture applied", func(t *testing.T) {
		paid := sampleOrder()
		paid.Payment.Status = domain.PaymentPaid
		service := &stubOrderService{applied: paid}
		handler := NewWebhookHandler(service, &stubVerifyGateway{})

		rec := httptest.NewRecorder()
		handler.Razorpay(rec, webhookRequest(capturedWebhookBody))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if service.lastApply.OrderID != "CP240115001" {
			t.Errorf("applied order = %q, want CP240115001", service.lastApply.OrderID)
		}
		if service.lastApply.Status != domain.PaymentPaid {
			t.Errorf("applied status = %q, want paid", service.lastApply.Status)
		}
		if service.lastApply.Amount != 23600 {
			t.Errorf("applied amount = %d, want 23600", service.lastApply.Amount)
		}
	})

	t.Run("bad signature rejected before parsing", func(t *testing.T) {
		handler := NewWebhookHandler(&stubOrderService{}, &stubVerifyGateway{webhookErr: payments.ErrSignatureMismatch})

		rec := httptest.NewRecorder()
		handler.Razorpay(rec, webhookRequest(capturedWebhookBody))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if code := decodeBody(t, rec)["code"]; code != "unauthorized" {
			t.Errorf("code = %v, want unauthorized", code)
		}
	})

	t.Run("unknown event acknowledged", func(t *testing.T) {
		service := &stubOrderService{}
		handler := NewWebhookHandler(service, &stubVerifyGateway{})

		rec := httptest.NewRecorder()
		handler.Razorpay(rec, webhookRequest(`{"event":"order.paid","payload":{}}`))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if payload := decodeBody(t, rec); payload["ignored"] != true {
			t.Errorf("ignored = %v, want true", payload["ignored"])
		}
		if service.lastApply.OrderID != "" {
			t.Errorf("payment event applied for unknown webhook event")
		}
	})

	t.Run("missing order reference acknowledged", func(t *testing.T) {
		handler := NewWebhookHandler(&stubOrderService{}, &stubVerifyGateway{})

		rec := httptest.NewRecorder()
		handler.Razorpay(rec, webhookRequest(`{
			"event": "payment.captured",
			"payload": {"payment": {"entity": {"id": "pay_9", "notes": {}}}}
		}`))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("failed event maps to failed status", func(t *testing.T) {
		service := &stubOrderService{applied: sampleOrder()}
		handler := NewWebhookHandler(service, &stubVerifyGateway{})

		body := strings.Replace(capturedWebhookBody, "payment.captured", "payment.failed", 1)
		rec := httptest.NewRecorder()
		handler.Razorpay(rec, webhookRequest(body))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if service.lastApply.Status != domain.PaymentFailed {
			t.Errorf("applied status = %q, want failed", service.lastApply.Status)
		}
	})
}
