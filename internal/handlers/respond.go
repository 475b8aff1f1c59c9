package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/platform/httpx"
	"github.com/cityprint/api/internal/platform/requestctx"
	"github.com/cityprint/api/internal/services"
	"go.uber.org/zap"
)

// writeServiceError translates service sentinel errors into the canonical
// error envelope and HTTP status.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrQuoteNotFound),
		errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))

	case errors.Is(err, services.ErrInvalidProduct),
		errors.Is(err, services.ErrUnknownVariant):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_products", err.Error(), http.StatusBadRequest))

	case errors.Is(err, services.ErrOutOfStockVariant):
		httpx.WriteError(ctx, w, httpx.NewError("out_of_stock_variant", err.Error(), http.StatusConflict))

	case errors.Is(err, services.ErrMissingRequiredOption):
		httpx.WriteError(ctx, w, httpx.NewError("missing_fields", err.Error(), http.StatusBadRequest))

	case errors.Is(err, services.ErrIllegalTransition):
		httpx.WriteError(ctx, w, httpx.NewError("illegal_transition", err.Error(), http.StatusConflict))

	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))

	case errors.Is(err, services.ErrEmptyOrder),
		errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrQuoteInvalidInput),
		errors.Is(err, services.ErrCatalogInvalidInput),
		errors.Is(err, services.ErrPricingInvalidInput),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrMissingDimensions),
		errors.Is(err, services.ErrQuoteClosed):
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", err.Error(), http.StatusBadRequest))

	default:
		requestctx.Logger(ctx).Error("request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

type addressPayload struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

func addressFromPayload(p *addressPayload) *domain.Address {
	if p == nil {
		return nil
	}
	return &domain.Address{
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
		Country:    p.Country,
	}
}

func addressToPayload(a *domain.Address) *addressPayload {
	if a == nil {
		return nil
	}
	return &addressPayload{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type customerPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

func customerFromPayload(p customerPayload) domain.Customer {
	return domain.Customer{Name: p.Name, Email: p.Email, Phone: p.Phone, Company: p.Company}
}

func customerToPayload(c domain.Customer) customerPayload {
	return customerPayload{Name: c.Name, Email: c.Email, Phone: c.Phone, Company: c.Company}
}

type dimensionsPayload struct {
	WidthFt  float64 `json:"widthFt"`
	HeightFt float64 `json:"heightFt"`
}

type specificationPayload struct {
	Option     string             `json:"option"`
	Type       string             `json:"type,omitempty"`
	Choice     string             `json:"choice,omitempty"`
	Enabled    *bool              `json:"enabled,omitempty"`
	Number     *float64           `json:"number,omitempty"`
	Dimensions *dimensionsPayload `json:"dimensions,omitempty"`
}

func specificationsFromPayload(payloads []specificationPayload) []domain.Specification {
	if len(payloads) == 0 {
		return nil
	}
	specs := make([]domain.Specification, 0, len(payloads))
	for _, p := range payloads {
		spec := domain.Specification{
			Option:  p.Option,
			Type:    domain.OptionType(p.Type),
			Choice:  p.Choice,
			Enabled: p.Enabled,
			Number:  p.Number,
		}
		if p.Dimensions != nil {
			spec.Dimensions = &domain.Dimensions{WidthFt: p.Dimensions.WidthFt, HeightFt: p.Dimensions.HeightFt}
		}
		specs = append(specs, spec)
	}
	return specs
}

func specificationsToPayload(specs []domain.Specification) []specificationPayload {
	if len(specs) == 0 {
		return nil
	}
	payloads := make([]specificationPayload, 0, len(specs))
	for _, spec := range specs {
		p := specificationPayload{
			Option:  spec.Option,
			Type:    string(spec.Type),
			Choice:  spec.Choice,
			Enabled: spec.Enabled,
			Number:  spec.Number,
		}
		if spec.Dimensions != nil {
			p.Dimensions = &dimensionsPayload{WidthFt: spec.Dimensions.WidthFt, HeightFt: spec.Dimensions.HeightFt}
		}
		payloads = append(payloads, p)
	}
	return payloads
}

type orderItemPayload struct {
	ProductID      string                 `json:"productId"`
	ProductName    string                 `json:"productName"`
	Variant        string                 `json:"variant,omitempty"`
	Quantity       int                    `json:"quantity"`
	Specifications []specificationPayload `json:"specifications,omitempty"`
	UnitPrice      int64                  `json:"unitPrice"`
	TotalPrice     int64                  `json:"totalPrice"`
	DeliverySpeed  string                 `json:"deliverySpeed"`
}

type trackingPayload struct {
	Carrier   string    `json:"carrier"`
	Number    string    `json:"number"`
	ShippedAt time.Time `json:"shippedAt"`
}

type orderPayload struct {
	ID           string             `json:"id"`
	OrderNumber  string             `json:"orderNumber"`
	Status       string             `json:"status"`
	Customer     customerPayload    `json:"customer"`
	Delivery     deliveryPayload    `json:"delivery"`
	Items        []orderItemPayload `json:"items"`
	Pricing      pricingPayload     `json:"pricing"`
	GST          gstPayload         `json:"gst"`
	Payment      paymentPayload     `json:"payment"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	PlacedAt     *time.Time         `json:"placedAt,omitempty"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
	CancelledAt  *time.Time         `json:"cancelledAt,omitempty"`
	CancelReason *string            `json:"cancelReason,omitempty"`
}

type deliveryPayload struct {
	Method   string           `json:"method"`
	Address  *addressPayload  `json:"address,omitempty"`
	Tracking *trackingPayload `json:"tracking,omitempty"`
}

type pricingPayload struct {
	Subtotal       int64  `json:"subtotal"`
	TaxAmount      int64  `json:"taxAmount"`
	ShippingAmount int64  `json:"shippingAmount"`
	DiscountAmount int64  `json:"discountAmount"`
	GrandTotal     int64  `json:"grandTotal"`
	Currency       string `json:"currency"`
}

type gstPayload struct {
	CGST     int64 `json:"cgst"`
	SGST     int64 `json:"sgst"`
	IGST     int64 `json:"igst"`
	TotalTax int64 `json:"totalTax"`
}

type paymentPayload struct {
	Method            string  `json:"method"`
	Status            string  `json:"status"`
	Amount            int64   `json:"amount"`
	ProviderOrderID   *string `json:"providerOrderId,omitempty"`
	ProviderPaymentID *string `json:"providerPaymentId,omitempty"`
}

func orderToPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Variant:        item.Variant,
			Quantity:       item.Quantity,
			Specifications: specificationsToPayload(item.Specifications),
			UnitPrice:      item.UnitPrice,
			TotalPrice:     item.TotalPrice,
			DeliverySpeed:  string(item.DeliverySpeed),
		})
	}

	payload := orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Customer:    customerToPayload(order.Customer),
		Delivery: deliveryPayload{
			Method:  string(order.Delivery.Method),
			Address: addressToPayload(order.Delivery.Address),
		},
		Items: items,
		Pricing: pricingPayload{
			Subtotal:       order.Pricing.Subtotal,
			TaxAmount:      order.Pricing.TaxAmount,
			ShippingAmount: order.Pricing.ShippingAmount,
			DiscountAmount: order.Pricing.DiscountAmount,
			GrandTotal:     order.Pricing.GrandTotal,
			Currency:       order.Pricing.Currency,
		},
		GST: gstPayload{
			CGST:     order.GST.CGST,
			SGST:     order.GST.SGST,
			IGST:     order.GST.IGST,
			TotalTax: order.GST.TotalTax,
		},
		Payment: paymentPayload{
			Method:            string(order.Payment.Method),
			Status:            string(order.Payment.Status),
			Amount:            order.Payment.Amount,
			ProviderOrderID:   order.Payment.ProviderOrderID,
			ProviderPaymentID: order.Payment.ProviderPaymentID,
		},
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
		PlacedAt:     order.PlacedAt,
		CompletedAt:  order.CompletedAt,
		CancelledAt:  order.CancelledAt,
		CancelReason: order.CancelReason,
	}
	if order.Delivery.Tracking != nil {
		payload.Delivery.Tracking = &trackingPayload{
			Carrier:   order.Delivery.Tracking.Carrier,
			Number:    order.Delivery.Tracking.Number,
			ShippedAt: order.Delivery.Tracking.ShippedAt,
		}
	}
	return payload
}

type quotePayload struct {
	ID             string                 `json:"id"`
	QuoteNumber    string                 `json:"quoteNumber"`
	Customer       customerPayload        `json:"customer"`
	ProductID      string                 `json:"productId,omitempty"`
	Quantity       int                    `json:"quantity"`
	Specifications []specificationPayload `json:"specifications,omitempty"`
	Message        string                 `json:"message,omitempty"`
	Status         string                 `json:"status"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

func quoteToPayload(quote domain.QuoteRequest) quotePayload {
	return quotePayload{
		ID:             quote.ID,
		QuoteNumber:    quote.QuoteNumber,
		Customer:       customerToPayload(quote.Customer),
		ProductID:      quote.ProductID,
		Quantity:       quote.Quantity,
		Specifications: specificationsToPayload(quote.Specifications),
		Message:        quote.Message,
		Status:         string(quote.Status),
		CreatedAt:      quote.CreatedAt,
		UpdatedAt:      quote.UpdatedAt,
	}
}
