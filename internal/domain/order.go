package domain

import (
	"time"
)

// OrderStatus enumerates the production workflow states for orders.
// The values are persisted verbatim and drive the transition graph in the
// order service; they are distinct from payment status.
type OrderStatus string

const (
	// OrderStatusPlaced indicates the order was created at checkout.
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusPreflight indicates artwork checks are in progress.
	OrderStatusPreflight OrderStatus = "preflight"
	// OrderStatusProofReady indicates a proof awaits customer approval.
	OrderStatusProofReady OrderStatus = "proof_ready"
	// OrderStatusApproved indicates the proof was approved for production.
	OrderStatusApproved OrderStatus = "approved"
	// OrderStatusInProduction indicates the job is on press.
	OrderStatusInProduction OrderStatus = "in_production"
	// OrderStatusReadyForPickup indicates the finished job awaits collection.
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	// OrderStatusShipped indicates the job was handed to a courier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCompleted is the terminal success state.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled is the terminal cancellation state.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus enumerates payment lifecycle states, decoupled from OrderStatus.
type PaymentStatus string

const (
	// PaymentPending indicates payment has not been captured yet.
	PaymentPending PaymentStatus = "pending"
	// PaymentPaid indicates payment was captured.
	PaymentPaid PaymentStatus = "paid"
	// PaymentFailed indicates the provider reported a failed capture.
	PaymentFailed PaymentStatus = "failed"
	// PaymentRefunded indicates the captured amount was returned.
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentMethod enumerates supported payment channels.
type PaymentMethod string

const (
	// PaymentMethodRazorpay is online payment through Razorpay.
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	// PaymentMethodCOD is cash on delivery or pickup.
	PaymentMethodCOD PaymentMethod = "cod"
)

// DeliveryMethod enumerates fulfilment channels.
type DeliveryMethod string

const (
	// DeliveryPickup means the customer collects from the shop.
	DeliveryPickup DeliveryMethod = "pickup"
	// DeliveryCourier means the order ships to the customer address.
	DeliveryCourier DeliveryMethod = "courier"
)

// Customer is the contact snapshot stored on an order or quote.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Company string
}

// Delivery captures the chosen fulfilment channel and destination.
type Delivery struct {
	Method   DeliveryMethod
	Address  *Address
	Tracking *Tracking
}

// Tracking holds courier tracking details once an order ships.
type Tracking struct {
	Carrier   string
	Number    string
	ShippedAt time.Time
}

// Specification records one resolved option selection on an order line,
// keyed by the option's declared type so pricing can validate it at
// composition time instead of render time.
type Specification struct {
	Option     string
	Type       OptionType
	Choice     string
	Enabled    *bool
	Number     *float64
	Dimensions *Dimensions
}

// OrderItem is a frozen snapshot of a priced product line. It is never
// recomputed from live catalog data after the order is created.
type OrderItem struct {
	ProductID      string
	ProductName    string
	Variant        string
	Quantity       int
	Specifications []Specification
	UnitPrice      int64
	TotalPrice     int64
	DeliverySpeed  DeliverySpeed
}

// OrderPricing holds rolled-up monetary fields in paise.
// Invariant: GrandTotal = Subtotal - DiscountAmount + TaxAmount + ShippingAmount.
type OrderPricing struct {
	Subtotal       int64
	TaxAmount      int64
	ShippingAmount int64
	DiscountAmount int64
	GrandTotal     int64
	Currency       string
}

// GSTBreakdown splits the order tax into its statutory components.
// Invariant: CGST + SGST + IGST == TotalTax, and IGST is mutually exclusive
// with CGST/SGST.
type GSTBreakdown struct {
	CGST     int64
	SGST     int64
	IGST     int64
	TotalTax int64
}

// Payment tracks the payment state attached to an order.
type Payment struct {
	Method            PaymentMethod
	Status            PaymentStatus
	Amount            int64
	ProviderOrderID   *string
	ProviderPaymentID *string
}

// OrderAudit records the actors responsible for creating/updating the order.
type OrderAudit struct {
	CreatedBy *string
	UpdatedBy *string
}

// Order is the immutable checkout snapshot plus its mutable lifecycle fields.
// Only Status, Payment, Delivery.Tracking, and the audit timestamps change
// after creation.
type Order struct {
	ID           string
	OrderNumber  string
	CustomerID   string
	Customer     Customer
	Delivery     Delivery
	Items        []OrderItem
	Pricing      OrderPricing
	GST          GSTBreakdown
	Status       OrderStatus
	Payment      Payment
	Audit        OrderAudit
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PlacedAt     *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// QuoteStatus enumerates lifecycle states of a quote request.
type QuoteStatus string

const (
	// QuoteStatusNew indicates the request awaits a staff response.
	QuoteStatusNew QuoteStatus = "new"
	// QuoteStatusResponded indicates staff sent a quotation.
	QuoteStatusResponded QuoteStatus = "responded"
	// QuoteStatusClosed indicates the request was resolved or abandoned.
	QuoteStatusClosed QuoteStatus = "closed"
)

// QuoteRequest is a customer enquiry for custom work that does not go
// through the standard checkout pricing path.
type QuoteRequest struct {
	ID             string
	QuoteNumber    string
	CustomerID     string
	Customer       Customer
	ProductID      string
	Quantity       int
	Specifications []Specification
	Message        string
	Status         QuoteStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
