package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/notifications"
	"github.com/cityprint/api/internal/payments"
	"github.com/cityprint/api/internal/repositories"
)

type fakeRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *fakeRepoError) Error() string       { return e.msg }
func (e *fakeRepoError) IsNotFound() bool    { return e.notFound }
func (e *fakeRepoError) IsConflict() bool    { return e.conflict }
func (e *fakeRepoError) IsUnavailable() bool { return e.unavailable }

type stubProductRepo struct {
	products map[string]domain.Product
}

func (s *stubProductRepo) FindByID(_ context.Context, productID string) (domain.Product, error) {
	product, ok := s.products[productID]
	if !ok {
		return domain.Product{}, &fakeRepoError{msg: "product not found", notFound: true}
	}
	return product, nil
}

func (s *stubProductRepo) List(context.Context, repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	items := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		items = append(items, product)
	}
	return domain.CursorPage[domain.Product]{Items: items}, nil
}

type stubOrderRepo struct {
	mu              sync.Mutex
	orders          map[string]domain.Order
	insertConflicts int
}

func newStubOrderRepo(orders ...domain.Order) *stubOrderRepo {
	repo := &stubOrderRepo{orders: map[string]domain.Order{}}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (s *stubOrderRepo) Insert(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertConflicts > 0 {
		s.insertConflicts--
		return &fakeRepoError{msg: "document exists", conflict: true}
	}
	if _, exists := s.orders[order.ID]; exists {
		return &fakeRepoError{msg: "document exists", conflict: true}
	}
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, &fakeRepoError{msg: "order not found", notFound: true}
	}
	return order, nil
}

func (s *stubOrderRepo) List(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		items = append(items, order)
	}
	return domain.CursorPage[domain.Order]{Items: items}, nil
}

func (s *stubOrderRepo) Mutate(_ context.Context, orderID string, fn func(domain.Order) (domain.Order, error)) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, &fakeRepoError{msg: "order not found", notFound: true}
	}
	updated, err := fn(current)
	if err != nil {
		return domain.Order{}, err
	}
	s.orders[orderID] = updated
	return updated, nil
}

type stubAllocator struct {
	numbers []string
	index   int
}

func (s *stubAllocator) NextOrderNumber(context.Context) (string, error) {
	if s.index >= len(s.numbers) {
		return "", errors.New("allocator exhausted")
	}
	number := s.numbers[s.index]
	s.index++
	return number, nil
}

func (s *stubAllocator) NextQuoteNumber(context.Context) (string, error) {
	return s.NextOrderNumber(context.Background())
}

type stubGateway struct {
	createErr    error
	refundErr    error
	createdReqs  []payments.OrderRequest
	refundedReqs []payments.RefundRequest
}

func (s *stubGateway) CreateOrder(_ context.Context, req payments.OrderRequest) (payments.GatewayOrder, error) {
	s.createdReqs = append(s.createdReqs, req)
	if s.createErr != nil {
		return payments.GatewayOrder{}, s.createErr
	}
	return payments.GatewayOrder{
		ID:       "order_rzp_" + req.Receipt,
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   "created",
	}, nil
}

func (s *stubGateway) FetchPayment(context.Context, string) (payments.PaymentDetails, error) {
	return payments.PaymentDetails{}, errors.New("not implemented")
}

func (s *stubGateway) Refund(_ context.Context, req payments.RefundRequest) (payments.PaymentDetails, error) {
	s.refundedReqs = append(s.refundedReqs, req)
	if s.refundErr != nil {
		return payments.PaymentDetails{}, s.refundErr
	}
	return payments.PaymentDetails{PaymentID: req.PaymentID, Status: payments.StatusRefunded}, nil
}

func (s *stubGateway) VerifyCallback(payments.CallbackVerification) error { return nil }

func (s *stubGateway) VerifyWebhook([]byte, string) error { return nil }

type captureDispatcher struct {
	mu     sync.Mutex
	events []notifications.OrderEvent
}

func (d *captureDispatcher) Dispatch(_ context.Context, event notifications.OrderEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *captureDispatcher) types() []notifications.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]notifications.EventType, 0, len(d.events))
	for _, event := range d.events {
		types = append(types, event.Type)
	}
	return types
}

type orderServiceFixture struct {
	service    OrderService
	orders     *stubOrderRepo
	products   *stubProductRepo
	gateway    *stubGateway
	dispatcher *captureDispatcher
	allocator  *stubAllocator
}

var testClock = func() time.Time {
	return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
}

func newOrderServiceFixture(t *testing.T, mutate ...func(*OrderServiceDeps)) *orderServiceFixture {
	t.Helper()

	engine, err := NewPricingEngine(PricingEngineDeps{})
	if err != nil {
		t.Fatalf("NewPricingEngine() error = %v", err)
	}
	tax, err := NewGSTCalculator(0.18)
	if err != nil {
		t.Fatalf("NewGSTCalculator() error = %v", err)
	}
	eligibility, err := NewSameDayEligibility(SameDayEligibilityDeps{Timezone: "UTC", Now: testClock})
	if err != nil {
		t.Fatalf("NewSameDayEligibility() error = %v", err)
	}

	fixture := &orderServiceFixture{
		orders: newStubOrderRepo(),
		products: &stubProductRepo{products: map[string]domain.Product{
			"flyers": {
				ID:            "flyers",
				Name:          "Flyers",
				PricingMethod: domain.PricingMethodFlat,
				BasePrice:     10000,
				Active:        true,
			},
			"retired": {
				ID:            "retired",
				Name:          "Retired Product",
				PricingMethod: domain.PricingMethodFlat,
				BasePrice:     5000,
				Active:        false,
			},
		}},
		gateway:    &stubGateway{},
		dispatcher: &captureDispatcher{},
		allocator:  &stubAllocator{numbers: []string{"CP240115001", "CP240115002", "CP240115003"}},
	}

	deps := OrderServiceDeps{
		Orders:      fixture.orders,
		Products:    fixture.products,
		Pricing:     engine,
		Tax:         tax,
		Eligibility: eligibility,
		Numbers:     fixture.allocator,
		Gateway:     fixture.gateway,
		Dispatcher:  fixture.dispatcher,
		Policy: OrderPricingPolicy{
			Currency:          "INR",
			ShippingFlatFee:   9900,
			FreeShippingAbove: 99900,
			HomeState:         "MH",
		},
		Clock: testClock,
	}
	for _, fn := range mutate {
		fn(&deps)
	}

	service, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService() error = %v", err)
	}
	fixture.service = service
	return fixture
}

func validCreateCommand() CreateOrderCommand {
	return CreateOrderCommand{
		CustomerUID: "uid-1",
		Customer: domain.Customer{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Phone: "+919800000000",
		},
		DeliveryMethod: domain.DeliveryCourier,
		Address: &domain.Address{
			Line1:      "14 MG Road",
			City:       "Pune",
			State:      "MH",
			PostalCode: "411001",
			Country:    "IN",
		},
		PaymentMethod: domain.PaymentMethodRazorpay,
		Items: []OrderItemInput{
			{ProductID: "flyers", Quantity: 2},
		},
	}
}

func TestCreateOrderComposesTotals(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	result, err := fixture.service.CreateOrder(context.Background(), validCreateCommand())
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	order := result.Order

	if order.OrderNumber != "CP240115001" {
		t.Errorf("OrderNumber = %q, want CP240115001", order.OrderNumber)
	}
	if order.Status != domain.OrderStatusPlaced {
		t.Errorf("Status = %q, want placed", order.Status)
	}
	if order.Payment.Status != domain.PaymentPending {
		t.Errorf("Payment.Status = %q, want pending", order.Payment.Status)
	}

	// 2 x 10000 subtotal, 18% tax, flat courier fee below the free threshold.
	if order.Pricing.Subtotal != 20000 {
		t.Errorf("Subtotal = %d, want 20000", order.Pricing.Subtotal)
	}
	if order.Pricing.TaxAmount != 3600 {
		t.Errorf("TaxAmount = %d, want 3600", order.Pricing.TaxAmount)
	}
	if order.Pricing.ShippingAmount != 9900 {
		t.Errorf("ShippingAmount = %d, want 9900", order.Pricing.ShippingAmount)
	}
	want := order.Pricing.Subtotal - order.Pricing.DiscountAmount + order.Pricing.TaxAmount + order.Pricing.ShippingAmount
	if order.Pricing.GrandTotal != want {
		t.Errorf("GrandTotal = %d, want %d", order.Pricing.GrandTotal, want)
	}
	if order.Payment.Amount != order.Pricing.GrandTotal {
		t.Errorf("Payment.Amount = %d, want grand total %d", order.Payment.Amount, order.Pricing.GrandTotal)
	}

	// Intrastate delivery splits tax evenly.
	if order.GST.CGST != 1800 || order.GST.SGST != 1800 || order.GST.IGST != 0 {
		t.Errorf("GST = %+v, want 1800/1800/0", order.GST)
	}

	if result.ProviderOrder == nil {
		t.Fatal("ProviderOrder = nil, want gateway order")
	}
	if order.Payment.ProviderOrderID == nil || *order.Payment.ProviderOrderID != result.ProviderOrder.ID {
		t.Errorf("ProviderOrderID not attached to order")
	}
	if len(fixture.gateway.createdReqs) != 1 || fixture.gateway.createdReqs[0].Receipt != "CP240115001" {
		t.Errorf("gateway receipt = %+v, want order number", fixture.gateway.createdReqs)
	}

	types := fixture.dispatcher.types()
	if len(types) != 1 || types[0] != notifications.EventOrderPlaced {
		t.Errorf("dispatched events = %v, want [order.placed]", types)
	}
}

func TestCreateOrderInterstateUsesIGST(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	cmd := validCreateCommand()
	cmd.Address.State = "KA"
	result, err := fixture.service.CreateOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	gst := result.Order.GST
	if gst.IGST != 3600 || gst.CGST != 0 || gst.SGST != 0 {
		t.Errorf("GST = %+v, want IGST only", gst)
	}
}

func TestCreateOrderShippingRules(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*CreateOrderCommand)
		wantShipping int64
	}{
		{
			name:         "pickup never charges shipping",
			mutate:       func(cmd *CreateOrderCommand) { cmd.DeliveryMethod = domain.DeliveryPickup; cmd.Address = nil },
			wantShipping: 0,
		},
		{
			name:         "courier below free threshold",
			mutate:       func(*CreateOrderCommand) {},
			wantShipping: 9900,
		},
		{
			name: "courier above free threshold",
			mutate: func(cmd *CreateOrderCommand) {
				cmd.Items = []OrderItemInput{{ProductID: "flyers", Quantity: 10}}
			},
			wantShipping: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fixture := newOrderServiceFixture(t)
			cmd := validCreateCommand()
			tc.mutate(&cmd)
			result, err := fixture.service.CreateOrder(context.Background(), cmd)
			if err != nil {
				t.Fatalf("CreateOrder() error = %v", err)
			}
			if result.Order.Pricing.ShippingAmount != tc.wantShipping {
				t.Errorf("ShippingAmount = %d, want %d", result.Order.Pricing.ShippingAmount, tc.wantShipping)
			}
		})
	}
}

func TestCreateOrderClampsDiscount(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	cmd := validCreateCommand()
	cmd.DiscountAmount = 50000
	result, err := fixture.service.CreateOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	pricing := result.Order.Pricing
	if pricing.DiscountAmount != pricing.Subtotal {
		t.Errorf("DiscountAmount = %d, want clamped to subtotal %d", pricing.DiscountAmount, pricing.Subtotal)
	}
	if pricing.TaxAmount != 0 {
		t.Errorf("TaxAmount = %d, want 0 on fully discounted order", pricing.TaxAmount)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateOrderCommand)
		wantErr error
	}{
		{
			name:    "no items",
			mutate:  func(cmd *CreateOrderCommand) { cmd.Items = nil },
			wantErr: ErrEmptyOrder,
		},
		{
			name:    "missing customer name",
			mutate:  func(cmd *CreateOrderCommand) { cmd.Customer.Name = " " },
			wantErr: ErrOrderInvalidInput,
		},
		{
			name: "missing contact details",
			mutate: func(cmd *CreateOrderCommand) {
				cmd.Customer.Email = ""
				cmd.Customer.Phone = ""
			},
			wantErr: ErrOrderInvalidInput,
		},
		{
			name:    "courier without address",
			mutate:  func(cmd *CreateOrderCommand) { cmd.Address = nil },
			wantErr: ErrOrderInvalidInput,
		},
		{
			name:    "unknown delivery method",
			mutate:  func(cmd *CreateOrderCommand) { cmd.DeliveryMethod = "drone" },
			wantErr: ErrOrderInvalidInput,
		},
		{
			name:    "unknown payment method",
			mutate:  func(cmd *CreateOrderCommand) { cmd.PaymentMethod = "barter" },
			wantErr: ErrOrderInvalidInput,
		},
		{
			name:    "zero quantity item",
			mutate:  func(cmd *CreateOrderCommand) { cmd.Items[0].Quantity = 0 },
			wantErr: ErrInvalidQuantity,
		},
		{
			name:    "unknown product",
			mutate:  func(cmd *CreateOrderCommand) { cmd.Items[0].ProductID = "ghost" },
			wantErr: ErrInvalidProduct,
		},
		{
			name:    "inactive product",
			mutate:  func(cmd *CreateOrderCommand) { cmd.Items[0].ProductID = "retired" },
			wantErr: ErrInvalidProduct,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fixture := newOrderServiceFixture(t)
			cmd := validCreateCommand()
			tc.mutate(&cmd)
			_, err := fixture.service.CreateOrder(context.Background(), cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("CreateOrder() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateOrderRetriesNumberConflictOnce(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	fixture.orders.insertConflicts = 1

	result, err := fixture.service.CreateOrder(context.Background(), validCreateCommand())
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if result.Order.OrderNumber != "CP240115002" {
		t.Errorf("OrderNumber = %q, want second allocation CP240115002", result.Order.OrderNumber)
	}
}

func TestCreateOrderFailsAfterSecondConflict(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	fixture.orders.insertConflicts = 2

	_, err := fixture.service.CreateOrder(context.Background(), validCreateCommand())
	if !errors.Is(err, ErrOrderNumberConflict) {
		t.Errorf("CreateOrder() error = %v, want ErrOrderNumberConflict", err)
	}
}

func TestCreateOrderGatewayFailureIsWarning(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	fixture.gateway.createErr = errors.New("gateway down")

	result, err := fixture.service.CreateOrder(context.Background(), validCreateCommand())
	if err != nil {
		t.Fatalf("CreateOrder() error = %v, want order persisted despite gateway failure", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one warning", result.Warnings)
	}
	if result.ProviderOrder != nil {
		t.Errorf("ProviderOrder = %+v, want nil", result.ProviderOrder)
	}
	if _, findErr := fixture.orders.FindByID(context.Background(), result.Order.ID); findErr != nil {
		t.Errorf("order not persisted: %v", findErr)
	}
}

func TestCreateOrderCODSkipsGateway(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	cmd := validCreateCommand()
	cmd.PaymentMethod = domain.PaymentMethodCOD
	result, err := fixture.service.CreateOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if len(fixture.gateway.createdReqs) != 0 {
		t.Errorf("gateway called %d times for COD order, want 0", len(fixture.gateway.createdReqs))
	}
	if result.Order.Payment.Method != domain.PaymentMethodCOD {
		t.Errorf("Payment.Method = %q, want cod", result.Order.Payment.Method)
	}
}

func TestCreateOrderSnapshotSurvivesCatalogChange(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	result, err := fixture.service.CreateOrder(context.Background(), validCreateCommand())
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	// Mutating the catalog after checkout must not affect the stored snapshot.
	product := fixture.products.products["flyers"]
	product.BasePrice = 99999
	product.Name = "Renamed Flyers"
	fixture.products.products["flyers"] = product

	stored, err := fixture.orders.FindByID(context.Background(), result.Order.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.Items[0].UnitPrice != 10000 {
		t.Errorf("UnitPrice = %d, want original 10000", stored.Items[0].UnitPrice)
	}
	if stored.Items[0].ProductName != "Flyers" {
		t.Errorf("ProductName = %q, want original name", stored.Items[0].ProductName)
	}
}

func placedOrder(id string, status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:          id,
		OrderNumber: id,
		CustomerID:  "uid-1",
		Customer:    domain.Customer{Name: "Asha Rao", Email: "asha@example.com"},
		Status:      status,
		Payment: domain.Payment{
			Method: domain.PaymentMethodCOD,
			Status: domain.PaymentPending,
			Amount: 1000,
		},
		Pricing:   domain.OrderPricing{Subtotal: 1000, GrandTotal: 1000, Currency: "INR"},
		CreatedAt: testClock(),
		UpdatedAt: testClock(),
	}
}

func TestTransitionStatusGraph(t *testing.T) {
	legal := []struct {
		from domain.OrderStatus
		to   domain.OrderStatus
	}{
		{domain.OrderStatusPlaced, domain.OrderStatusPreflight},
		{domain.OrderStatusPreflight, domain.OrderStatusProofReady},
		{domain.OrderStatusProofReady, domain.OrderStatusApproved},
		{domain.OrderStatusApproved, domain.OrderStatusInProduction},
		{domain.OrderStatusInProduction, domain.OrderStatusReadyForPickup},
		{domain.OrderStatusInProduction, domain.OrderStatusShipped},
		{domain.OrderStatusReadyForPickup, domain.OrderStatusCompleted},
		{domain.OrderStatusShipped, domain.OrderStatusCompleted},
	}
	for _, tc := range legal {
		t.Run(fmt.Sprintf("%s to %s", tc.from, tc.to), func(t *testing.T) {
			fixture := newOrderServiceFixture(t)
			fixture.orders.orders["CP1"] = placedOrder("CP1", tc.from)
			updated, err := fixture.service.TransitionStatus(context.Background(), TransitionStatusCommand{
				OrderID: "CP1",
				Target:  tc.to,
				Actor:   "staff-1",
			})
			if err != nil {
				t.Fatalf("TransitionStatus() error = %v", err)
			}
			if updated.Status != tc.to {
				t.Errorf("Status = %q, want %q", updated.Status, tc.to)
			}
		})
	}

	illegal := []struct {
		from domain.OrderStatus
		to   domain.OrderStatus
	}{
		{domain.OrderStatusPlaced, domain.OrderStatusApproved},
		{domain.OrderStatusPlaced, domain.OrderStatusCompleted},
		{domain.OrderStatusApproved, domain.OrderStatusPreflight},
		{domain.OrderStatusShipped, domain.OrderStatusReadyForPickup},
		{domain.OrderStatusCompleted, domain.OrderStatusCancelled},
		{domain.OrderStatusCompleted, domain.OrderStatusPlaced},
		{domain.OrderStatusCancelled, domain.OrderStatusPlaced},
		{domain.OrderStatusCancelled, domain.OrderStatusCompleted},
	}
	for _, tc := range illegal {
		t.Run(fmt.Sprintf("%s to %s rejected", tc.from, tc.to), func(t *testing.T) {
			fixture := newOrderServiceFixture(t)
			fixture.orders.orders["CP1"] = placedOrder("CP1", tc.from)
			_, err := fixture.service.TransitionStatus(context.Background(), TransitionStatusCommand{
				OrderID: "CP1",
				Target:  tc.to,
			})
			if !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("TransitionStatus() error = %v, want ErrIllegalTransition", err)
			}
		})
	}
}

func TestTransitionStatusCancelledFromAnyOpenState(t *testing.T) {
	open := []domain.OrderStatus{
		domain.OrderStatusPlaced,
		domain.OrderStatusPreflight,
		domain.OrderStatusProofReady,
		domain.OrderStatusApproved,
		domain.OrderStatusInProduction,
		domain.OrderStatusReadyForPickup,
		domain.OrderStatusShipped,
	}
	for _, from := range open {
		t.Run(string(from), func(t *testing.T) {
			fixture := newOrderServiceFixture(t)
			fixture.orders.orders["CP1"] = placedOrder("CP1", from)
			updated, err := fixture.service.TransitionStatus(context.Background(), TransitionStatusCommand{
				OrderID: "CP1",
				Target:  domain.OrderStatusCancelled,
			})
			if err != nil {
				t.Fatalf("TransitionStatus() error = %v", err)
			}
			if updated.Status != domain.OrderStatusCancelled {
				t.Errorf("Status = %q, want cancelled", updated.Status)
			}
		})
	}
}

func TestTransitionStatusSideEffects(t *testing.T) {
	t.Run("completed sets completion timestamp", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusShipped)
		updated, err := fixture.service.TransitionStatus(context.Background(), TransitionStatusCommand{
			OrderID: "CP1",
			Target:  domain.OrderStatusCompleted,
		})
		if err != nil {
			t.Fatalf("TransitionStatus() error = %v", err)
		}
		if updated.CompletedAt == nil || !updated.CompletedAt.Equal(testClock()) {
			t.Errorf("CompletedAt = %v, want clock time", updated.CompletedAt)
		}
	})

	t.Run("shipped attaches tracking", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusInProduction)
		updated, err := fixture.service.TransitionStatus(context.Background(), TransitionStatusCommand{
			OrderID:  "CP1",
			Target:   domain.OrderStatusShipped,
			Tracking: &domain.Tracking{Carrier: "BlueDart", Number: "BD123"},
		})
		if err != nil {
			t.Fatalf("TransitionStatus() error = %v", err)
		}
		tracking := updated.Delivery.Tracking
		if tracking == nil || tracking.Carrier != "BlueDart" || tracking.Number != "BD123" {
			t.Fatalf("Tracking = %+v, want carrier and number stored", tracking)
		}
		if tracking.ShippedAt.IsZero() {
			t.Errorf("ShippedAt not defaulted")
		}
	})

	t.Run("status change event dispatched", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusPlaced)
		if _, err := fixture.service.TransitionStatus(context.Background(), TransitionStatusCommand{
			OrderID: "CP1",
			Target:  domain.OrderStatusPreflight,
		}); err != nil {
			t.Fatalf("TransitionStatus() error = %v", err)
		}
		types := fixture.dispatcher.types()
		if len(types) != 1 || types[0] != notifications.EventOrderStatusChanged {
			t.Errorf("dispatched events = %v, want [order.status_changed]", types)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		_, err := fixture.service.TransitionStatus(context.Background(), TransitionStatusCommand{
			OrderID: "CP404",
			Target:  domain.OrderStatusPreflight,
		})
		if !errors.Is(err, ErrOrderNotFound) {
			t.Errorf("TransitionStatus() error = %v, want ErrOrderNotFound", err)
		}
	})

	t.Run("unknown target status", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusPlaced)
		_, err := fixture.service.TransitionStatus(context.Background(), TransitionStatusCommand{
			OrderID: "CP1",
			Target:  "lost_in_mail",
		})
		if !errors.Is(err, ErrOrderInvalidInput) {
			t.Errorf("TransitionStatus() error = %v, want ErrOrderInvalidInput", err)
		}
	})
}

func TestBulkTransitionReportsPerOrderOutcomes(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusPlaced)
	fixture.orders.orders["CP2"] = placedOrder("CP2", domain.OrderStatusCompleted)
	fixture.orders.orders["CP3"] = placedOrder("CP3", domain.OrderStatusPlaced)

	results := fixture.service.BulkTransition(context.Background(), BulkTransitionCommand{
		OrderIDs: []string{"CP1", "CP2", "CP404", "CP3"},
		Target:   domain.OrderStatusPreflight,
		Actor:    "staff-1",
	})
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	if results[0].Err != nil || results[0].Order.Status != domain.OrderStatusPreflight {
		t.Errorf("CP1 result = %+v, want successful transition", results[0])
	}
	if !errors.Is(results[1].Err, ErrIllegalTransition) {
		t.Errorf("CP2 error = %v, want ErrIllegalTransition", results[1].Err)
	}
	if !errors.Is(results[2].Err, ErrOrderNotFound) {
		t.Errorf("CP404 error = %v, want ErrOrderNotFound", results[2].Err)
	}
	if results[3].Err != nil {
		t.Errorf("CP3 error = %v, want success after earlier failures", results[3].Err)
	}
}

func TestCancelOrder(t *testing.T) {
	t.Run("sets reason and timestamp", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusPreflight)
		updated, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{
			OrderID: "CP1",
			Reason:  "customer request",
			Actor:   "staff-1",
		})
		if err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if updated.Status != domain.OrderStatusCancelled {
			t.Errorf("Status = %q, want cancelled", updated.Status)
		}
		if updated.CancelledAt == nil {
			t.Error("CancelledAt not set")
		}
		if updated.CancelReason == nil || *updated.CancelReason != "customer request" {
			t.Errorf("CancelReason = %v, want customer request", updated.CancelReason)
		}
	})

	t.Run("terminal order rejected", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusCompleted)
		if _, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{OrderID: "CP1"}); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("Cancel() error = %v, want ErrIllegalTransition", err)
		}
	})

	t.Run("captured payment refunded best effort", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		paymentID := "pay_123"
		order := placedOrder("CP1", domain.OrderStatusPreflight)
		order.Payment.Method = domain.PaymentMethodRazorpay
		order.Payment.Status = domain.PaymentPaid
		order.Payment.ProviderPaymentID = &paymentID
		fixture.orders.orders["CP1"] = order

		updated, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{OrderID: "CP1", Reason: "oops"})
		if err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if len(fixture.gateway.refundedReqs) != 1 || fixture.gateway.refundedReqs[0].PaymentID != paymentID {
			t.Fatalf("refund requests = %+v, want one for %s", fixture.gateway.refundedReqs, paymentID)
		}
		if updated.Payment.Status != domain.PaymentRefunded {
			t.Errorf("Payment.Status = %q, want refunded", updated.Payment.Status)
		}
	})

	t.Run("refund failure keeps cancellation", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.gateway.refundErr = errors.New("gateway down")
		paymentID := "pay_123"
		order := placedOrder("CP1", domain.OrderStatusPreflight)
		order.Payment.Method = domain.PaymentMethodRazorpay
		order.Payment.Status = domain.PaymentPaid
		order.Payment.ProviderPaymentID = &paymentID
		fixture.orders.orders["CP1"] = order

		updated, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{OrderID: "CP1"})
		if err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if updated.Status != domain.OrderStatusCancelled {
			t.Errorf("Status = %q, want cancelled despite refund failure", updated.Status)
		}
		if updated.Payment.Status != domain.PaymentPaid {
			t.Errorf("Payment.Status = %q, want unchanged paid", updated.Payment.Status)
		}
	})
}

func TestGetOrderOwnership(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusPlaced)

	t.Run("owner reads own order", func(t *testing.T) {
		order, err := fixture.service.GetOrder(context.Background(), "CP1", OrderReadOptions{CustomerUID: "uid-1"})
		if err != nil {
			t.Fatalf("GetOrder() error = %v", err)
		}
		if order.ID != "CP1" {
			t.Errorf("ID = %q, want CP1", order.ID)
		}
	})

	t.Run("other customer sees not found", func(t *testing.T) {
		if _, err := fixture.service.GetOrder(context.Background(), "CP1", OrderReadOptions{CustomerUID: "uid-2"}); !errors.Is(err, ErrOrderNotFound) {
			t.Errorf("GetOrder() error = %v, want ErrOrderNotFound", err)
		}
	})

	t.Run("staff reads any order", func(t *testing.T) {
		if _, err := fixture.service.GetOrder(context.Background(), "CP1", OrderReadOptions{Staff: true}); err != nil {
			t.Errorf("GetOrder() error = %v", err)
		}
	})
}

func TestApplyPaymentEvent(t *testing.T) {
	t.Run("capture updates payment and dispatches", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusPlaced)

		updated, err := fixture.service.ApplyPaymentEvent(context.Background(), PaymentEventCommand{
			OrderID:           "CP1",
			Status:            domain.PaymentPaid,
			ProviderOrderID:   "order_rzp_1",
			ProviderPaymentID: "pay_1",
			Amount:            1000,
		})
		if err != nil {
			t.Fatalf("ApplyPaymentEvent() error = %v", err)
		}
		if updated.Payment.Status != domain.PaymentPaid {
			t.Errorf("Payment.Status = %q, want paid", updated.Payment.Status)
		}
		if updated.Payment.ProviderPaymentID == nil || *updated.Payment.ProviderPaymentID != "pay_1" {
			t.Errorf("ProviderPaymentID = %v, want pay_1", updated.Payment.ProviderPaymentID)
		}
		if updated.Status != domain.OrderStatusPlaced {
			t.Errorf("order status changed to %q, payment events must not move the workflow", updated.Status)
		}
		types := fixture.dispatcher.types()
		if len(types) != 1 || types[0] != notifications.EventPaymentCaptured {
			t.Errorf("dispatched events = %v, want [payment.captured]", types)
		}
	})

	t.Run("unsupported status", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		fixture.orders.orders["CP1"] = placedOrder("CP1", domain.OrderStatusPlaced)
		if _, err := fixture.service.ApplyPaymentEvent(context.Background(), PaymentEventCommand{
			OrderID: "CP1",
			Status:  domain.PaymentPending,
		}); !errors.Is(err, ErrOrderInvalidInput) {
			t.Errorf("ApplyPaymentEvent() error = %v, want ErrOrderInvalidInput", err)
		}
	})

	t.Run("redelivered capture cannot regress a refund", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		refunded := placedOrder("CP1", domain.OrderStatusCancelled)
		refunded.Payment.Status = domain.PaymentRefunded
		fixture.orders.orders["CP1"] = refunded

		updated, err := fixture.service.ApplyPaymentEvent(context.Background(), PaymentEventCommand{
			OrderID:           "CP1",
			Status:            domain.PaymentPaid,
			ProviderPaymentID: "pay_1",
		})
		if err != nil {
			t.Fatalf("ApplyPaymentEvent() error = %v", err)
		}
		if updated.Payment.Status != domain.PaymentRefunded {
			t.Errorf("Payment.Status = %q, want refunded to stick", updated.Payment.Status)
		}
		if len(fixture.dispatcher.types()) != 0 {
			t.Errorf("dispatched events = %v, want none for an ignored event", fixture.dispatcher.types())
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		fixture := newOrderServiceFixture(t)
		if _, err := fixture.service.ApplyPaymentEvent(context.Background(), PaymentEventCommand{
			OrderID: "CP404",
			Status:  domain.PaymentPaid,
		}); !errors.Is(err, ErrOrderNotFound) {
			t.Errorf("ApplyPaymentEvent() error = %v, want ErrOrderNotFound", err)
		}
	})
}
