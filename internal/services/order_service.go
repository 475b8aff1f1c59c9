package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/notifications"
	"github.com/cityprint/api/internal/payments"
	"github.com/cityprint/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrEmptyOrder indicates a checkout request without items.
	ErrEmptyOrder = errors.New("order: no items")
	// ErrInvalidProduct indicates an item references a missing or inactive product.
	ErrInvalidProduct = errors.New("order: invalid product reference")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrIllegalTransition indicates the requested status is not reachable from the current one.
	ErrIllegalTransition = errors.New("order: illegal status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderNumberConflict indicates the allocator collided twice in a row.
	ErrOrderNumberConflict = errors.New("order: order number conflict")
)

// orderStateTransitions is the forward-only production workflow graph.
// cancelled is reachable from every non-terminal state; completed and
// cancelled admit nothing.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPlaced:         {domain.OrderStatusPreflight, domain.OrderStatusCancelled},
	domain.OrderStatusPreflight:      {domain.OrderStatusProofReady, domain.OrderStatusCancelled},
	domain.OrderStatusProofReady:     {domain.OrderStatusApproved, domain.OrderStatusCancelled},
	domain.OrderStatusApproved:       {domain.OrderStatusInProduction, domain.OrderStatusCancelled},
	domain.OrderStatusInProduction:   {domain.OrderStatusReadyForPickup, domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusReadyForPickup: {domain.OrderStatusCompleted, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:        {domain.OrderStatusCompleted, domain.OrderStatusCancelled},
	domain.OrderStatusCompleted:      {},
	domain.OrderStatusCancelled:      {},
}

func canTransition(from, to domain.OrderStatus) bool {
	for _, next := range orderStateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderService owns checkout composition and the order lifecycle.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error)
	GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (domain.Order, error)
	ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	TransitionStatus(ctx context.Context, cmd TransitionStatusCommand) (domain.Order, error)
	BulkTransition(ctx context.Context, cmd BulkTransitionCommand) []BulkTransitionResult
	Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
	ApplyPaymentEvent(ctx context.Context, cmd PaymentEventCommand) (domain.Order, error)
}

// OrderPricingPolicy carries the storefront pricing parameters in paise.
type OrderPricingPolicy struct {
	Currency          string
	ShippingFlatFee   int64
	FreeShippingAbove int64
	HomeState         string
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Pricing     *PricingEngine
	Tax         *GSTCalculator
	Eligibility *SameDayEligibility
	Numbers     NumberAllocator
	Gateway     payments.Gateway
	Dispatcher  notifications.Dispatcher
	Policy      OrderPricingPolicy
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	products    repositories.ProductRepository
	pricing     *PricingEngine
	tax         *GSTCalculator
	eligibility *SameDayEligibility
	numbers     NumberAllocator
	gateway     payments.Gateway
	dispatcher  notifications.Dispatcher
	policy      OrderPricingPolicy
	clock       func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewOrderService constructs the order service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order service: pricing engine is required")
	}
	if deps.Tax == nil {
		return nil, errors.New("order service: tax calculator is required")
	}
	if deps.Eligibility == nil {
		return nil, errors.New("order service: eligibility classifier is required")
	}
	if deps.Numbers == nil {
		return nil, errors.New("order service: number allocator is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = notifications.NoopDispatcher{}
	}
	policy := deps.Policy
	if strings.TrimSpace(policy.Currency) == "" {
		policy.Currency = "INR"
	}
	policy.HomeState = strings.ToUpper(strings.TrimSpace(policy.HomeState))

	return &orderService{
		orders:      deps.Orders,
		products:    deps.Products,
		pricing:     deps.Pricing,
		tax:         deps.Tax,
		eligibility: deps.Eligibility,
		numbers:     deps.Numbers,
		gateway:     deps.Gateway,
		dispatcher:  dispatcher,
		policy:      policy,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// OrderItemInput is one requested line at checkout.
type OrderItemInput struct {
	ProductID      string
	VariantID      string
	Quantity       int
	Specifications []domain.Specification
}

// CreateOrderCommand carries everything needed to compose and persist an order.
type CreateOrderCommand struct {
	CustomerUID    string
	Customer       domain.Customer
	DeliveryMethod domain.DeliveryMethod
	Address        *domain.Address
	PaymentMethod  domain.PaymentMethod
	Items          []OrderItemInput
	DiscountAmount int64
}

// CreateOrderResult is the checkout outcome. Warnings report non-fatal
// failures downstream of the persisted order (gateway, notifications).
type CreateOrderResult struct {
	Order         domain.Order
	ProviderOrder *payments.GatewayOrder
	Warnings      []string
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	if err := validateCreateOrder(cmd); err != nil {
		return CreateOrderResult{}, err
	}

	now := s.clock()

	items, subtotal, err := s.priceItems(ctx, cmd.Items)
	if err != nil {
		return CreateOrderResult{}, err
	}

	discount := cmd.DiscountAmount
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	taxable := subtotal - discount
	shipping := s.shippingAmount(cmd.DeliveryMethod, taxable)
	interstate := s.isInterstate(cmd.DeliveryMethod, cmd.Address)

	gst, err := s.tax.ComputeTax(taxable, interstate)
	if err != nil {
		return CreateOrderResult{}, err
	}

	grandTotal := subtotal - discount + gst.TotalTax + shipping

	order := domain.Order{
		CustomerID: strings.TrimSpace(cmd.CustomerUID),
		Customer:   cmd.Customer,
		Delivery: domain.Delivery{
			Method:  cmd.DeliveryMethod,
			Address: cmd.Address,
		},
		Items: items,
		Pricing: domain.OrderPricing{
			Subtotal:       subtotal,
			TaxAmount:      gst.TotalTax,
			ShippingAmount: shipping,
			DiscountAmount: discount,
			GrandTotal:     grandTotal,
			Currency:       s.policy.Currency,
		},
		GST:    gst,
		Status: domain.OrderStatusPlaced,
		Payment: domain.Payment{
			Method: cmd.PaymentMethod,
			Status: domain.PaymentPending,
			Amount: grandTotal,
		},
		CreatedAt: now,
		UpdatedAt: now,
		PlacedAt:  &now,
	}
	if uid := strings.TrimSpace(cmd.CustomerUID); uid != "" {
		order.Audit.CreatedBy = &uid
	}

	persisted, err := s.persistWithFreshNumber(ctx, order)
	if err != nil {
		return CreateOrderResult{}, err
	}

	result := CreateOrderResult{Order: persisted}

	if cmd.PaymentMethod == domain.PaymentMethodRazorpay && s.gateway != nil {
		providerOrder, gatewayErr := s.gateway.CreateOrder(ctx, payments.OrderRequest{
			Amount:   grandTotal,
			Currency: s.policy.Currency,
			Receipt:  persisted.OrderNumber,
			Notes:    map[string]string{"orderNumber": persisted.OrderNumber},
		})
		if gatewayErr != nil {
			// The order is already persisted and valid; the client can retry
			// payment initiation separately.
			s.logger(ctx, "order.gateway_order_failed", map[string]any{
				"orderNumber": persisted.OrderNumber,
				"error":       gatewayErr.Error(),
			})
			result.Warnings = append(result.Warnings, "payment provider order could not be created")
		} else {
			result.ProviderOrder = &providerOrder
			updated, mutateErr := s.orders.Mutate(ctx, persisted.ID, func(current domain.Order) (domain.Order, error) {
				current.Payment.ProviderOrderID = &providerOrder.ID
				current.UpdatedAt = s.clock()
				return current, nil
			})
			if mutateErr != nil {
				s.logger(ctx, "order.provider_id_attach_failed", map[string]any{
					"orderNumber": persisted.OrderNumber,
					"error":       mutateErr.Error(),
				})
				result.Warnings = append(result.Warnings, "payment provider reference could not be stored")
			} else {
				result.Order = updated
			}
		}
	}

	s.dispatcher.Dispatch(ctx, notifications.OrderEvent{
		Type:          notifications.EventOrderPlaced,
		OrderID:       result.Order.ID,
		OrderNumber:   result.Order.OrderNumber,
		CustomerName:  result.Order.Customer.Name,
		CustomerEmail: result.Order.Customer.Email,
		CustomerPhone: result.Order.Customer.Phone,
		ToStatus:      result.Order.Status,
		GrandTotal:    result.Order.Pricing.GrandTotal,
		Currency:      result.Order.Pricing.Currency,
		OccurredAt:    now,
	})

	return result, nil
}

// persistWithFreshNumber allocates an order number and creates the document.
// A create conflict means the allocator collided, which should be unreachable;
// one retry with a fresh number is attempted before surfacing the failure.
func (s *orderService) persistWithFreshNumber(ctx context.Context, order domain.Order) (domain.Order, error) {
	for attempt := 0; attempt < 2; attempt++ {
		number, err := s.numbers.NextOrderNumber(ctx)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order: allocate number: %w", err)
		}
		order.ID = number
		order.OrderNumber = number

		err = s.orders.Insert(ctx, order)
		if err == nil {
			return order, nil
		}
		if isRepoConflict(err) {
			s.logger(ctx, "order.number_collision", map[string]any{
				"orderNumber": number,
				"attempt":     attempt + 1,
			})
			continue
		}
		return domain.Order{}, s.mapRepositoryError(err)
	}
	return domain.Order{}, ErrOrderNumberConflict
}

func (s *orderService) priceItems(ctx context.Context, inputs []OrderItemInput) ([]domain.OrderItem, int64, error) {
	items := make([]domain.OrderItem, 0, len(inputs))
	var subtotal int64

	for _, input := range inputs {
		productID := strings.TrimSpace(input.ProductID)
		if productID == "" {
			return nil, 0, fmt.Errorf("%w: item product id is required", ErrOrderInvalidInput)
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if isRepoNotFound(err) {
				return nil, 0, fmt.Errorf("%w: %s", ErrInvalidProduct, productID)
			}
			return nil, 0, s.mapRepositoryError(err)
		}
		if !product.Active {
			return nil, 0, fmt.Errorf("%w: %s is inactive", ErrInvalidProduct, productID)
		}

		priced, err := s.pricing.PriceLine(ctx, PriceLineCommand{
			Product:    product,
			VariantID:  input.VariantID,
			Quantity:   input.Quantity,
			Selections: input.Specifications,
		})
		if err != nil {
			return nil, 0, err
		}

		speed, err := s.eligibility.Classify(product)
		if err != nil {
			s.logger(ctx, "order.eligibility_failed", map[string]any{
				"productId": productID,
				"error":     err.Error(),
			})
			speed = domain.DeliveryStandard
		}

		items = append(items, domain.OrderItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Variant:        priced.VariantLabel,
			Quantity:       input.Quantity,
			Specifications: cloneSpecifications(input.Specifications),
			UnitPrice:      priced.UnitPrice,
			TotalPrice:     priced.LineTotal,
			DeliverySpeed:  speed,
		})
		subtotal += priced.LineTotal
	}

	return items, subtotal, nil
}

func (s *orderService) shippingAmount(method domain.DeliveryMethod, netSubtotal int64) int64 {
	if method != domain.DeliveryCourier {
		return 0
	}
	if s.policy.FreeShippingAbove > 0 && netSubtotal >= s.policy.FreeShippingAbove {
		return 0
	}
	return s.policy.ShippingFlatFee
}

func (s *orderService) isInterstate(method domain.DeliveryMethod, address *domain.Address) bool {
	if method != domain.DeliveryCourier || address == nil {
		// Pickup is supplied at the shop, always intrastate.
		return false
	}
	state := strings.ToUpper(strings.TrimSpace(address.State))
	if state == "" || s.policy.HomeState == "" {
		return false
	}
	return state != s.policy.HomeState
}

// OrderReadOptions scopes reads to the requesting principal.
type OrderReadOptions struct {
	CustomerUID string
	Staff       bool
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	if !opts.Staff {
		uid := strings.TrimSpace(opts.CustomerUID)
		if uid == "" || order.CustomerID != uid {
			// Do not reveal existence of other customers' orders.
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
	}

	return order, nil
}

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

func (s *orderService) ListOrders(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if filter.Pagination.PageSize <= 0 {
		filter.Pagination.PageSize = defaultOrderPageSize
	}
	if filter.Pagination.PageSize > maxOrderPageSize {
		filter.Pagination.PageSize = maxOrderPageSize
	}
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// TransitionStatusCommand requests a single status move.
type TransitionStatusCommand struct {
	OrderID  string
	Target   domain.OrderStatus
	Actor    string
	Tracking *domain.Tracking
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd TransitionStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.Target == "" {
		return domain.Order{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}
	if _, known := orderStateTransitions[cmd.Target]; !known {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	var fromStatus domain.OrderStatus
	now := s.clock()

	updated, err := s.orders.Mutate(ctx, orderID, func(current domain.Order) (domain.Order, error) {
		if !canTransition(current.Status, cmd.Target) {
			return domain.Order{}, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, current.Status, cmd.Target)
		}
		fromStatus = current.Status
		current.Status = cmd.Target
		current.UpdatedAt = now
		if actor := strings.TrimSpace(cmd.Actor); actor != "" {
			current.Audit.UpdatedBy = &actor
		}

		switch cmd.Target {
		case domain.OrderStatusCompleted:
			current.CompletedAt = &now
		case domain.OrderStatusShipped:
			if cmd.Tracking != nil {
				tracking := *cmd.Tracking
				if tracking.ShippedAt.IsZero() {
					tracking.ShippedAt = now
				}
				current.Delivery.Tracking = &tracking
			}
		}
		return current, nil
	})
	if err != nil {
		if errors.Is(err, ErrIllegalTransition) {
			return domain.Order{}, err
		}
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.dispatcher.Dispatch(ctx, notifications.OrderEvent{
		Type:          notifications.EventOrderStatusChanged,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		CustomerName:  updated.Customer.Name,
		CustomerEmail: updated.Customer.Email,
		CustomerPhone: updated.Customer.Phone,
		FromStatus:    fromStatus,
		ToStatus:      updated.Status,
		OccurredAt:    now,
	})

	return updated, nil
}

// BulkTransitionCommand requests the same target status for several orders.
type BulkTransitionCommand struct {
	OrderIDs []string
	Target   domain.OrderStatus
	Actor    string
}

// BulkTransitionResult reports the per-order outcome of a bulk transition.
type BulkTransitionResult struct {
	OrderID string
	Order   domain.Order
	Err     error
}

// BulkTransition validates and applies the transition per order independently;
// one illegal member never rolls back the others.
func (s *orderService) BulkTransition(ctx context.Context, cmd BulkTransitionCommand) []BulkTransitionResult {
	results := make([]BulkTransitionResult, 0, len(cmd.OrderIDs))
	for _, orderID := range cmd.OrderIDs {
		order, err := s.TransitionStatus(ctx, TransitionStatusCommand{
			OrderID: orderID,
			Target:  cmd.Target,
			Actor:   cmd.Actor,
		})
		results = append(results, BulkTransitionResult{
			OrderID: strings.TrimSpace(orderID),
			Order:   order,
			Err:     err,
		})
	}
	return results
}

// CancelOrderCommand requests cancellation of a non-terminal order.
type CancelOrderCommand struct {
	OrderID string
	Reason  string
	Actor   string
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	now := s.clock()

	updated, err := s.orders.Mutate(ctx, orderID, func(current domain.Order) (domain.Order, error) {
		if current.Status.Terminal() {
			return domain.Order{}, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, current.Status, domain.OrderStatusCancelled)
		}
		current.Status = domain.OrderStatusCancelled
		current.UpdatedAt = now
		current.CancelledAt = &now
		if reason := strings.TrimSpace(cmd.Reason); reason != "" {
			current.CancelReason = &reason
		}
		if actor := strings.TrimSpace(cmd.Actor); actor != "" {
			current.Audit.UpdatedBy = &actor
		}
		return current, nil
	})
	if err != nil {
		if errors.Is(err, ErrIllegalTransition) {
			return domain.Order{}, err
		}
		return domain.Order{}, s.mapRepositoryError(err)
	}

	// Captured online payments are refunded best-effort; a refund failure
	// never un-cancels the order.
	if updated.Payment.Method == domain.PaymentMethodRazorpay &&
		updated.Payment.Status == domain.PaymentPaid &&
		updated.Payment.ProviderPaymentID != nil &&
		s.gateway != nil {
		if _, refundErr := s.gateway.Refund(ctx, payments.RefundRequest{
			PaymentID: *updated.Payment.ProviderPaymentID,
			Notes:     map[string]string{"orderNumber": updated.OrderNumber, "reason": "order cancelled"},
		}); refundErr != nil {
			s.logger(ctx, "order.refund_failed", map[string]any{
				"orderNumber": updated.OrderNumber,
				"error":       refundErr.Error(),
			})
		} else {
			refunded, mutateErr := s.orders.Mutate(ctx, orderID, func(current domain.Order) (domain.Order, error) {
				current.Payment.Status = domain.PaymentRefunded
				current.UpdatedAt = s.clock()
				return current, nil
			})
			if mutateErr == nil {
				updated = refunded
			}
		}
	}

	s.dispatcher.Dispatch(ctx, notifications.OrderEvent{
		Type:          notifications.EventOrderCancelled,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		CustomerName:  updated.Customer.Name,
		CustomerEmail: updated.Customer.Email,
		CustomerPhone: updated.Customer.Phone,
		ToStatus:      updated.Status,
		OccurredAt:    now,
	})

	return updated, nil
}

// PaymentEventCommand applies a gateway payment outcome to an order. OrderID
// is the order number carried in the gateway receipt.
type PaymentEventCommand struct {
	OrderID           string
	Status            domain.PaymentStatus
	ProviderOrderID   string
	ProviderPaymentID string
	Amount            int64
}

func (s *orderService) ApplyPaymentEvent(ctx context.Context, cmd PaymentEventCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	switch cmd.Status {
	case domain.PaymentPaid, domain.PaymentFailed, domain.PaymentRefunded:
	default:
		return domain.Order{}, fmt.Errorf("%w: unsupported payment status %q", ErrOrderInvalidInput, cmd.Status)
	}

	now := s.clock()

	var stale bool
	updated, err := s.orders.Mutate(ctx, orderID, func(current domain.Order) (domain.Order, error) {
		// Refunded is final for a payment; a redelivered capture or failure
		// event must not overwrite it.
		if current.Payment.Status == domain.PaymentRefunded && cmd.Status != domain.PaymentRefunded {
			stale = true
			return current, nil
		}
		if cmd.Amount > 0 && cmd.Amount != current.Payment.Amount {
			s.logger(ctx, "order.payment_amount_mismatch", map[string]any{
				"orderNumber": current.OrderNumber,
				"expected":    current.Payment.Amount,
				"reported":    cmd.Amount,
			})
		}
		current.Payment.Status = cmd.Status
		if id := strings.TrimSpace(cmd.ProviderOrderID); id != "" {
			current.Payment.ProviderOrderID = &id
		}
		if id := strings.TrimSpace(cmd.ProviderPaymentID); id != "" {
			current.Payment.ProviderPaymentID = &id
		}
		current.UpdatedAt = now
		return current, nil
	})
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if stale {
		s.logger(ctx, "order.payment_event_ignored", map[string]any{
			"orderNumber": updated.OrderNumber,
			"current":     string(updated.Payment.Status),
			"reported":    string(cmd.Status),
		})
		return updated, nil
	}

	eventType := notifications.EventPaymentCaptured
	switch cmd.Status {
	case domain.PaymentFailed:
		eventType = notifications.EventPaymentFailed
	case domain.PaymentRefunded:
		eventType = notifications.EventPaymentRefunded
	}
	s.dispatcher.Dispatch(ctx, notifications.OrderEvent{
		Type:          eventType,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		CustomerName:  updated.Customer.Name,
		CustomerEmail: updated.Customer.Email,
		CustomerPhone: updated.Customer.Phone,
		GrandTotal:    updated.Pricing.GrandTotal,
		Currency:      updated.Pricing.Currency,
		OccurredAt:    now,
	})

	return updated, nil
}

func validateCreateOrder(cmd CreateOrderCommand) error {
	if len(cmd.Items) == 0 {
		return ErrEmptyOrder
	}
	if strings.TrimSpace(cmd.Customer.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.Customer.Email) == "" && strings.TrimSpace(cmd.Customer.Phone) == "" {
		return fmt.Errorf("%w: customer email or phone is required", ErrOrderInvalidInput)
	}
	switch cmd.DeliveryMethod {
	case domain.DeliveryPickup:
	case domain.DeliveryCourier:
		if cmd.Address == nil {
			return fmt.Errorf("%w: courier delivery requires an address", ErrOrderInvalidInput)
		}
		if strings.TrimSpace(cmd.Address.Line1) == "" || strings.TrimSpace(cmd.Address.City) == "" ||
			strings.TrimSpace(cmd.Address.State) == "" || strings.TrimSpace(cmd.Address.PostalCode) == "" {
			return fmt.Errorf("%w: courier address is incomplete", ErrOrderInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown delivery method %q", ErrOrderInvalidInput, cmd.DeliveryMethod)
	}
	switch cmd.PaymentMethod {
	case domain.PaymentMethodRazorpay, domain.PaymentMethodCOD:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, cmd.PaymentMethod)
	}
	for _, item := range cmd.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidQuantity, item.Quantity)
		}
	}
	return nil
}

func cloneSpecifications(specs []domain.Specification) []domain.Specification {
	if len(specs) == 0 {
		return nil
	}
	out := make([]domain.Specification, len(specs))
	copy(out, specs)
	for idx := range out {
		if out[idx].Enabled != nil {
			enabled := *out[idx].Enabled
			out[idx].Enabled = &enabled
		}
		if out[idx].Number != nil {
			number := *out[idx].Number
			out[idx].Number = &number
		}
		if out[idx].Dimensions != nil {
			dims := *out[idx].Dimensions
			out[idx].Dimensions = &dims
		}
	}
	return out
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		}
	}
	return err
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
