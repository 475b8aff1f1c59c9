package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/cityprint/api/internal/domain"
	pfirestore "github.com/cityprint/api/internal/platform/firestore"
	"github.com/cityprint/api/internal/repositories"
)

const ordersCollection = "orders"

type addressDocument struct {
	Line1      string `firestore:"line1"`
	Line2      string `firestore:"line2,omitempty"`
	City       string `firestore:"city"`
	State      string `firestore:"state"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
}

type customerDocument struct {
	Name    string `firestore:"name"`
	Email   string `firestore:"email"`
	Phone   string `firestore:"phone"`
	Company string `firestore:"company,omitempty"`
}

type trackingDocument struct {
	Carrier   string    `firestore:"carrier"`
	Number    string    `firestore:"number"`
	ShippedAt time.Time `firestore:"shippedAt"`
}

type deliveryDocument struct {
	Method   string            `firestore:"method"`
	Address  *addressDocument  `firestore:"address,omitempty"`
	Tracking *trackingDocument `firestore:"tracking,omitempty"`
}

type dimensionsDocument struct {
	WidthFt  float64 `firestore:"widthFt"`
	HeightFt float64 `firestore:"heightFt"`
}

type specificationDocument struct {
	Option     string              `firestore:"option"`
	Type       string              `firestore:"type"`
	Choice     string              `firestore:"choice,omitempty"`
	Enabled    *bool               `firestore:"enabled,omitempty"`
	Number     *float64            `firestore:"number,omitempty"`
	Dimensions *dimensionsDocument `firestore:"dimensions,omitempty"`
}

type orderItemDocument struct {
	ProductID      string                  `firestore:"productId"`
	ProductName    string                  `firestore:"productName"`
	Variant        string                  `firestore:"variant,omitempty"`
	Quantity       int                     `firestore:"quantity"`
	Specifications []specificationDocument `firestore:"specifications,omitempty"`
	UnitPrice      int64                   `firestore:"unitPrice"`
	TotalPrice     int64                   `firestore:"totalPrice"`
	DeliverySpeed  string                  `firestore:"deliverySpeed"`
}

type orderPricingDocument struct {
	Subtotal       int64  `firestore:"subtotal"`
	TaxAmount      int64  `firestore:"taxAmount"`
	ShippingAmount int64  `firestore:"shippingAmount"`
	DiscountAmount int64  `firestore:"discountAmount"`
	GrandTotal     int64  `firestore:"grandTotal"`
	Currency       string `firestore:"currency"`
}

type gstDocument struct {
	CGST     int64 `firestore:"cgst"`
	SGST     int64 `firestore:"sgst"`
	IGST     int64 `firestore:"igst"`
	TotalTax int64 `firestore:"totalTax"`
}

type paymentDocument struct {
	Method            string  `firestore:"method"`
	Status            string  `firestore:"status"`
	Amount            int64   `firestore:"amount"`
	ProviderOrderID   *string `firestore:"providerOrderId,omitempty"`
	ProviderPaymentID *string `firestore:"providerPaymentId,omitempty"`
}

type orderDocument struct {
	OrderNumber  string               `firestore:"orderNumber"`
	CustomerID   string               `firestore:"customerId,omitempty"`
	Customer     customerDocument     `firestore:"customer"`
	Delivery     deliveryDocument     `firestore:"delivery"`
	Items        []orderItemDocument  `firestore:"items"`
	Pricing      orderPricingDocument `firestore:"pricing"`
	GST          gstDocument          `firestore:"gst"`
	Status       string               `firestore:"status"`
	Payment      paymentDocument      `firestore:"payment"`
	CreatedBy    *string              `firestore:"createdBy,omitempty"`
	UpdatedBy    *string              `firestore:"updatedBy,omitempty"`
	CreatedAt    time.Time            `firestore:"createdAt"`
	UpdatedAt    time.Time            `firestore:"updatedAt"`
	PlacedAt     *time.Time           `firestore:"placedAt,omitempty"`
	CompletedAt  *time.Time           `firestore:"completedAt,omitempty"`
	CancelledAt  *time.Time           `firestore:"cancelledAt,omitempty"`
	CancelReason *string              `firestore:"cancelReason,omitempty"`
}

// OrderRepository implements repositories.OrderRepository backed by Firestore.
// Orders are keyed by their order number so a duplicate allocation surfaces
// as a create conflict rather than a silent overwrite.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil),
	}, nil
}

// Insert creates the order document, failing on duplicate order numbers.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}
	_, err := r.orders.Create(ctx, id, orderToDocument(order))
	return err
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.orders.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromDocument(doc.ID, doc.Data), nil
}

// List returns orders newest first, optionally filtered by customer, status,
// payment status, and creation window.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	coll, err := r.orders.CollectionRef(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	query := coll.Query
	if uid := strings.TrimSpace(filter.CustomerUID); uid != "" {
		query = query.Where("customerId", "==", uid)
	}
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment.status", "==", string(filter.PaymentStatus))
	}
	if filter.PlacedAfter != nil {
		query = query.Where("createdAt", ">=", filter.PlacedAfter.UTC())
	}
	if filter.PlacedBefore != nil {
		query = query.Where("createdAt", "<", filter.PlacedBefore.UTC())
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
		query = query.Limit(fetchLimit)
	}

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeCursor(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("orders.list: invalid page token: %w", err)
		}
		query = query.StartAfter(tokenTime, tokenID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, orderFromDocument(snap.Ref.ID, doc))
	}

	nextToken := ""
	if limit > 0 && len(orders) == fetchLimit {
		last := orders[len(orders)-1]
		nextToken = encodeCursor(last.CreatedAt, last.ID)
		orders = orders[:len(orders)-1]
	}

	return domain.CursorPage[domain.Order]{
		Items:         orders,
		NextPageToken: nextToken,
	}, nil
}

// Mutate applies fn to the order inside a transaction and persists the result.
func (r *OrderRepository) Mutate(ctx context.Context, orderID string, fn func(domain.Order) (domain.Order, error)) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if fn == nil {
		return domain.Order{}, errors.New("order repository: mutate function is required")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	var mutated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.orders.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return pfirestore.WrapError("orders.mutate", err)
			}
			return err
		}

		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", id, err)
		}

		next, err := fn(orderFromDocument(id, doc))
		if err != nil {
			return err
		}
		next.ID = id

		if err := tx.Set(ref, orderToDocument(next)); err != nil {
			return err
		}
		mutated = next
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return mutated, nil
}

func orderToDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.CustomerID,
		Customer:     customerDocument(order.Customer),
		Status:       string(order.Status),
		CreatedBy:    order.Audit.CreatedBy,
		UpdatedBy:    order.Audit.UpdatedBy,
		CreatedAt:    order.CreatedAt.UTC(),
		UpdatedAt:    order.UpdatedAt.UTC(),
		PlacedAt:     utcPtr(order.PlacedAt),
		CompletedAt:  utcPtr(order.CompletedAt),
		CancelledAt:  utcPtr(order.CancelledAt),
		CancelReason: order.CancelReason,
		Pricing: orderPricingDocument{
			Subtotal:       order.Pricing.Subtotal,
			TaxAmount:      order.Pricing.TaxAmount,
			ShippingAmount: order.Pricing.ShippingAmount,
			DiscountAmount: order.Pricing.DiscountAmount,
			GrandTotal:     order.Pricing.GrandTotal,
			Currency:       order.Pricing.Currency,
		},
		GST: gstDocument{
			CGST:     order.GST.CGST,
			SGST:     order.GST.SGST,
			IGST:     order.GST.IGST,
			TotalTax: order.GST.TotalTax,
		},
		Payment: paymentDocument{
			Method:            string(order.Payment.Method),
			Status:            string(order.Payment.Status),
			Amount:            order.Payment.Amount,
			ProviderOrderID:   order.Payment.ProviderOrderID,
			ProviderPaymentID: order.Payment.ProviderPaymentID,
		},
	}

	doc.Delivery = deliveryDocument{Method: string(order.Delivery.Method)}
	if order.Delivery.Address != nil {
		address := addressDocument(*order.Delivery.Address)
		doc.Delivery.Address = &address
	}
	if order.Delivery.Tracking != nil {
		doc.Delivery.Tracking = &trackingDocument{
			Carrier:   order.Delivery.Tracking.Carrier,
			Number:    order.Delivery.Tracking.Number,
			ShippedAt: order.Delivery.Tracking.ShippedAt.UTC(),
		}
	}

	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Variant:        item.Variant,
			Quantity:       item.Quantity,
			Specifications: specificationsToDocuments(item.Specifications),
			UnitPrice:      item.UnitPrice,
			TotalPrice:     item.TotalPrice,
			DeliverySpeed:  string(item.DeliverySpeed),
		})
	}

	return doc
}

func orderFromDocument(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:           id,
		OrderNumber:  doc.OrderNumber,
		CustomerID:   doc.CustomerID,
		Customer:     domain.Customer(doc.Customer),
		Status:       domain.OrderStatus(doc.Status),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		PlacedAt:     doc.PlacedAt,
		CompletedAt:  doc.CompletedAt,
		CancelledAt:  doc.CancelledAt,
		CancelReason: doc.CancelReason,
		Audit: domain.OrderAudit{
			CreatedBy: doc.CreatedBy,
			UpdatedBy: doc.UpdatedBy,
		},
		Pricing: domain.OrderPricing{
			Subtotal:       doc.Pricing.Subtotal,
			TaxAmount:      doc.Pricing.TaxAmount,
			ShippingAmount: doc.Pricing.ShippingAmount,
			DiscountAmount: doc.Pricing.DiscountAmount,
			GrandTotal:     doc.Pricing.GrandTotal,
			Currency:       doc.Pricing.Currency,
		},
		GST: domain.GSTBreakdown{
			CGST:     doc.GST.CGST,
			SGST:     doc.GST.SGST,
			IGST:     doc.GST.IGST,
			TotalTax: doc.GST.TotalTax,
		},
		Payment: domain.Payment{
			Method:            domain.PaymentMethod(doc.Payment.Method),
			Status:            domain.PaymentStatus(doc.Payment.Status),
			Amount:            doc.Payment.Amount,
			ProviderOrderID:   doc.Payment.ProviderOrderID,
			ProviderPaymentID: doc.Payment.ProviderPaymentID,
		},
	}

	order.Delivery = domain.Delivery{Method: domain.DeliveryMethod(doc.Delivery.Method)}
	if doc.Delivery.Address != nil {
		address := domain.Address(*doc.Delivery.Address)
		order.Delivery.Address = &address
	}
	if doc.Delivery.Tracking != nil {
		order.Delivery.Tracking = &domain.Tracking{
			Carrier:   doc.Delivery.Tracking.Carrier,
			Number:    doc.Delivery.Tracking.Number,
			ShippedAt: doc.Delivery.Tracking.ShippedAt,
		}
	}

	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Variant:        item.Variant,
			Quantity:       item.Quantity,
			Specifications: specificationsFromDocuments(item.Specifications),
			UnitPrice:      item.UnitPrice,
			TotalPrice:     item.TotalPrice,
			DeliverySpeed:  domain.DeliverySpeed(item.DeliverySpeed),
		})
	}

	return order
}

func specificationsToDocuments(specs []domain.Specification) []specificationDocument {
	if len(specs) == 0 {
		return nil
	}
	out := make([]specificationDocument, 0, len(specs))
	for _, spec := range specs {
		doc := specificationDocument{
			Option:  spec.Option,
			Type:    string(spec.Type),
			Choice:  spec.Choice,
			Enabled: spec.Enabled,
			Number:  spec.Number,
		}
		if spec.Dimensions != nil {
			dims := dimensionsDocument(*spec.Dimensions)
			doc.Dimensions = &dims
		}
		out = append(out, doc)
	}
	return out
}

func specificationsFromDocuments(docs []specificationDocument) []domain.Specification {
	if len(docs) == 0 {
		return nil
	}
	out := make([]domain.Specification, 0, len(docs))
	for _, doc := range docs {
		spec := domain.Specification{
			Option:  doc.Option,
			Type:    domain.OptionType(doc.Type),
			Choice:  doc.Choice,
			Enabled: doc.Enabled,
			Number:  doc.Number,
		}
		if doc.Dimensions != nil {
			dims := domain.Dimensions(*doc.Dimensions)
			spec.Dimensions = &dims
		}
		out = append(out, spec)
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// Ensure interface compliance.
var _ repositories.OrderRepository = (*OrderRepository)(nil)
