package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/cityprint/api/internal/domain"
	pfirestore "github.com/cityprint/api/internal/platform/firestore"
	"github.com/cityprint/api/internal/repositories"
)

const productsCollection = "products"

type productVariantDocument struct {
	ID       string  `firestore:"id"`
	Size     string  `firestore:"size,omitempty"`
	Material string  `firestore:"material,omitempty"`
	Finish   string  `firestore:"finish,omitempty"`
	SKU      *string `firestore:"sku,omitempty"`
	Price    int64   `firestore:"price"`
	InStock  bool    `firestore:"inStock"`
}

type optionValueDocument struct {
	Value      string  `firestore:"value"`
	PriceDelta float64 `firestore:"priceDelta"`
	DeltaType  string  `firestore:"deltaType"`
}

type productOptionDocument struct {
	Name     string                `firestore:"name"`
	Type     string                `firestore:"type"`
	Required bool                  `firestore:"required"`
	Values   []optionValueDocument `firestore:"values,omitempty"`
}

type pricingTierDocument struct {
	MinQty    int   `firestore:"minQty"`
	UnitPrice int64 `firestore:"unitPrice"`
}

type areaPricingDocument struct {
	PricePerSqFt int64 `firestore:"pricePerSqFt"`
	MinCharge    int64 `firestore:"minCharge"`
}

type productDocument struct {
	Slug            string                   `firestore:"slug"`
	Name            string                   `firestore:"name"`
	Description     string                   `firestore:"description,omitempty"`
	Category        string                   `firestore:"category"`
	BasePrice       int64                    `firestore:"basePrice"`
	PricingMethod   string                   `firestore:"pricingMethod"`
	Variants        []productVariantDocument `firestore:"variants,omitempty"`
	Options         []productOptionDocument  `firestore:"options,omitempty"`
	PricingTiers    []pricingTierDocument    `firestore:"pricingTiers,omitempty"`
	AreaPricing     *areaPricingDocument     `firestore:"areaPricing,omitempty"`
	SameDayEligible bool                     `firestore:"sameDayEligible"`
	SameDayCutoff   string                   `firestore:"sameDayCutoff,omitempty"`
	Active          bool                     `firestore:"active"`
	CreatedAt       time.Time                `firestore:"createdAt"`
	UpdatedAt       time.Time                `firestore:"updatedAt"`
}

// ProductRepository implements repositories.ProductRepository backed by Firestore.
type ProductRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		provider: provider,
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil),
	}, nil
}

// FindByID loads a product by document ID.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.provider == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	doc, err := r.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(doc.ID, doc.Data), nil
}

// List returns catalog products ordered by creation time, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	coll, err := r.products.CollectionRef(ctx)
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	query := coll.Query
	if filter.ActiveOnly {
		query = query.Where("active", "==", true)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category", "==", category)
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
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("products.list: invalid page token: %w", err)
		}
		query = query.StartAfter(tokenTime, tokenID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	type productRow struct {
		product domain.Product
		docID   string
	}

	var rows []productRow
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		rows = append(rows, productRow{product: productFromDocument(snap.Ref.ID, doc), docID: snap.Ref.ID})
	}

	nextToken := ""
	if limit > 0 && len(rows) == fetchLimit {
		last := rows[len(rows)-1]
		nextToken = encodeCursor(last.product.CreatedAt, last.docID)
		rows = rows[:len(rows)-1]
	}

	items := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.product)
	}

	return domain.CursorPage[domain.Product]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

func productFromDocument(id string, doc productDocument) domain.Product {
	product := domain.Product{
		ID:              id,
		Slug:            doc.Slug,
		Name:            doc.Name,
		Description:     doc.Description,
		Category:        doc.Category,
		BasePrice:       doc.BasePrice,
		PricingMethod:   domain.PricingMethod(doc.PricingMethod),
		SameDayEligible: doc.SameDayEligible,
		SameDayCutoff:   doc.SameDayCutoff,
		Active:          doc.Active,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}

	for _, variant := range doc.Variants {
		product.Variants = append(product.Variants, domain.ProductVariant{
			ID:       variant.ID,
			Size:     variant.Size,
			Material: variant.Material,
			Finish:   variant.Finish,
			SKU:      variant.SKU,
			Price:    variant.Price,
			InStock:  variant.InStock,
		})
	}
	for _, option := range doc.Options {
		converted := domain.ProductOption{
			Name:     option.Name,
			Type:     domain.OptionType(option.Type),
			Required: option.Required,
		}
		for _, value := range option.Values {
			converted.Values = append(converted.Values, domain.OptionValue{
				Value:      value.Value,
				PriceDelta: value.PriceDelta,
				DeltaType:  domain.PriceDeltaType(value.DeltaType),
			})
		}
		product.Options = append(product.Options, converted)
	}
	for _, tier := range doc.PricingTiers {
		product.PricingTiers = append(product.PricingTiers, domain.PricingTier{
			MinQty:    tier.MinQty,
			UnitPrice: tier.UnitPrice,
		})
	}
	if doc.AreaPricing != nil {
		product.AreaPricing = &domain.AreaPricing{
			PricePerSqFt: doc.AreaPricing.PricePerSqFt,
			MinCharge:    doc.AreaPricing.MinCharge,
		}
	}

	return product
}

// Ensure interface compliance.
var _ repositories.ProductRepository = (*ProductRepository)(nil)
