package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/platform/auth"
	"github.com/cityprint/api/internal/platform/httpx"
	"github.com/cityprint/api/internal/services"
)

// ProductHandler serves the public catalog endpoints.
type ProductHandler struct {
	catalog services.CatalogService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(catalog services.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type productVariantPayload struct {
	ID       string  `json:"id"`
	Size     string  `json:"size,omitempty"`
	Material string  `json:"material,omitempty"`
	Finish   string  `json:"finish,omitempty"`
	SKU      *string `json:"sku,omitempty"`
	Price    int64   `json:"price"`
	InStock  bool    `json:"inStock"`
}

type optionValuePayload struct {
	Value      string  `json:"value"`
	PriceDelta float64 `json:"priceDelta"`
	DeltaType  string  `json:"deltaType"`
}

type productOptionPayload struct {
	Name     string               `json:"name"`
	Type     string               `json:"type"`
	Required bool                 `json:"required"`
	Values   []optionValuePayload `json:"values,omitempty"`
}

type pricingTierPayload struct {
	MinQty    int   `json:"minQty"`
	UnitPrice int64 `json:"unitPrice"`
}

type areaPricingPayload struct {
	PricePerSqFt int64 `json:"pricePerSqFt"`
	MinCharge    int64 `json:"minCharge"`
}

type productPayload struct {
	ID              string                  `json:"id"`
	Slug            string                  `json:"slug,omitempty"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description,omitempty"`
	Category        string                  `json:"category,omitempty"`
	BasePrice       int64                   `json:"basePrice"`
	PricingMethod   string                  `json:"pricingMethod"`
	Variants        []productVariantPayload `json:"variants,omitempty"`
	Options         []productOptionPayload  `json:"options,omitempty"`
	PricingTiers    []pricingTierPayload    `json:"pricingTiers,omitempty"`
	AreaPricing     *areaPricingPayload     `json:"areaPricing,omitempty"`
	SameDayEligible bool                    `json:"sameDayEligible"`
	SameDayCutoff   string                  `json:"sameDayCutoff,omitempty"`
	Active          bool                    `json:"active"`
}

func productToPayload(product domain.Product) productPayload {
	payload := productPayload{
		ID:              product.ID,
		Slug:            product.Slug,
		Name:            product.Name,
		Description:     product.Description,
		Category:        product.Category,
		BasePrice:       product.BasePrice,
		PricingMethod:   string(product.PricingMethod),
		SameDayEligible: product.SameDayEligible,
		SameDayCutoff:   product.SameDayCutoff,
		Active:          product.Active,
	}
	for _, variant := range product.Variants {
		payload.Variants = append(payload.Variants, productVariantPayload{
			ID:       variant.ID,
			Size:     variant.Size,
			Material: variant.Material,
			Finish:   variant.Finish,
			SKU:      variant.SKU,
			Price:    variant.Price,
			InStock:  variant.InStock,
		})
	}
	for _, option := range product.Options {
		optionPayload := productOptionPayload{
			Name:     option.Name,
			Type:     string(option.Type),
			Required: option.Required,
		}
		for _, value := range option.Values {
			optionPayload.Values = append(optionPayload.Values, optionValuePayload{
				Value:      value.Value,
				PriceDelta: value.PriceDelta,
				DeltaType:  string(value.DeltaType),
			})
		}
		payload.Options = append(payload.Options, optionPayload)
	}
	for _, tier := range product.PricingTiers {
		payload.PricingTiers = append(payload.PricingTiers, pricingTierPayload{
			MinQty:    tier.MinQty,
			UnitPrice: tier.UnitPrice,
		})
	}
	if product.AreaPricing != nil {
		payload.AreaPricing = &areaPricingPayload{
			PricePerSqFt: product.AreaPricing.PricePerSqFt,
			MinCharge:    product.AreaPricing.MinCharge,
		}
	}
	return payload
}

// List serves GET /api/v1/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, _ := auth.IdentityFromContext(ctx)
	staff := identity != nil && identity.IsStaff()

	page, err := h.catalog.ListProducts(ctx, services.ListProductsCommand{
		Category:      r.URL.Query().Get("category"),
		IncludeHidden: staff && r.URL.Query().Get("includeHidden") == "true",
		Pagination: domain.Pagination{
			PageSize:  queryInt(r, "pageSize"),
			PageToken: r.URL.Query().Get("pageToken"),
		},
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	products := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		products = append(products, productToPayload(product))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"products":      products,
		"nextPageToken": page.NextPageToken,
	})
}

// Get serves GET /api/v1/products/{productID}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, _ := auth.IdentityFromContext(ctx)
	staff := identity != nil && identity.IsStaff()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"), services.OrderReadOptions{Staff: staff})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"product": productToPayload(product),
	})
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
