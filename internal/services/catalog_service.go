package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/cityprint/api/internal/domain"
	"github.com/cityprint/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput signals invalid catalog query parameters.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrProductNotFound indicates the product does not exist or is hidden.
	ErrProductNotFound = errors.New("catalog: product not found")
)

// CatalogService serves the public product catalog. Inactive products are
// invisible to non-staff callers.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string, opts OrderReadOptions) (domain.Product, error)
	ListProducts(ctx context.Context, cmd ListProductsCommand) (domain.CursorPage[domain.Product], error)
}

// CatalogServiceDeps bundles collaborators for the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
}

type catalogService struct {
	products repositories.ProductRepository
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	return &catalogService{products: deps.Products}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string, opts OrderReadOptions) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return domain.Product{}, err
	}
	if !product.Active && !opts.Staff {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return product, nil
}

// ListProductsCommand narrows a catalog listing.
type ListProductsCommand struct {
	Category      string
	IncludeHidden bool
	Pagination    domain.Pagination
}

func (s *catalogService) ListProducts(ctx context.Context, cmd ListProductsCommand) (domain.CursorPage[domain.Product], error) {
	pagination := cmd.Pagination
	if pagination.PageSize <= 0 {
		pagination.PageSize = defaultOrderPageSize
	}
	if pagination.PageSize > maxOrderPageSize {
		pagination.PageSize = maxOrderPageSize
	}

	page, err := s.products.List(ctx, repositories.ProductListFilter{
		Category:   strings.TrimSpace(cmd.Category),
		ActiveOnly: !cmd.IncludeHidden,
		Pagination: pagination,
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}
	return page, nil
}
