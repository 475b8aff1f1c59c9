package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/cityprint/api/internal/domain"
)

func newCatalogFixture(t *testing.T) CatalogService {
	t.Helper()
	service, err := NewCatalogService(CatalogServiceDeps{
		Products: &stubProductRepo{products: map[string]domain.Product{
			"flyers":  {ID: "flyers", Name: "Flyers", Active: true},
			"retired": {ID: "retired", Name: "Retired", Active: false},
		}},
	})
	if err != nil {
		t.Fatalf("NewCatalogService() error = %v", err)
	}
	return service
}

func TestGetProductVisibility(t *testing.T) {
	service := newCatalogFixture(t)

	t.Run("active product is public", func(t *testing.T) {
		product, err := service.GetProduct(context.Background(), "flyers", OrderReadOptions{})
		if err != nil {
			t.Fatalf("GetProduct() error = %v", err)
		}
		if product.ID != "flyers" {
			t.Errorf("ID = %q, want flyers", product.ID)
		}
	})

	t.Run("inactive product hidden from public", func(t *testing.T) {
		if _, err := service.GetProduct(context.Background(), "retired", OrderReadOptions{}); !errors.Is(err, ErrProductNotFound) {
			t.Errorf("GetProduct() error = %v, want ErrProductNotFound", err)
		}
	})

	t.Run("inactive product visible to staff", func(t *testing.T) {
		if _, err := service.GetProduct(context.Background(), "retired", OrderReadOptions{Staff: true}); err != nil {
			t.Errorf("GetProduct() error = %v", err)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		if _, err := service.GetProduct(context.Background(), "ghost", OrderReadOptions{}); !errors.Is(err, ErrProductNotFound) {
			t.Errorf("GetProduct() error = %v, want ErrProductNotFound", err)
		}
	})
}
