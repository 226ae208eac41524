package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/repositories"
)

func newTestCatalogService(t *testing.T, repo *stubProductRepository) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{
		Repository:  repo,
		Clock:       fixedClock(testNow),
		IDGenerator: func() string { return "prod-new" },
	})
	if err != nil {
		t.Fatalf("NewCatalogService returned error: %v", err)
	}
	return svc
}

func TestCreateProductAssignsIDAndTimestamps(t *testing.T) {
	var inserted domain.Product
	repo := &stubProductRepository{
		insertFn: func(_ context.Context, product domain.Product) error {
			inserted = product
			return nil
		},
	}
	svc := newTestCatalogService(t, repo)

	product, err := svc.CreateProduct(context.Background(), UpsertProductCommand{
		Name:      "  Lavender Candle  ",
		UnitPrice: 2499,
		Category:  "candles",
		InStock:   true,
	})
	if err != nil {
		t.Fatalf("CreateProduct returned error: %v", err)
	}

	if product.ID != "prod-new" {
		t.Fatalf("id = %q", product.ID)
	}
	if product.Name != "Lavender Candle" {
		t.Fatalf("name = %q, want trimmed", product.Name)
	}
	if !product.CreatedAt.Equal(testNow) || !product.UpdatedAt.Equal(testNow) {
		t.Fatalf("timestamps = %v / %v, want %v", product.CreatedAt, product.UpdatedAt, testNow)
	}
	if inserted.ID != product.ID {
		t.Fatalf("inserted %+v, want the returned product", inserted)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestCatalogService(t, &stubProductRepository{})

	cases := []struct {
		name string
		cmd  UpsertProductCommand
	}{
		{name: "missing name", cmd: UpsertProductCommand{UnitPrice: 100}},
		{name: "zero price", cmd: UpsertProductCommand{Name: "Candle", UnitPrice: 0}},
		{name: "negative price", cmd: UpsertProductCommand{Name: "Candle", UnitPrice: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateProduct(context.Background(), tc.cmd); !errors.Is(err, ErrCatalogInvalidInput) {
				t.Fatalf("error = %v, want ErrCatalogInvalidInput", err)
			}
		})
	}
}

func TestUpdateProductPreservesCreatedAt(t *testing.T) {
	created := testNow.Add(-48 * time.Hour)
	repo := &stubProductRepository{
		findByIDFn: func(context.Context, string) (domain.Product, error) {
			product := candleProduct()
			product.CreatedAt = created
			return product, nil
		},
	}
	svc := newTestCatalogService(t, repo)

	product, err := svc.UpdateProduct(context.Background(), "prod-1", UpsertProductCommand{
		Name:      "Lavender Candle XL",
		UnitPrice: 2999,
		InStock:   true,
	})
	if err != nil {
		t.Fatalf("UpdateProduct returned error: %v", err)
	}
	if !product.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want original %v", product.CreatedAt, created)
	}
	if !product.UpdatedAt.Equal(testNow) {
		t.Fatalf("UpdatedAt = %v, want %v", product.UpdatedAt, testNow)
	}
	if product.UnitPrice != 2999 {
		t.Fatalf("unit price = %d", product.UnitPrice)
	}
}

func TestGetProductTranslatesNotFound(t *testing.T) {
	svc := newTestCatalogService(t, &stubProductRepository{})
	if _, err := svc.GetProduct(context.Background(), "missing"); !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("error = %v, want ErrCatalogNotFound", err)
	}
}

func TestListProductsForwardsFilter(t *testing.T) {
	var gotFilter repositories.ProductFilter
	repo := &stubProductRepository{
		listFn: func(_ context.Context, filter repositories.ProductFilter) (domain.CursorPage[domain.Product], error) {
			gotFilter = filter
			return domain.CursorPage[domain.Product]{Items: []domain.Product{candleProduct()}}, nil
		},
	}
	svc := newTestCatalogService(t, repo)

	page, err := svc.ListProducts(context.Background(), CatalogQuery{
		Category:    "candles",
		PopularOnly: true,
		Pagination:  Pagination{PageSize: 20},
	})
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(page.Items))
	}
	if gotFilter.Category != "candles" || !gotFilter.PopularOnly || gotFilter.Pagination.PageSize != 20 {
		t.Fatalf("filter = %+v", gotFilter)
	}
}
