package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid input.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogNotFound indicates the requested product does not exist.
	ErrCatalogNotFound = errors.New("catalog service: not found")
	// ErrCatalogConflict indicates a duplicate product or concurrent update.
	ErrCatalogConflict = errors.New("catalog service: conflict")
	// ErrCatalogUnavailable indicates the backing store cannot fulfil the request.
	ErrCatalogUnavailable = errors.New("catalog service: unavailable")
)

const maxProductNameLength = 200

// UpsertProductCommand carries the admin-editable product fields.
type UpsertProductCommand struct {
	Name        string
	Description string
	UnitPrice   int64
	ImagePath   string
	Category    string
	InStock     bool
	Popular     bool
}

// CatalogQuery narrows storefront product listings.
type CatalogQuery struct {
	Category    string
	PopularOnly bool
	InStockOnly bool
	Pagination  Pagination
}

// CatalogService owns the product catalog: storefront browsing plus the
// admin CRUD surface.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, query CatalogQuery) (domain.CursorPage[Product], error)
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, productID string, cmd UpsertProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CatalogServiceDeps wires the repository for catalog operations.
type CatalogServiceDeps struct {
	Repository  repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type catalogService struct {
	repo   repositories.ProductRepository
	now    func() time.Time
	newID  func() string
	logger Logger
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errors.New("catalog service: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		repo:   deps.Repository,
		now:    func() time.Time { return clock().UTC() },
		newID:  newID,
		logger: logger,
	}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, query CatalogQuery) (domain.CursorPage[Product], error) {
	page, err := s.repo.List(ctx, repositories.ProductFilter{
		Category:    strings.TrimSpace(query.Category),
		PopularOnly: query.PopularOnly,
		InStockOnly: query.InStockOnly,
		Pagination:  query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Product]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	if err := validateProductCommand(cmd); err != nil {
		return Product{}, err
	}

	now := s.now()
	product := Product{
		ID:          s.newID(),
		Name:        strings.TrimSpace(cmd.Name),
		Description: strings.TrimSpace(cmd.Description),
		UnitPrice:   cmd.UnitPrice,
		ImagePath:   strings.TrimSpace(cmd.ImagePath),
		Category:    strings.TrimSpace(cmd.Category),
		InStock:     cmd.InStock,
		Popular:     cmd.Popular,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, product); err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.logger(ctx, "catalog.product_created", map[string]any{
		"productId": product.ID,
		"name":      product.Name,
	})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID string, cmd UpsertProductCommand) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := validateProductCommand(cmd); err != nil {
		return Product{}, err
	}

	existing, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	existing.Name = strings.TrimSpace(cmd.Name)
	existing.Description = strings.TrimSpace(cmd.Description)
	existing.UnitPrice = cmd.UnitPrice
	existing.ImagePath = strings.TrimSpace(cmd.ImagePath)
	existing.Category = strings.TrimSpace(cmd.Category)
	existing.InStock = cmd.InStock
	existing.Popular = cmd.Popular
	existing.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, existing); err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.logger(ctx, "catalog.product_updated", map[string]any{
		"productId": existing.ID,
	})
	return existing, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return s.translateRepoError(err)
	}
	s.logger(ctx, "catalog.product_deleted", map[string]any{
		"productId": productID,
	})
	return nil
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogNotFound
		case repoErr.IsConflict():
			return ErrCatalogConflict
		}
	}
	return ErrCatalogUnavailable
}

func validateProductCommand(cmd UpsertProductCommand) error {
	name := strings.TrimSpace(cmd.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	case len(name) > maxProductNameLength:
		return fmt.Errorf("%w: name exceeds %d characters", ErrCatalogInvalidInput, maxProductNameLength)
	case cmd.UnitPrice <= 0:
		return fmt.Errorf("%w: unit price must be positive", ErrCatalogInvalidInput)
	}
	return nil
}
