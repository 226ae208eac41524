package repositories

import (
	"context"
	"time"

	domain "github.com/bloomgoods/api/internal/domain"
)

// RepositoryError classifies persistence failures so services can translate
// them into domain-aware sentinel errors without importing backend packages.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists catalog reference data.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductFilter) (domain.CursorPage[domain.Product], error)
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category    string
	PopularOnly bool
	InStockOnly bool
	Pagination  domain.Pagination
}

// CartRepository persists the single active cart per user, keyed by user ID.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	// ReplaceLines atomically swaps the full line set for the user's cart,
	// creating the cart document when absent. An empty slice clears the cart.
	ReplaceLines(ctx context.Context, userID string, lines []domain.CartLine) (domain.Cart, error)
}

// OrderRepository persists placed orders. Update takes the UpdatedAt value the
// caller last observed as an optimistic-concurrency precondition.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order, expectedUpdatedAt time.Time) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderListFilter narrows order listings for storefront and admin views.
type OrderListFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	Pagination domain.Pagination
}

// ReviewRepository persists customer reviews and their moderation state.
type ReviewRepository interface {
	Insert(ctx context.Context, review domain.Review) error
	Update(ctx context.Context, review domain.Review) error
	FindByID(ctx context.Context, reviewID string) (domain.Review, error)
	FindByOrder(ctx context.Context, orderID string) (domain.Review, error)
	List(ctx context.Context, filter ReviewListFilter) (domain.CursorPage[domain.Review], error)
}

// ReviewListFilter narrows review listings.
type ReviewListFilter struct {
	ProductID  string
	Status     []domain.ReviewStatus
	Pagination domain.Pagination
}
