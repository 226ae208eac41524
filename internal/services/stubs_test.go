package services

import (
	"context"
	"time"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/repositories"
)

// stubRepoError lets tests simulate classified persistence failures.
type stubRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return e.msg }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

var (
	errStubNotFound    = &stubRepoError{msg: "stub: not found", notFound: true}
	errStubConflict    = &stubRepoError{msg: "stub: conflict", conflict: true}
	errStubUnavailable = &stubRepoError{msg: "stub: unavailable", unavailable: true}
)

type stubProductRepository struct {
	insertFn   func(ctx context.Context, product domain.Product) error
	updateFn   func(ctx context.Context, product domain.Product) error
	deleteFn   func(ctx context.Context, productID string) error
	findByIDFn func(ctx context.Context, productID string) (domain.Product, error)
	listFn     func(ctx context.Context, filter repositories.ProductFilter) (domain.CursorPage[domain.Product], error)
}

func (s *stubProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, product)
}

func (s *stubProductRepository) Update(ctx context.Context, product domain.Product) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, product)
}

func (s *stubProductRepository) Delete(ctx context.Context, productID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, productID)
}

func (s *stubProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findByIDFn == nil {
		return domain.Product{}, errStubNotFound
	}
	return s.findByIDFn(ctx, productID)
}

func (s *stubProductRepository) List(ctx context.Context, filter repositories.ProductFilter) (domain.CursorPage[domain.Product], error) {
	if s.listFn == nil {
		return domain.CursorPage[domain.Product]{}, nil
	}
	return s.listFn(ctx, filter)
}

type stubCartRepository struct {
	getCartFn      func(ctx context.Context, userID string) (domain.Cart, error)
	replaceLinesFn func(ctx context.Context, userID string, lines []domain.CartLine) (domain.Cart, error)
}

func (s *stubCartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getCartFn == nil {
		return domain.Cart{}, errStubNotFound
	}
	return s.getCartFn(ctx, userID)
}

func (s *stubCartRepository) ReplaceLines(ctx context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
	if s.replaceLinesFn == nil {
		return domain.Cart{UserID: userID, Lines: lines}, nil
	}
	return s.replaceLinesFn(ctx, userID, lines)
}

type stubOrderRepository struct {
	insertFn   func(ctx context.Context, order domain.Order) error
	updateFn   func(ctx context.Context, order domain.Order, expectedUpdatedAt time.Time) (domain.Order, error)
	findByIDFn func(ctx context.Context, orderID string) (domain.Order, error)
	listFn     func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, order)
}

func (s *stubOrderRepository) Update(ctx context.Context, order domain.Order, expectedUpdatedAt time.Time) (domain.Order, error) {
	if s.updateFn == nil {
		return order, nil
	}
	return s.updateFn(ctx, order, expectedUpdatedAt)
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFn == nil {
		return domain.Order{}, errStubNotFound
	}
	return s.findByIDFn(ctx, orderID)
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn == nil {
		return domain.CursorPage[domain.Order]{}, nil
	}
	return s.listFn(ctx, filter)
}

type stubReviewRepository struct {
	insertFn      func(ctx context.Context, review domain.Review) error
	updateFn      func(ctx context.Context, review domain.Review) error
	findByIDFn    func(ctx context.Context, reviewID string) (domain.Review, error)
	findByOrderFn func(ctx context.Context, orderID string) (domain.Review, error)
	listFn        func(ctx context.Context, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error)
}

func (s *stubReviewRepository) Insert(ctx context.Context, review domain.Review) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, review)
}

func (s *stubReviewRepository) Update(ctx context.Context, review domain.Review) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, review)
}

func (s *stubReviewRepository) FindByID(ctx context.Context, reviewID string) (domain.Review, error) {
	if s.findByIDFn == nil {
		return domain.Review{}, errStubNotFound
	}
	return s.findByIDFn(ctx, reviewID)
}

func (s *stubReviewRepository) FindByOrder(ctx context.Context, orderID string) (domain.Review, error) {
	if s.findByOrderFn == nil {
		return domain.Review{}, errStubNotFound
	}
	return s.findByOrderFn(ctx, orderID)
}

func (s *stubReviewRepository) List(ctx context.Context, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error) {
	if s.listFn == nil {
		return domain.CursorPage[domain.Review]{}, nil
	}
	return s.listFn(ctx, filter)
}

type stubDispatcher struct {
	dispatchFn func(ctx context.Context, notification domain.StatusNotification) domain.DeliveryResult
	sent       []domain.StatusNotification
}

func (s *stubDispatcher) Dispatch(ctx context.Context, notification domain.StatusNotification) domain.DeliveryResult {
	s.sent = append(s.sent, notification)
	if s.dispatchFn == nil {
		return domain.DeliveryResult{Sent: true}
	}
	return s.dispatchFn(ctx, notification)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
