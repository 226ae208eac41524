package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bloomgoods/api/internal/domain"
)

var testNow = time.Date(2025, time.June, 2, 10, 30, 0, 0, time.UTC)

func newTestCartService(t *testing.T, carts *stubCartRepository, products *stubProductRepository) CartService {
	t.Helper()
	svc, err := NewCartService(CartServiceDeps{
		Repository: carts,
		Products:   products,
		Pricer:     newTestPricingEngine(t),
		Clock:      fixedClock(testNow),
	})
	if err != nil {
		t.Fatalf("NewCartService returned error: %v", err)
	}
	return svc
}

func candleProduct() domain.Product {
	return domain.Product{
		ID:        "prod-1",
		Name:      "Lavender Candle",
		UnitPrice: 2499,
		ImagePath: "/images/lavender.jpg",
		InStock:   true,
	}
}

func TestCartAddItemSnapshotsProduct(t *testing.T) {
	var savedLines []domain.CartLine
	carts := &stubCartRepository{
		replaceLinesFn: func(_ context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
			savedLines = lines
			return domain.Cart{UserID: userID, Lines: lines}, nil
		},
	}
	products := &stubProductRepository{
		findByIDFn: func(_ context.Context, _ string) (domain.Product, error) {
			return candleProduct(), nil
		},
	}
	svc := newTestCartService(t, carts, products)

	view, err := svc.AddItem(context.Background(), "user-1", AddCartItemCommand{ProductID: "prod-1", Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	if len(savedLines) != 1 {
		t.Fatalf("saved %d lines, want 1", len(savedLines))
	}
	line := savedLines[0]
	if line.Name != "Lavender Candle" || line.UnitPrice != 2499 || line.Quantity != 2 {
		t.Fatalf("line = %+v, want product snapshot with quantity 2", line)
	}
	if !line.AddedAt.Equal(testNow) {
		t.Fatalf("AddedAt = %v, want %v", line.AddedAt, testNow)
	}
	if view.Totals.Total != 5997 {
		t.Fatalf("total = %d, want 5997", view.Totals.Total)
	}
}

func TestCartAddItemMergesAndClampsQuantity(t *testing.T) {
	existing := domain.Cart{
		UserID: "user-1",
		Lines: []domain.CartLine{
			{ProductID: "prod-1", Name: "Lavender Candle", UnitPrice: 2499, Quantity: 8, AddedAt: testNow},
		},
	}
	var savedLines []domain.CartLine
	carts := &stubCartRepository{
		getCartFn: func(context.Context, string) (domain.Cart, error) { return existing, nil },
		replaceLinesFn: func(_ context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
			savedLines = lines
			return domain.Cart{UserID: userID, Lines: lines}, nil
		},
	}
	products := &stubProductRepository{
		findByIDFn: func(context.Context, string) (domain.Product, error) { return candleProduct(), nil },
	}
	svc := newTestCartService(t, carts, products)

	if _, err := svc.AddItem(context.Background(), "user-1", AddCartItemCommand{ProductID: "prod-1", Quantity: 5}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if len(savedLines) != 1 {
		t.Fatalf("saved %d lines, want merged single line", len(savedLines))
	}
	if savedLines[0].Quantity != 10 {
		t.Fatalf("quantity = %d, want clamp at 10", savedLines[0].Quantity)
	}
}

func TestCartAddItemClampsNonPositiveQuantityToOne(t *testing.T) {
	var savedLines []domain.CartLine
	carts := &stubCartRepository{
		replaceLinesFn: func(_ context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
			savedLines = lines
			return domain.Cart{UserID: userID, Lines: lines}, nil
		},
	}
	products := &stubProductRepository{
		findByIDFn: func(context.Context, string) (domain.Product, error) { return candleProduct(), nil },
	}
	svc := newTestCartService(t, carts, products)

	if _, err := svc.AddItem(context.Background(), "user-1", AddCartItemCommand{ProductID: "prod-1", Quantity: 0}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if savedLines[0].Quantity != 1 {
		t.Fatalf("quantity = %d, want clamp up to 1", savedLines[0].Quantity)
	}
}

func TestCartAddItemRejectsUnknownOrOutOfStockProduct(t *testing.T) {
	carts := &stubCartRepository{}
	svc := newTestCartService(t, carts, &stubProductRepository{})

	_, err := svc.AddItem(context.Background(), "user-1", AddCartItemCommand{ProductID: "missing", Quantity: 1})
	if !errors.Is(err, ErrCartProductNotFound) {
		t.Fatalf("error = %v, want ErrCartProductNotFound", err)
	}

	outOfStock := candleProduct()
	outOfStock.InStock = false
	svc = newTestCartService(t, carts, &stubProductRepository{
		findByIDFn: func(context.Context, string) (domain.Product, error) { return outOfStock, nil },
	})
	_, err = svc.AddItem(context.Background(), "user-1", AddCartItemCommand{ProductID: "prod-1", Quantity: 1})
	if !errors.Is(err, ErrCartProductUnavailable) {
		t.Fatalf("error = %v, want ErrCartProductUnavailable", err)
	}
}

func TestCartSetQuantityZeroRemovesLine(t *testing.T) {
	existing := domain.Cart{
		UserID: "user-1",
		Lines: []domain.CartLine{
			{ProductID: "prod-1", UnitPrice: 2499, Quantity: 2},
			{ProductID: "prod-2", UnitPrice: 1299, Quantity: 1},
		},
	}
	var savedLines []domain.CartLine
	carts := &stubCartRepository{
		getCartFn: func(context.Context, string) (domain.Cart, error) { return existing, nil },
		replaceLinesFn: func(_ context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
			savedLines = lines
			return domain.Cart{UserID: userID, Lines: lines}, nil
		},
	}
	svc := newTestCartService(t, carts, &stubProductRepository{})

	if _, err := svc.SetQuantity(context.Background(), "user-1", "prod-1", 0); err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if len(savedLines) != 1 || savedLines[0].ProductID != "prod-2" {
		t.Fatalf("saved lines = %+v, want only prod-2", savedLines)
	}
}

func TestCartSetQuantityUnknownLine(t *testing.T) {
	carts := &stubCartRepository{
		getCartFn: func(context.Context, string) (domain.Cart, error) {
			return domain.Cart{UserID: "user-1"}, nil
		},
	}
	svc := newTestCartService(t, carts, &stubProductRepository{})

	_, err := svc.SetQuantity(context.Background(), "user-1", "prod-9", 3)
	if !errors.Is(err, ErrCartProductNotFound) {
		t.Fatalf("error = %v, want ErrCartProductNotFound", err)
	}
}

func TestCartGetCartTreatsMissingCartAsEmpty(t *testing.T) {
	svc := newTestCartService(t, &stubCartRepository{}, &stubProductRepository{})

	view, err := svc.GetCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetCart returned error: %v", err)
	}
	if !view.Cart.IsEmpty() {
		t.Fatalf("cart = %+v, want empty", view.Cart)
	}
	if view.Totals != (CartTotals{}) {
		t.Fatalf("totals = %+v, want all zeros", view.Totals)
	}
}

func TestCartClearReplacesWithEmptyLineSet(t *testing.T) {
	cleared := false
	carts := &stubCartRepository{
		replaceLinesFn: func(_ context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
			cleared = len(lines) == 0
			return domain.Cart{UserID: userID}, nil
		},
	}
	svc := newTestCartService(t, carts, &stubProductRepository{})

	if err := svc.Clear(context.Background(), "user-1"); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if !cleared {
		t.Fatal("Clear did not replace lines with an empty set")
	}
}
