package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/payments"
)

type stubPaymentProvider struct {
	createFn func(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	getFn    func(ctx context.Context, sessionID string) (payments.CheckoutSession, error)
}

func (s *stubPaymentProvider) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	if s.createFn == nil {
		return payments.CheckoutSession{ID: "cs_test", RedirectURL: "https://pay.example/cs_test"}, nil
	}
	return s.createFn(ctx, req)
}

func (s *stubPaymentProvider) GetCheckoutSession(ctx context.Context, sessionID string) (payments.CheckoutSession, error) {
	if s.getFn == nil {
		return payments.CheckoutSession{}, errors.New("stub: no session")
	}
	return s.getFn(ctx, sessionID)
}

type checkoutFixture struct {
	carts    *stubCartRepository
	orders   *stubOrderRepository
	provider *stubPaymentProvider
	service  CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		carts:    &stubCartRepository{},
		orders:   &stubOrderRepository{},
		provider: &stubPaymentProvider{},
	}

	products := &stubProductRepository{
		findByIDFn: func(context.Context, string) (domain.Product, error) { return candleProduct(), nil },
	}
	cartSvc := newTestCartService(t, f.carts, products)

	orderSvc, err := NewOrderService(OrderServiceDeps{
		Repository:   f.orders,
		Carts:        f.carts,
		Pricer:       newTestPricingEngine(t),
		OrderNumbers: &fixedNumberSource{number: "BG-TEST1-ABCDE"},
		Dispatcher:   &stubDispatcher{},
		Clock:        fixedClock(testNow),
		IDGenerator:  func() string { return "order-1" },
	})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:       cartSvc,
		Orders:      orderSvc,
		Payments:    f.provider,
		SuccessURL:  "https://shop.example/checkout/success",
		CancelURL:   "https://shop.example/checkout/cancel",
		Clock:       fixedClock(testNow),
		IDGenerator: func() string { return "idem-1" },
	})
	if err != nil {
		t.Fatalf("NewCheckoutService returned error: %v", err)
	}
	f.service = svc
	return f
}

func (f *checkoutFixture) withCart(lines ...domain.CartLine) {
	f.carts.getCartFn = func(context.Context, string) (domain.Cart, error) {
		return domain.Cart{UserID: "user-1", Lines: lines}, nil
	}
}

func paidSession(userID string) payments.CheckoutSession {
	shipping, _ := json.Marshal(testShippingAddress())
	return payments.CheckoutSession{
		ID:     "cs_test",
		Status: payments.StatusSucceeded,
		Metadata: map[string]string{
			"userId":   userID,
			"shipping": string(shipping),
		},
	}
}

func TestStartCheckoutBuildsSessionFromCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.withCart(domain.CartLine{ProductID: "prod-1", Name: "Lavender Candle", UnitPrice: 2499, Quantity: 2})

	var gotReq payments.CheckoutSessionRequest
	f.provider.createFn = func(_ context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
		gotReq = req
		return payments.CheckoutSession{
			ID:          "cs_test",
			RedirectURL: "https://pay.example/cs_test",
			ExpiresAt:   testNow.Add(30 * time.Minute),
		}, nil
	}

	view, err := f.service.StartCheckout(context.Background(), StartCheckoutCommand{
		UserID:          "user-1",
		ShippingAddress: testShippingAddress(),
	})
	if err != nil {
		t.Fatalf("StartCheckout returned error: %v", err)
	}

	if view.SessionID != "cs_test" || view.RedirectURL == "" {
		t.Fatalf("view = %+v", view)
	}
	if view.Totals.Total != 5997 {
		t.Fatalf("totals.Total = %d, want 5997", view.Totals.Total)
	}
	if gotReq.Amount != 5997 {
		t.Fatalf("session amount = %d, want 5997", gotReq.Amount)
	}
	// One product line plus tax and shipping lines.
	if len(gotReq.Items) != 3 {
		t.Fatalf("session has %d line items, want 3", len(gotReq.Items))
	}
	if gotReq.Metadata["userId"] != "user-1" {
		t.Fatalf("metadata = %+v, want userId", gotReq.Metadata)
	}
	if gotReq.Metadata["shipping"] == "" {
		t.Fatal("shipping address not carried in session metadata")
	}
}

func TestStartCheckoutRejectsEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.withCart()

	_, err := f.service.StartCheckout(context.Background(), StartCheckoutCommand{
		UserID:          "user-1",
		ShippingAddress: testShippingAddress(),
	})
	if !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("error = %v, want ErrCheckoutEmptyCart", err)
	}
}

func TestConfirmCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.withCart(domain.CartLine{ProductID: "prod-1", Name: "Lavender Candle", UnitPrice: 2499, Quantity: 2})
	f.provider.getFn = func(context.Context, string) (payments.CheckoutSession, error) {
		return paidSession("user-1"), nil
	}

	var clearedLines []domain.CartLine
	cleared := false
	f.carts.replaceLinesFn = func(_ context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
		cleared = true
		clearedLines = lines
		return domain.Cart{UserID: userID, Lines: lines}, nil
	}

	order, err := f.service.ConfirmCheckout(context.Background(), "user-1", "cs_test")
	if err != nil {
		t.Fatalf("ConfirmCheckout returned error: %v", err)
	}

	if order.Status != domain.OrderStatusPlaced {
		t.Fatalf("status = %s, want placed", order.Status)
	}
	if order.ShippingAddress != testShippingAddress() {
		t.Fatalf("shipping = %+v, want address from session metadata", order.ShippingAddress)
	}
	if !cleared || len(clearedLines) != 0 {
		t.Fatalf("cart not cleared after confirmation (cleared=%v, lines=%d)", cleared, len(clearedLines))
	}
}

func TestConfirmCheckoutRejectsUnpaidSession(t *testing.T) {
	f := newCheckoutFixture(t)
	f.provider.getFn = func(context.Context, string) (payments.CheckoutSession, error) {
		session := paidSession("user-1")
		session.Status = payments.StatusPending
		return session, nil
	}

	_, err := f.service.ConfirmCheckout(context.Background(), "user-1", "cs_test")
	if !errors.Is(err, ErrCheckoutPaymentIncomplete) {
		t.Fatalf("error = %v, want ErrCheckoutPaymentIncomplete", err)
	}
}

func TestConfirmCheckoutRejectsForeignSession(t *testing.T) {
	f := newCheckoutFixture(t)
	f.provider.getFn = func(context.Context, string) (payments.CheckoutSession, error) {
		return paidSession("someone-else"), nil
	}

	_, err := f.service.ConfirmCheckout(context.Background(), "user-1", "cs_test")
	if !errors.Is(err, ErrCheckoutSessionMismatch) {
		t.Fatalf("error = %v, want ErrCheckoutSessionMismatch", err)
	}
}
