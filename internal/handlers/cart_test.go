package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bloomgoods/api/internal/platform/auth"
	"github.com/bloomgoods/api/internal/services"
)

type stubCartService struct {
	getCartFn     func(ctx context.Context, userID string) (services.CartView, error)
	addItemFn     func(ctx context.Context, userID string, cmd services.AddCartItemCommand) (services.CartView, error)
	setQuantityFn func(ctx context.Context, userID, productID string, quantity int) (services.CartView, error)
	removeItemFn  func(ctx context.Context, userID, productID string) (services.CartView, error)
	clearFn       func(ctx context.Context, userID string) error
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (services.CartView, error) {
	return s.getCartFn(ctx, userID)
}

func (s *stubCartService) AddItem(ctx context.Context, userID string, cmd services.AddCartItemCommand) (services.CartView, error) {
	return s.addItemFn(ctx, userID, cmd)
}

func (s *stubCartService) SetQuantity(ctx context.Context, userID, productID string, quantity int) (services.CartView, error) {
	return s.setQuantityFn(ctx, userID, productID, quantity)
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID string) (services.CartView, error) {
	return s.removeItemFn(ctx, userID, productID)
}

func (s *stubCartService) Clear(ctx context.Context, userID string) error {
	return s.clearFn(ctx, userID)
}

// withIdentity simulates the auth middleware for handler tests.
func withIdentity(uid string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := &auth.Identity{UID: uid, Roles: roles}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func newCartTestRouter(svc services.CartService) http.Handler {
	h := NewCartHandlers(nil, svc)
	r := chi.NewRouter()
	r.Use(withIdentity("user-1"))
	r.Route("/cart", h.Routes)
	return r
}

func TestGetCartReturnsView(t *testing.T) {
	svc := &stubCartService{
		getCartFn: func(_ context.Context, userID string) (services.CartView, error) {
			if userID != "user-1" {
				t.Fatalf("userID = %q", userID)
			}
			return services.CartView{
				Cart: services.Cart{
					UserID: userID,
					Lines:  []services.CartLine{{ProductID: "prod-1", Name: "Lavender Candle", UnitPrice: 2499, Quantity: 2}},
				},
				Totals: services.CartTotals{Subtotal: 4998, Tax: 400, Shipping: 599, Total: 5997},
			}, nil
		},
	}
	router := newCartTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ItemCount != 2 || resp.Totals.Total != 5997 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestAddItemDecodesCommand(t *testing.T) {
	var gotCmd services.AddCartItemCommand
	svc := &stubCartService{
		addItemFn: func(_ context.Context, _ string, cmd services.AddCartItemCommand) (services.CartView, error) {
			gotCmd = cmd
			return services.CartView{}, nil
		},
	}
	router := newCartTestRouter(svc)

	body := strings.NewReader(`{"product_id":"prod-1","quantity":3}`)
	req := httptest.NewRequest(http.MethodPost, "/cart/items", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotCmd.ProductID != "prod-1" || gotCmd.Quantity != 3 {
		t.Fatalf("command = %+v", gotCmd)
	}
}

func TestAddItemRejectsMalformedBody(t *testing.T) {
	svc := &stubCartService{
		addItemFn: func(context.Context, string, services.AddCartItemCommand) (services.CartView, error) {
			t.Fatal("service must not be called for malformed body")
			return services.CartView{}, nil
		},
	}
	router := newCartTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddItemMapsUnknownProductTo404(t *testing.T) {
	svc := &stubCartService{
		addItemFn: func(context.Context, string, services.AddCartItemCommand) (services.CartView, error) {
			return services.CartView{}, services.ErrCartProductNotFound
		},
	}
	router := newCartTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":"nope","quantity":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSetQuantityUsesPathParam(t *testing.T) {
	var gotProduct string
	var gotQuantity int
	svc := &stubCartService{
		setQuantityFn: func(_ context.Context, _ string, productID string, quantity int) (services.CartView, error) {
			gotProduct = productID
			gotQuantity = quantity
			return services.CartView{}, nil
		},
	}
	router := newCartTestRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/cart/items/prod-1", strings.NewReader(`{"quantity":0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotProduct != "prod-1" || gotQuantity != 0 {
		t.Fatalf("productID = %q, quantity = %d", gotProduct, gotQuantity)
	}
}

func TestClearCartReturnsNoContent(t *testing.T) {
	cleared := false
	svc := &stubCartService{
		clearFn: func(_ context.Context, userID string) error {
			cleared = userID == "user-1"
			return nil
		},
	}
	router := newCartTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if !cleared {
		t.Fatal("Clear not invoked for the authenticated user")
	}
}

func TestCartRequiresIdentity(t *testing.T) {
	h := NewCartHandlers(nil, &stubCartService{})
	r := chi.NewRouter()
	r.Route("/cart", h.Routes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
