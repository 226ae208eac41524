package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bloomgoods/api/internal/platform/auth"
	"github.com/bloomgoods/api/internal/platform/httpx"
	"github.com/bloomgoods/api/internal/services"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type setCartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartHandlers exposes cart endpoints for authenticated users.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs a new CartHandlers instance.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
	}
}

// Routes registers the /cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.Require())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{productID}", h.setQuantity)
	r.Delete("/items/{productID}", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	view, err := h.carts.GetCart(ctx, uid)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newCartResponse(view))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	view, err := h.carts.AddItem(ctx, uid, services.AddCartItemCommand{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newCartResponse(view))
}

func (h *CartHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	var req setCartQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	view, err := h.carts.SetQuantity(ctx, uid, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newCartResponse(view))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	view, err := h.carts.RemoveItem(ctx, uid, chi.URLParam(r, "productID"))
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newCartResponse(view))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	if err := h.carts.Clear(ctx, uid); err != nil {
		writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", "product is out of stock", http.StatusConflict))
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	}
}

// requireUser extracts the authenticated user ID or writes a 401.
func requireUser(ctx context.Context, w http.ResponseWriter) (string, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity.UID, true
}
