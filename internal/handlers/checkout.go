package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bloomgoods/api/internal/platform/auth"
	"github.com/bloomgoods/api/internal/platform/httpx"
	"github.com/bloomgoods/api/internal/services"
)

type startCheckoutRequest struct {
	ShippingAddress shippingAddressPayload `json:"shipping_address"`
}

type confirmCheckoutRequest struct {
	SessionID string `json:"session_id"`
}

type checkoutSessionResponse struct {
	SessionID   string         `json:"session_id"`
	RedirectURL string         `json:"redirect_url"`
	ExpiresAt   string         `json:"expires_at,omitempty"`
	Totals      totalsResponse `json:"totals"`
}

// CheckoutHandlers exposes the hosted-payment checkout endpoints.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs a new CheckoutHandlers instance.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
	}
}

// Routes registers the /checkout endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.Require())
	}
	r.Post("/session", h.startCheckout)
	r.Post("/confirm", h.confirmCheckout)
}

func (h *CheckoutHandlers) startCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	var req startCheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	view, err := h.checkout.StartCheckout(ctx, services.StartCheckoutCommand{
		UserID:          uid,
		ShippingAddress: req.ShippingAddress.toDomain(),
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	resp := checkoutSessionResponse{
		SessionID:   view.SessionID,
		RedirectURL: view.RedirectURL,
		Totals:      newTotalsResponse(view.Totals),
	}
	if !view.ExpiresAt.IsZero() {
		resp.ExpiresAt = formatTime(view.ExpiresAt)
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *CheckoutHandlers) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	var req confirmCheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	order, err := h.checkout.ConfirmCheckout(ctx, uid, req.SessionID)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newOrderResponse(order))
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutEmptyCart), errors.Is(err, services.ErrOrderEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no items", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutPaymentIncomplete):
		httpx.WriteError(ctx, w, httpx.NewError("payment_incomplete", "payment has not completed", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutSessionMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("session_mismatch", "checkout session does not belong to this user", http.StatusForbidden))
	case errors.Is(err, services.ErrCheckoutInvalidInput), errors.Is(err, services.ErrOrderInvalidInput), errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout is unavailable", http.StatusServiceUnavailable))
	}
}
