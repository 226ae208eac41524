package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bloomgoods/api/internal/payments"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
	ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")
	// ErrCheckoutEmptyCart indicates checkout was started with no items.
	ErrCheckoutEmptyCart = errors.New("checkout service: empty cart")
	// ErrCheckoutPaymentIncomplete indicates the payment session has not
	// been paid yet.
	ErrCheckoutPaymentIncomplete = errors.New("checkout service: payment incomplete")
	// ErrCheckoutSessionMismatch indicates the session does not belong to
	// the caller.
	ErrCheckoutSessionMismatch = errors.New("checkout service: session mismatch")
	// ErrCheckoutUnavailable indicates the payment provider cannot fulfil
	// the request.
	ErrCheckoutUnavailable = errors.New("checkout service: unavailable")
)

const (
	metadataUserIDKey   = "userId"
	metadataShippingKey = "shipping"
	defaultCurrency     = "usd"
)

// StartCheckoutCommand opens a hosted payment session for the user's cart.
type StartCheckoutCommand struct {
	UserID          string
	ShippingAddress ShippingAddress
}

// CheckoutSessionView is what the storefront needs to redirect the customer.
type CheckoutSessionView struct {
	SessionID   string
	RedirectURL string
	ExpiresAt   time.Time
	Totals      CartTotals
}

// CheckoutService drives the hosted-payment checkout flow: a session is
// opened against the current cart, and once the provider reports it paid the
// cart is frozen into an order and cleared.
type CheckoutService interface {
	StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (CheckoutSessionView, error)
	ConfirmCheckout(ctx context.Context, userID, sessionID string) (Order, error)
}

// CheckoutServiceDeps wires the collaborators for the checkout flow.
type CheckoutServiceDeps struct {
	Carts       CartService
	Orders      OrderService
	Payments    payments.Provider
	SuccessURL  string
	CancelURL   string
	Currency    string
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type checkoutService struct {
	carts      CartService
	orders     OrderService
	payments   payments.Provider
	successURL string
	cancelURL  string
	currency   string
	now        func() time.Time
	newID      func() string
	logger     Logger
}

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order service is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}
	if strings.TrimSpace(deps.SuccessURL) == "" || strings.TrimSpace(deps.CancelURL) == "" {
		return nil, errors.New("checkout service: success and cancel urls are required")
	}

	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCurrency
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

	return &checkoutService{
		carts:      deps.Carts,
		orders:     deps.Orders,
		payments:   deps.Payments,
		successURL: strings.TrimSpace(deps.SuccessURL),
		cancelURL:  strings.TrimSpace(deps.CancelURL),
		currency:   currency,
		now:        func() time.Time { return clock().UTC() },
		newID:      newID,
		logger:     logger,
	}, nil
}

// StartCheckout opens a payment session against the user's current cart.
// The shipping address rides along in session metadata so confirmation can
// place the order without a second submission from the client.
func (s *checkoutService) StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (CheckoutSessionView, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return CheckoutSessionView{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	if err := validateShippingAddress(cmd.ShippingAddress); err != nil {
		return CheckoutSessionView{}, fmt.Errorf("%w: %v", ErrCheckoutInvalidInput, err)
	}

	view, err := s.carts.GetCart(ctx, uid)
	if err != nil {
		return CheckoutSessionView{}, err
	}
	if view.Cart.IsEmpty() || view.Totals.Total <= 0 {
		return CheckoutSessionView{}, ErrCheckoutEmptyCart
	}

	shippingJSON, err := json.Marshal(cmd.ShippingAddress)
	if err != nil {
		return CheckoutSessionView{}, fmt.Errorf("checkout service: encode shipping address: %w", err)
	}

	items := make([]payments.CheckoutLineItem, 0, len(view.Cart.Lines)+2)
	for _, line := range view.Cart.Lines {
		items = append(items, payments.CheckoutLineItem{
			Name:     line.Name,
			Quantity: int64(line.Quantity),
			Amount:   line.UnitPrice,
			Currency: s.currency,
		})
	}
	if view.Totals.Tax > 0 {
		items = append(items, payments.CheckoutLineItem{
			Name:     "Tax",
			Quantity: 1,
			Amount:   view.Totals.Tax,
			Currency: s.currency,
		})
	}
	if view.Totals.Shipping > 0 {
		items = append(items, payments.CheckoutLineItem{
			Name:     "Shipping",
			Quantity: 1,
			Amount:   view.Totals.Shipping,
			Currency: s.currency,
		})
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Amount:         view.Totals.Total,
		Currency:       s.currency,
		CustomerEmail:  cmd.ShippingAddress.Email,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		IdempotencyKey: s.newID(),
		Items:          items,
		Metadata: map[string]string{
			metadataUserIDKey:   uid,
			metadataShippingKey: string(shippingJSON),
		},
	})
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{
			"userId": uid,
			"error":  err.Error(),
		})
		return CheckoutSessionView{}, ErrCheckoutUnavailable
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"userId":    uid,
		"sessionId": session.ID,
		"total":     view.Totals.Total,
	})
	return CheckoutSessionView{
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		ExpiresAt:   session.ExpiresAt,
		Totals:      view.Totals,
	}, nil
}

// ConfirmCheckout verifies the session was paid, freezes the cart into an
// order and clears the cart. A failed clear is logged but does not undo the
// placed order.
func (s *checkoutService) ConfirmCheckout(ctx context.Context, userID, sessionID string) (Order, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Order{}, fmt.Errorf("%w: session id is required", ErrCheckoutInvalidInput)
	}

	session, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		s.logger(ctx, "checkout.session_lookup_failed", map[string]any{
			"userId":    uid,
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return Order{}, ErrCheckoutUnavailable
	}
	if session.Metadata[metadataUserIDKey] != uid {
		return Order{}, ErrCheckoutSessionMismatch
	}
	if session.Status != payments.StatusSucceeded {
		return Order{}, ErrCheckoutPaymentIncomplete
	}

	var shipping ShippingAddress
	if err := json.Unmarshal([]byte(session.Metadata[metadataShippingKey]), &shipping); err != nil {
		return Order{}, fmt.Errorf("checkout service: decode shipping address: %w", err)
	}

	order, err := s.orders.PlaceOrder(ctx, PlaceOrderCommand{
		UserID:          uid,
		ShippingAddress: shipping,
	})
	if err != nil {
		return Order{}, err
	}

	if err := s.carts.Clear(ctx, uid); err != nil {
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{
			"userId":  uid,
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}

	s.logger(ctx, "checkout.confirmed", map[string]any{
		"userId":      uid,
		"sessionId":   sessionID,
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
	})
	return order, nil
}
