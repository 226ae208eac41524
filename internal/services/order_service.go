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
	// ErrOrderInvalidInput indicates the caller supplied invalid input.
	ErrOrderInvalidInput = errors.New("order service: invalid input")
	// ErrOrderEmptyCart indicates checkout was attempted with no items.
	ErrOrderEmptyCart = errors.New("order service: empty cart")
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order service: not found")
	// ErrOrderInvalidTransition indicates a status change was attempted on a
	// terminal order.
	ErrOrderInvalidTransition = errors.New("order service: invalid transition")
	// ErrOrderConflict indicates the order changed concurrently since it was
	// last read.
	ErrOrderConflict = errors.New("order service: conflict")
	// ErrOrderUnavailable indicates the backing store cannot fulfil the request.
	ErrOrderUnavailable = errors.New("order service: unavailable")
)

// estimatedDeliveryOffset is a policy constant, not derived from the
// shipping method.
const estimatedDeliveryOffset = 4 * 24 * time.Hour

// OrderNumberSource mints the next human-readable order number.
type OrderNumberSource interface {
	Next() (string, error)
}

// PlaceOrderCommand freezes the user's cart into an order.
type PlaceOrderCommand struct {
	UserID          string
	ShippingAddress ShippingAddress
}

// UpdateOrderStatusCommand drives an order through a status transition.
type UpdateOrderStatusCommand struct {
	OrderID        string
	NewStatus      OrderStatus
	TrackingNumber string
	Notes          string
	UpdatedBy      string
}

// UpdateStatusResult carries the transitioned order plus the outcome of the
// notification side channel. A failed delivery is a warning, never an error.
type UpdateStatusResult struct {
	Order        Order
	Notification DeliveryResult
}

// OrderListQuery narrows order listings.
type OrderListQuery struct {
	UserID     string
	Status     []OrderStatus
	Pagination Pagination
}

// OrderService owns order placement and the status lifecycle.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (Order, error)
	ListOrders(ctx context.Context, query OrderListQuery) (domain.CursorPage[Order], error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (UpdateStatusResult, error)
}

// OrderServiceDeps wires the repositories and collaborators for order operations.
type OrderServiceDeps struct {
	Repository   repositories.OrderRepository
	Carts        repositories.CartRepository
	Pricer       CartPricer
	OrderNumbers OrderNumberSource
	Dispatcher   NotificationDispatcher
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       Logger
}

type orderService struct {
	repo       repositories.OrderRepository
	carts      repositories.CartRepository
	pricer     CartPricer
	numbers    OrderNumberSource
	dispatcher NotificationDispatcher
	now        func() time.Time
	newID      func() string
	logger     Logger
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Repository == nil {
		return nil, errors.New("order service: repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order service: cart repository is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("order service: pricer is required")
	}
	if deps.OrderNumbers == nil {
		return nil, errors.New("order service: order number source is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("order service: notification dispatcher is required")
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

	return &orderService{
		repo:       deps.Repository,
		carts:      deps.Carts,
		pricer:     deps.Pricer,
		numbers:    deps.OrderNumbers,
		dispatcher: deps.Dispatcher,
		now:        func() time.Time { return clock().UTC() },
		newID:      newID,
		logger:     logger,
	}, nil
}

// PlaceOrder freezes the user's current cart, shipping address and totals
// into a new order in the placed state. The source cart is left untouched;
// clearing it after a successful placement is the caller's responsibility.
func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if err := validateShippingAddress(cmd.ShippingAddress); err != nil {
		return Order{}, err
	}

	cart, err := s.carts.GetCart(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderEmptyCart
		}
		return Order{}, s.translateRepoError(err)
	}
	if cart.IsEmpty() {
		return Order{}, ErrOrderEmptyCart
	}

	totals, err := s.pricer.Calculate(ctx, cart.Lines)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	if totals.Total <= 0 {
		return Order{}, fmt.Errorf("%w: order total must be positive", ErrOrderInvalidInput)
	}

	number, err := s.numbers.Next()
	if err != nil {
		return Order{}, fmt.Errorf("order service: assign order number: %w", err)
	}

	now := s.now()
	estimated := now.Add(estimatedDeliveryOffset)
	order := Order{
		ID:                s.newID(),
		OrderNumber:       number,
		UserID:            uid,
		Lines:             cloneLines(cart.Lines),
		ShippingAddress:   cmd.ShippingAddress,
		Totals:            totals,
		Status:            domain.OrderStatusPlaced,
		CreatedAt:         now,
		UpdatedAt:         now,
		EstimatedDelivery: &estimated,
	}

	if err := s.repo.Insert(ctx, order); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	s.logger(ctx, "order.placed", map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"userId":      uid,
		"total":       order.Totals.Total,
	})
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	// Ownership checks apply only when the caller identifies as a customer;
	// admin reads pass an empty user id.
	if uid := strings.TrimSpace(userID); uid != "" && order.UserID != uid {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, query OrderListQuery) (domain.CursorPage[Order], error) {
	page, err := s.repo.List(ctx, repositories.OrderListFilter{
		UserID:     strings.TrimSpace(query.UserID),
		Status:     query.Status,
		Pagination: query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Order]{}, s.translateRepoError(err)
	}
	return page, nil
}

// UpdateStatus applies a status transition. Any target status is accepted as
// long as the order is not already terminal. The status change is the
// operation's primary contract: notification dispatch happens after the
// write and its failure is reported in the result, never as an error.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (UpdateStatusResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return UpdateStatusResult{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.NewStatus.IsValid() {
		return UpdateStatusResult{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.NewStatus)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return UpdateStatusResult{}, s.translateRepoError(err)
	}
	if order.Status.IsTerminal() {
		return UpdateStatusResult{}, fmt.Errorf("%w: order is %s", ErrOrderInvalidTransition, order.Status)
	}

	previous := order.Status
	now := s.now()
	order.Status = cmd.NewStatus
	order.UpdatedBy = strings.TrimSpace(cmd.UpdatedBy)
	if tracking := strings.TrimSpace(cmd.TrackingNumber); tracking != "" {
		order.TrackingNumber = tracking
	}
	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		order.Notes = notes
	}

	expected := order.UpdatedAt
	order.UpdatedAt = now
	saved, err := s.repo.Update(ctx, order, expected)
	if err != nil {
		return UpdateStatusResult{}, s.translateRepoError(err)
	}

	notification := StatusNotification{
		OrderID:         saved.ID,
		OrderNumber:     saved.OrderNumber,
		Email:           saved.ShippingAddress.Email,
		PreviousStatus:  previous,
		NewStatus:       saved.Status,
		TrackingNumber:  saved.TrackingNumber,
		FeedbackRequest: saved.Status == domain.OrderStatusDelivered,
		OccurredAt:      now,
	}
	result := s.dispatcher.Dispatch(ctx, notification)
	if !result.Sent {
		s.logger(ctx, "order.notification_failed", map[string]any{
			"orderId":     saved.ID,
			"orderNumber": saved.OrderNumber,
			"newStatus":   string(saved.Status),
			"error":       result.Error,
		})
	}

	s.logger(ctx, "order.status_updated", map[string]any{
		"orderId":        saved.ID,
		"orderNumber":    saved.OrderNumber,
		"previousStatus": string(previous),
		"newStatus":      string(saved.Status),
		"notified":       result.Sent,
	})
	return UpdateStatusResult{Order: saved, Notification: result}, nil
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsConflict():
			return ErrOrderConflict
		}
	}
	return ErrOrderUnavailable
}

func validateShippingAddress(addr ShippingAddress) error {
	switch {
	case strings.TrimSpace(addr.Name) == "":
		return fmt.Errorf("%w: shipping name is required", ErrOrderInvalidInput)
	case strings.TrimSpace(addr.Email) == "":
		return fmt.Errorf("%w: shipping email is required", ErrOrderInvalidInput)
	case strings.TrimSpace(addr.Street) == "":
		return fmt.Errorf("%w: shipping street is required", ErrOrderInvalidInput)
	case strings.TrimSpace(addr.City) == "":
		return fmt.Errorf("%w: shipping city is required", ErrOrderInvalidInput)
	case strings.TrimSpace(addr.PostalCode) == "":
		return fmt.Errorf("%w: shipping postal code is required", ErrOrderInvalidInput)
	}
	return nil
}
