package services

import (
	"context"

	"github.com/bloomgoods/api/internal/domain"
)

// Domain aliases keep service signatures readable.
type (
	Product            = domain.Product
	Cart               = domain.Cart
	CartLine           = domain.CartLine
	CartTotals         = domain.CartTotals
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	ShippingAddress    = domain.ShippingAddress
	Review             = domain.Review
	StatusNotification = domain.StatusNotification
	DeliveryResult     = domain.DeliveryResult
	Pagination         = domain.Pagination
)

// Logger mirrors the structured logging hook threaded through every service.
type Logger func(ctx context.Context, event string, fields map[string]any)

// NotificationDispatcher delivers order status notifications to the
// downstream channel. Delivery failures are reported, never raised.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notification StatusNotification) DeliveryResult
}
