package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Product is catalog reference data. Monetary amounts are carried in the
// smallest currency unit. A product is immutable from the perspective of a
// single cart or order lifetime: carts and orders snapshot what they need.
type Product struct {
	ID          string
	Name        string
	Description string
	UnitPrice   int64
	ImagePath   string
	Category    string
	InStock     bool
	Popular     bool
	Rating      float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLine is one product-and-quantity entry within a cart, carrying a
// denormalized snapshot of the product taken when the line was added.
type CartLine struct {
	ProductID string
	Name      string
	UnitPrice int64
	ImagePath string
	Quantity  int
	AddedAt   time.Time
}

// Cart aggregates the mutable shopping state for one user. At most one
// CartLine exists per product ID; line order carries no meaning.
type Cart struct {
	ID        string
	UserID    string
	Lines     []CartLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemCount returns the sum of all line quantities. Used for badge display,
// never as a pricing input.
func (c Cart) ItemCount() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// IsEmpty reports whether the cart holds no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// CartTotals holds derived amounts recomputed from a cart on demand, never
// stored independently. Invariant: Total == Subtotal + Tax + Shipping.
type CartTotals struct {
	Subtotal int64
	Tax      int64
	Shipping int64
	Total    int64
}

// ShippingAddress is an opaque value object copied verbatim into orders.
// Postal format validation is a collaborator concern.
type ShippingAddress struct {
	Name       string
	Email      string
	Phone      string
	Street     string
	City       string
	State      string
	PostalCode string
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPlaced is the initial state assigned at checkout.
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusProcessing indicates the order is being prepared.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order left the warehouse.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusInTransit indicates the carrier reported movement.
	OrderStatusInTransit OrderStatus = "in_transit"
	// OrderStatusDelivered indicates the order reached the customer. Terminal.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled. Terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted from the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsValid reports whether the value is a member of the closed status set.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusInTransit, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is the frozen snapshot captured at placement time. Lines, address and
// totals never change after creation even if the underlying products do; the
// only permitted mutation is advancing Status (plus the tracking/notes
// metadata attached to a transition).
type Order struct {
	ID                string
	OrderNumber       string
	UserID            string
	Lines             []CartLine
	ShippingAddress   ShippingAddress
	Totals            CartTotals
	Status            OrderStatus
	TrackingNumber    string
	Notes             string
	UpdatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	EstimatedDelivery *time.Time
}

// ReviewStatus indicates the moderation state of a review.
type ReviewStatus string

const (
	// ReviewStatusPending indicates the review awaits moderation.
	ReviewStatusPending ReviewStatus = "pending"
	// ReviewStatusApproved indicates the review is visible on the storefront.
	ReviewStatusApproved ReviewStatus = "approved"
	// ReviewStatusRejected indicates the review is hidden.
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Review captures customer feedback tied to a delivered order.
type Review struct {
	ID          string
	OrderID     string
	ProductID   string
	UserID      string
	Rating      int
	Comment     string
	Status      ReviewStatus
	ModeratedBy string
	ModeratedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StatusNotification is the message handed to the notification dispatcher when
// an order status changes. FeedbackRequest marks the delivered variant that
// additionally asks the customer for a review.
type StatusNotification struct {
	OrderID         string
	OrderNumber     string
	Email           string
	PreviousStatus  OrderStatus
	NewStatus       OrderStatus
	TrackingNumber  string
	FeedbackRequest bool
	OccurredAt      time.Time
}

// DeliveryResult reports the outcome of a notification dispatch attempt.
// Dispatch is best-effort: a failed result is logged, never raised.
type DeliveryResult struct {
	Sent  bool
	Error string
}
