package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/bloomgoods/api/internal/domain"
	pfirestore "github.com/bloomgoods/api/internal/platform/firestore"
	"github.com/bloomgoods/api/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists placed orders within Firestore. The document
// update time doubles as the optimistic-concurrency version: domain
// UpdatedAt always reflects Firestore's UpdateTime, and status updates pass
// the last observed value back as a LastUpdateTime precondition.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base: pfirestore.NewBaseRepository[orderDocument](provider, orderCollection),
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	_, err := r.base.Create(ctx, order.ID, newOrderDocument(order))
	return err
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order, expectedUpdatedAt time.Time) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	updates := []firestore.Update{
		{Path: "status", Value: string(order.Status)},
		{Path: "updatedAt", Value: order.UpdatedAt.UTC()},
	}
	appendStringUpdate := func(path, value string) {
		if strings.TrimSpace(value) == "" {
			updates = append(updates, firestore.Update{Path: path, Value: firestore.Delete})
		} else {
			updates = append(updates, firestore.Update{Path: path, Value: value})
		}
	}
	appendStringUpdate("trackingNumber", order.TrackingNumber)
	appendStringUpdate("notes", order.Notes)
	appendStringUpdate("updatedBy", order.UpdatedBy)

	var preconditions []firestore.Precondition
	if !expectedUpdatedAt.IsZero() {
		preconditions = append(preconditions, firestore.LastUpdateTime(expectedUpdatedAt.UTC()))
	}

	result, err := r.base.Update(ctx, order.ID, updates, preconditions...)
	if err != nil {
		return domain.Order{}, err
	}

	saved := order
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID, doc.UpdateTime), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := clampPageSize(filter.Pagination.PageSize)
	fetchLimit := 0
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		ts, docID, err := decodePageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("orders.list: invalid page token: %w", err)
		}
		startAfter = []any{ts, docID}
	}

	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		statuses = append(statuses, string(status))
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if uid := strings.TrimSpace(filter.UserID); uid != "" {
			q = q.Where("userId", "==", uid)
		}
		if len(statuses) > 0 {
			q = q.Where("status", "in", statuses)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if startAfter != nil {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if fetchLimit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-2]
		nextToken = encodePageToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID, doc.UpdateTime))
	}
	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type shippingAddressDocument struct {
	Name       string `firestore:"name"`
	Email      string `firestore:"email"`
	Phone      string `firestore:"phone,omitempty"`
	Street     string `firestore:"street"`
	City       string `firestore:"city"`
	State      string `firestore:"state,omitempty"`
	PostalCode string `firestore:"postalCode"`
}

type cartTotalsDocument struct {
	Subtotal int64 `firestore:"subtotal"`
	Tax      int64 `firestore:"tax"`
	Shipping int64 `firestore:"shipping"`
	Total    int64 `firestore:"total"`
}

type orderDocument struct {
	OrderNumber       string                  `firestore:"orderNumber"`
	UserID            string                  `firestore:"userId"`
	Lines             []cartLineDocument      `firestore:"lines"`
	Shipping          shippingAddressDocument `firestore:"shipping"`
	Totals            cartTotalsDocument      `firestore:"totals"`
	Status            string                  `firestore:"status"`
	TrackingNumber    string                  `firestore:"trackingNumber,omitempty"`
	Notes             string                  `firestore:"notes,omitempty"`
	UpdatedBy         string                  `firestore:"updatedBy,omitempty"`
	CreatedAt         time.Time               `firestore:"createdAt"`
	UpdatedAt         time.Time               `firestore:"updatedAt"`
	EstimatedDelivery *time.Time              `firestore:"estimatedDelivery,omitempty"`
}

func newOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Lines:       make([]cartLineDocument, 0, len(order.Lines)),
		Shipping: shippingAddressDocument{
			Name:       order.ShippingAddress.Name,
			Email:      order.ShippingAddress.Email,
			Phone:      order.ShippingAddress.Phone,
			Street:     order.ShippingAddress.Street,
			City:       order.ShippingAddress.City,
			State:      order.ShippingAddress.State,
			PostalCode: order.ShippingAddress.PostalCode,
		},
		Totals: cartTotalsDocument{
			Subtotal: order.Totals.Subtotal,
			Tax:      order.Totals.Tax,
			Shipping: order.Totals.Shipping,
			Total:    order.Totals.Total,
		},
		Status:         string(order.Status),
		TrackingNumber: order.TrackingNumber,
		Notes:          order.Notes,
		UpdatedBy:      order.UpdatedBy,
		CreatedAt:      order.CreatedAt.UTC(),
		UpdatedAt:      order.UpdatedAt.UTC(),
	}
	for _, line := range order.Lines {
		doc.Lines = append(doc.Lines, newCartLineDocument(line))
	}
	if order.EstimatedDelivery != nil {
		estimated := order.EstimatedDelivery.UTC()
		doc.EstimatedDelivery = &estimated
	}
	return doc
}

func (d orderDocument) toDomain(id string, updateTime time.Time) domain.Order {
	lines := make([]domain.CartLine, 0, len(d.Lines))
	for _, line := range d.Lines {
		lines = append(lines, domain.CartLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			ImagePath: line.ImagePath,
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt,
		})
	}
	order := domain.Order{
		ID:          id,
		OrderNumber: d.OrderNumber,
		UserID:      d.UserID,
		Lines:       lines,
		ShippingAddress: domain.ShippingAddress{
			Name:       d.Shipping.Name,
			Email:      d.Shipping.Email,
			Phone:      d.Shipping.Phone,
			Street:     d.Shipping.Street,
			City:       d.Shipping.City,
			State:      d.Shipping.State,
			PostalCode: d.Shipping.PostalCode,
		},
		Totals: domain.CartTotals{
			Subtotal: d.Totals.Subtotal,
			Tax:      d.Totals.Tax,
			Shipping: d.Totals.Shipping,
			Total:    d.Totals.Total,
		},
		Status:            domain.OrderStatus(d.Status),
		TrackingNumber:    d.TrackingNumber,
		Notes:             d.Notes,
		UpdatedBy:         d.UpdatedBy,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         updateTime,
		EstimatedDelivery: d.EstimatedDelivery,
	}
	return order
}
