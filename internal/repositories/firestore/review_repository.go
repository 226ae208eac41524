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

const reviewCollection = "reviews"

// ReviewRepository persists customer reviews within Firestore.
type ReviewRepository struct {
	base *pfirestore.BaseRepository[reviewDocument]
}

// NewReviewRepository constructs a Firestore-backed review repository.
func NewReviewRepository(provider *pfirestore.Provider) (*ReviewRepository, error) {
	if provider == nil {
		return nil, errors.New("review repository requires firestore provider")
	}
	return &ReviewRepository{
		base: pfirestore.NewBaseRepository[reviewDocument](provider, reviewCollection),
	}, nil
}

func (r *ReviewRepository) Insert(ctx context.Context, review domain.Review) error {
	if r == nil || r.base == nil {
		return errors.New("review repository not initialised")
	}
	if strings.TrimSpace(review.ID) == "" {
		return errors.New("review repository: review id is required")
	}
	_, err := r.base.Create(ctx, review.ID, newReviewDocument(review))
	return err
}

func (r *ReviewRepository) Update(ctx context.Context, review domain.Review) error {
	if r == nil || r.base == nil {
		return errors.New("review repository not initialised")
	}
	if strings.TrimSpace(review.ID) == "" {
		return errors.New("review repository: review id is required")
	}
	_, err := r.base.Set(ctx, review.ID, newReviewDocument(review))
	return err
}

func (r *ReviewRepository) FindByID(ctx context.Context, reviewID string) (domain.Review, error) {
	if r == nil || r.base == nil {
		return domain.Review{}, errors.New("review repository not initialised")
	}
	doc, err := r.base.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByOrder returns the review attached to the order, if any. At most one
// review exists per order.
func (r *ReviewRepository) FindByOrder(ctx context.Context, orderID string) (domain.Review, error) {
	if r == nil || r.base == nil {
		return domain.Review{}, errors.New("review repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Review{}, errors.New("review repository: order id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID).Limit(1)
	})
	if err != nil {
		return domain.Review{}, err
	}
	if len(docs) == 0 {
		return domain.Review{}, pfirestore.NotFoundError("reviews.findByOrder")
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *ReviewRepository) List(ctx context.Context, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Review]{}, errors.New("review repository not initialised")
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
			return domain.CursorPage[domain.Review]{}, fmt.Errorf("reviews.list: invalid page token: %w", err)
		}
		startAfter = []any{ts, docID}
	}

	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		statuses = append(statuses, string(status))
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if productID := strings.TrimSpace(filter.ProductID); productID != "" {
			q = q.Where("productId", "==", productID)
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
		return domain.CursorPage[domain.Review]{}, err
	}

	nextToken := ""
	if fetchLimit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-2]
		nextToken = encodePageToken(last.Data.CreatedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}
	return domain.CursorPage[domain.Review]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type reviewDocument struct {
	OrderID     string     `firestore:"orderId"`
	ProductID   string     `firestore:"productId,omitempty"`
	UserID      string     `firestore:"userId"`
	Rating      int        `firestore:"rating"`
	Comment     string     `firestore:"comment,omitempty"`
	Status      string     `firestore:"status"`
	ModeratedBy string     `firestore:"moderatedBy,omitempty"`
	ModeratedAt *time.Time `firestore:"moderatedAt,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt"`
}

func newReviewDocument(review domain.Review) reviewDocument {
	doc := reviewDocument{
		OrderID:     review.OrderID,
		ProductID:   review.ProductID,
		UserID:      review.UserID,
		Rating:      review.Rating,
		Comment:     review.Comment,
		Status:      string(review.Status),
		ModeratedBy: review.ModeratedBy,
		CreatedAt:   review.CreatedAt.UTC(),
		UpdatedAt:   review.UpdatedAt.UTC(),
	}
	if review.ModeratedAt != nil {
		moderated := review.ModeratedAt.UTC()
		doc.ModeratedAt = &moderated
	}
	return doc
}

func (d reviewDocument) toDomain(id string) domain.Review {
	return domain.Review{
		ID:          id,
		OrderID:     d.OrderID,
		ProductID:   d.ProductID,
		UserID:      d.UserID,
		Rating:      d.Rating,
		Comment:     d.Comment,
		Status:      domain.ReviewStatus(d.Status),
		ModeratedBy: d.ModeratedBy,
		ModeratedAt: d.ModeratedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
