package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/repositories"
)

var (
	// ErrReviewInvalidInput indicates the caller supplied invalid input.
	ErrReviewInvalidInput = errors.New("review service: invalid input")
	// ErrReviewNotFound indicates the requested review does not exist.
	ErrReviewNotFound = errors.New("review service: not found")
	// ErrReviewDuplicate indicates the order already has a review.
	ErrReviewDuplicate = errors.New("review service: duplicate")
	// ErrReviewOrderNotEligible indicates the order is not delivered yet or
	// does not belong to the reviewer.
	ErrReviewOrderNotEligible = errors.New("review service: order not eligible")
	// ErrReviewInvalidState indicates an invalid moderation transition.
	ErrReviewInvalidState = errors.New("review service: invalid state")
	// ErrReviewUnavailable indicates the backing store cannot fulfil the request.
	ErrReviewUnavailable = errors.New("review service: unavailable")
)

const (
	minReviewRating  = 1
	maxReviewRating  = 5
	maxCommentLength = 2000
)

// SubmitReviewCommand captures a customer review submission.
type SubmitReviewCommand struct {
	UserID    string
	OrderID   string
	ProductID string
	Rating    int
	Comment   string
}

// ModerateReviewCommand resolves a pending review.
type ModerateReviewCommand struct {
	ReviewID    string
	Approve     bool
	ModeratedBy string
}

// ReviewQuery narrows review listings.
type ReviewQuery struct {
	ProductID  string
	Status     []domain.ReviewStatus
	Pagination Pagination
}

// ReviewService owns customer review submission and admin moderation.
type ReviewService interface {
	Submit(ctx context.Context, cmd SubmitReviewCommand) (Review, error)
	Moderate(ctx context.Context, cmd ModerateReviewCommand) (Review, error)
	List(ctx context.Context, query ReviewQuery) (domain.CursorPage[Review], error)
}

// ReviewServiceDeps wires the repositories and text sanitiser.
type ReviewServiceDeps struct {
	Reviews     repositories.ReviewRepository
	Orders      repositories.OrderRepository
	Clock       func() time.Time
	IDGenerator func() string
	Sanitizer   func(string) string
	Logger      Logger
}

type reviewService struct {
	reviews  repositories.ReviewRepository
	orders   repositories.OrderRepository
	now      func() time.Time
	newID    func() string
	sanitize func(string) string
	logger   Logger
}

// NewReviewService wires dependencies into a concrete ReviewService.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("review service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	sanitize := deps.Sanitizer
	if sanitize == nil {
		policy := bluemonday.StrictPolicy()
		sanitize = func(text string) string {
			return strings.TrimSpace(policy.Sanitize(text))
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &reviewService{
		reviews:  deps.Reviews,
		orders:   deps.Orders,
		now:      func() time.Time { return clock().UTC() },
		newID:    newID,
		sanitize: sanitize,
		logger:   logger,
	}, nil
}

// Submit records a pending review for a delivered order. One review per
// order; the comment is stripped of markup before persistence.
func (s *reviewService) Submit(ctx context.Context, cmd SubmitReviewCommand) (Review, error) {
	uid := strings.TrimSpace(cmd.UserID)
	orderID := strings.TrimSpace(cmd.OrderID)
	switch {
	case uid == "":
		return Review{}, fmt.Errorf("%w: user id is required", ErrReviewInvalidInput)
	case orderID == "":
		return Review{}, fmt.Errorf("%w: order id is required", ErrReviewInvalidInput)
	case cmd.Rating < minReviewRating || cmd.Rating > maxReviewRating:
		return Review{}, fmt.Errorf("%w: rating must be between %d and %d", ErrReviewInvalidInput, minReviewRating, maxReviewRating)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return Review{}, ErrReviewOrderNotEligible
		}
		return Review{}, s.translateRepoError(err)
	}
	if order.UserID != uid || order.Status != domain.OrderStatusDelivered {
		return Review{}, ErrReviewOrderNotEligible
	}

	if _, err := s.reviews.FindByOrder(ctx, orderID); err == nil {
		return Review{}, ErrReviewDuplicate
	} else if !isRepoNotFound(err) {
		return Review{}, s.translateRepoError(err)
	}

	comment := s.sanitize(cmd.Comment)
	if len(comment) > maxCommentLength {
		return Review{}, fmt.Errorf("%w: comment exceeds %d characters", ErrReviewInvalidInput, maxCommentLength)
	}

	now := s.now()
	review := Review{
		ID:        s.newID(),
		OrderID:   orderID,
		ProductID: strings.TrimSpace(cmd.ProductID),
		UserID:    uid,
		Rating:    cmd.Rating,
		Comment:   comment,
		Status:    domain.ReviewStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		return Review{}, s.translateRepoError(err)
	}

	s.logger(ctx, "review.submitted", map[string]any{
		"reviewId": review.ID,
		"orderId":  orderID,
		"rating":   review.Rating,
	})
	return review, nil
}

// Moderate resolves a pending review to approved or rejected. Resolved
// reviews cannot be re-moderated.
func (s *reviewService) Moderate(ctx context.Context, cmd ModerateReviewCommand) (Review, error) {
	reviewID := strings.TrimSpace(cmd.ReviewID)
	if reviewID == "" {
		return Review{}, fmt.Errorf("%w: review id is required", ErrReviewInvalidInput)
	}

	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return Review{}, s.translateRepoError(err)
	}
	if review.Status != domain.ReviewStatusPending {
		return Review{}, fmt.Errorf("%w: review already %s", ErrReviewInvalidState, review.Status)
	}

	now := s.now()
	if cmd.Approve {
		review.Status = domain.ReviewStatusApproved
	} else {
		review.Status = domain.ReviewStatusRejected
	}
	review.ModeratedBy = strings.TrimSpace(cmd.ModeratedBy)
	review.ModeratedAt = &now
	review.UpdatedAt = now

	if err := s.reviews.Update(ctx, review); err != nil {
		return Review{}, s.translateRepoError(err)
	}

	s.logger(ctx, "review.moderated", map[string]any{
		"reviewId": review.ID,
		"status":   string(review.Status),
	})
	return review, nil
}

func (s *reviewService) List(ctx context.Context, query ReviewQuery) (domain.CursorPage[Review], error) {
	page, err := s.reviews.List(ctx, repositories.ReviewListFilter{
		ProductID:  strings.TrimSpace(query.ProductID),
		Status:     query.Status,
		Pagination: query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Review]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *reviewService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrReviewNotFound
		case repoErr.IsConflict():
			return ErrReviewDuplicate
		}
	}
	return ErrReviewUnavailable
}
