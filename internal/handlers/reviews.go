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

type submitReviewRequest struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// ReviewHandlers exposes review submission for authenticated users.
type ReviewHandlers struct {
	authn   *auth.Authenticator
	reviews services.ReviewService
}

// NewReviewHandlers constructs a new ReviewHandlers instance.
func NewReviewHandlers(authn *auth.Authenticator, reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{
		authn:   authn,
		reviews: reviews,
	}
}

// Routes registers the /reviews endpoints.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.Require())
	}
	r.Post("/", h.submitReview)
}

func (h *ReviewHandlers) submitReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := requireUser(ctx, w)
	if !ok {
		return
	}

	var req submitReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	review, err := h.reviews.Submit(ctx, services.SubmitReviewCommand{
		UserID:    uid,
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newReviewResponse(review))
}

func writeReviewError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReviewNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("review_not_found", "review not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReviewDuplicate):
		httpx.WriteError(ctx, w, httpx.NewError("review_exists", "order already has a review", http.StatusConflict))
	case errors.Is(err, services.ErrReviewOrderNotEligible):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_eligible", "only delivered orders can be reviewed", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrReviewInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("review_already_moderated", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("reviews_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
	}
}
