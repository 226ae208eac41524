package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/platform/auth"
	"github.com/bloomgoods/api/internal/platform/httpx"
	"github.com/bloomgoods/api/internal/services"
)

type upsertProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UnitPrice   int64  `json:"unit_price"`
	ImagePath   string `json:"image_path"`
	Category    string `json:"category"`
	InStock     bool   `json:"in_stock"`
	Popular     bool   `json:"popular"`
}

func (r upsertProductRequest) toCommand() services.UpsertProductCommand {
	return services.UpsertProductCommand{
		Name:        r.Name,
		Description: r.Description,
		UnitPrice:   r.UnitPrice,
		ImagePath:   r.ImagePath,
		Category:    r.Category,
		InStock:     r.InStock,
		Popular:     r.Popular,
	}
}

type updateOrderStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
	Notes          string `json:"notes"`
}

type moderateReviewRequest struct {
	Approve bool `json:"approve"`
}

type updateOrderStatusResponse struct {
	Order orderResponse `json:"order"`
	// NotificationSent surfaces delivery failure as a warning; the status
	// change itself already succeeded.
	NotificationSent  bool   `json:"notification_sent"`
	NotificationError string `json:"notification_error,omitempty"`
}

// AdminHandlers exposes the back-office surface: product CRUD, order status
// management and review moderation. All routes require the admin role.
type AdminHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
	orders  services.OrderService
	reviews services.ReviewService
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(authn *auth.Authenticator, catalog services.CatalogService, orders services.OrderService, reviews services.ReviewService) *AdminHandlers {
	return &AdminHandlers{
		authn:   authn,
		catalog: catalog,
		orders:  orders,
		reviews: reviews,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.Require(auth.RoleAdmin))
	}

	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)

	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Put("/orders/{orderID}/status", h.updateOrderStatus)

	r.Get("/reviews", h.listReviews)
	r.Post("/reviews/{reviewID}/moderate", h.moderateReview)
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req upsertProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	product, err := h.catalog.CreateProduct(ctx, req.toCommand())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newProductResponse(product))
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req upsertProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	product, err := h.catalog.UpdateProduct(ctx, chi.URLParam(r, "productID"), req.toCommand())
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productID")); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	statuses, err := parseStatusFilters(r.URL.Query()["status"])
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	// Admin listings span all users unless a user filter is supplied.
	page, err := h.orders.ListOrders(ctx, services.OrderListQuery{
		UserID:     strings.TrimSpace(r.URL.Query().Get("user_id")),
		Status:     statuses,
		Pagination: pagination,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	resp := pageResponse[orderResponse]{
		Items:         make([]orderResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, order := range page.Items {
		resp.Items = append(resp.Items, newOrderResponse(order))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdminHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := h.orders.GetOrder(ctx, "", chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *AdminHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	updatedBy := ""
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		updatedBy = identity.UID
	}

	result, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID:        chi.URLParam(r, "orderID"),
		NewStatus:      domain.OrderStatus(strings.TrimSpace(req.Status)),
		TrackingNumber: req.TrackingNumber,
		Notes:          req.Notes,
		UpdatedBy:      updatedBy,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, updateOrderStatusResponse{
		Order:             newOrderResponse(result.Order),
		NotificationSent:  result.Notification.Sent,
		NotificationError: result.Notification.Error,
	})
}

func (h *AdminHandlers) listReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var statuses []domain.ReviewStatus
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				statuses = append(statuses, domain.ReviewStatus(part))
			}
		}
	}

	page, err := h.reviews.List(ctx, services.ReviewQuery{
		ProductID:  strings.TrimSpace(r.URL.Query().Get("product_id")),
		Status:     statuses,
		Pagination: pagination,
	})
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}

	resp := pageResponse[reviewResponse]{
		Items:         make([]reviewResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, review := range page.Items {
		resp.Items = append(resp.Items, newReviewResponse(review))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdminHandlers) moderateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req moderateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	moderatedBy := ""
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		moderatedBy = identity.UID
	}

	review, err := h.reviews.Moderate(ctx, services.ModerateReviewCommand{
		ReviewID:    chi.URLParam(r, "reviewID"),
		Approve:     req.Approve,
		ModeratedBy: moderatedBy,
	})
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newReviewResponse(review))
}
