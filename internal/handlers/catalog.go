package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/platform/httpx"
	"github.com/bloomgoods/api/internal/services"
)

// CatalogHandlers exposes public storefront product endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
	reviews services.ReviewService
}

// NewCatalogHandlers constructs a new CatalogHandlers instance.
func NewCatalogHandlers(catalog services.CatalogService, reviews services.ReviewService) *CatalogHandlers {
	return &CatalogHandlers{
		catalog: catalog,
		reviews: reviews,
	}
}

// Routes registers the /products endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
	r.Get("/{productID}/reviews", h.listProductReviews)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := r.URL.Query()
	page, err := h.catalog.ListProducts(ctx, services.CatalogQuery{
		Category:    strings.TrimSpace(query.Get("category")),
		PopularOnly: query.Get("popular") == "true",
		InStockOnly: query.Get("in_stock") == "true",
		Pagination:  pagination,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	resp := pageResponse[productResponse]{
		Items:         make([]productResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, product := range page.Items {
		resp.Items = append(resp.Items, newProductResponse(product))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandlers) listProductReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reviews_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
		return
	}

	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	// Only approved reviews are visible on the storefront.
	page, err := h.reviews.List(ctx, services.ReviewQuery{
		ProductID:  chi.URLParam(r, "productID"),
		Status:     []domain.ReviewStatus{domain.ReviewStatusApproved},
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

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_conflict", "product was modified concurrently", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
	}
}
