package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/platform/httpx"
	"github.com/bloomgoods/api/internal/services"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodySize     = 64 * 1024
)

type productResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	UnitPrice   int64   `json:"unit_price"`
	ImagePath   string  `json:"image_path,omitempty"`
	Category    string  `json:"category,omitempty"`
	InStock     bool    `json:"in_stock"`
	Popular     bool    `json:"popular"`
	Rating      float64 `json:"rating,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func newProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		UnitPrice:   product.UnitPrice,
		ImagePath:   product.ImagePath,
		Category:    product.Category,
		InStock:     product.InStock,
		Popular:     product.Popular,
		Rating:      product.Rating,
		CreatedAt:   formatTime(product.CreatedAt),
		UpdatedAt:   formatTime(product.UpdatedAt),
	}
}

type cartLineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	ImagePath string `json:"image_path,omitempty"`
	Quantity  int    `json:"quantity"`
	AddedAt   string `json:"added_at"`
}

type totalsResponse struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

type cartResponse struct {
	Lines     []cartLineResponse `json:"lines"`
	ItemCount int                `json:"item_count"`
	Totals    totalsResponse     `json:"totals"`
}

func newCartResponse(view services.CartView) cartResponse {
	lines := make([]cartLineResponse, 0, len(view.Cart.Lines))
	for _, line := range view.Cart.Lines {
		lines = append(lines, cartLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			ImagePath: line.ImagePath,
			Quantity:  line.Quantity,
			AddedAt:   formatTime(line.AddedAt),
		})
	}
	return cartResponse{
		Lines:     lines,
		ItemCount: view.Cart.ItemCount(),
		Totals:    newTotalsResponse(view.Totals),
	}
}

func newTotalsResponse(totals domain.CartTotals) totalsResponse {
	return totalsResponse{
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Shipping: totals.Shipping,
		Total:    totals.Total,
	}
}

type shippingAddressPayload struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
}

func (p shippingAddressPayload) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:       strings.TrimSpace(p.Name),
		Email:      strings.TrimSpace(p.Email),
		Phone:      strings.TrimSpace(p.Phone),
		Street:     strings.TrimSpace(p.Street),
		City:       strings.TrimSpace(p.City),
		State:      strings.TrimSpace(p.State),
		PostalCode: strings.TrimSpace(p.PostalCode),
	}
}

func newShippingAddressPayload(addr domain.ShippingAddress) shippingAddressPayload {
	return shippingAddressPayload{
		Name:       addr.Name,
		Email:      addr.Email,
		Phone:      addr.Phone,
		Street:     addr.Street,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
	}
}

type orderResponse struct {
	ID                string                 `json:"id"`
	OrderNumber       string                 `json:"order_number"`
	Lines             []cartLineResponse     `json:"lines"`
	ShippingAddress   shippingAddressPayload `json:"shipping_address"`
	Totals            totalsResponse         `json:"totals"`
	Status            string                 `json:"status"`
	TrackingNumber    string                 `json:"tracking_number,omitempty"`
	Notes             string                 `json:"notes,omitempty"`
	CreatedAt         string                 `json:"created_at"`
	UpdatedAt         string                 `json:"updated_at"`
	EstimatedDelivery string                 `json:"estimated_delivery,omitempty"`
}

func newOrderResponse(order domain.Order) orderResponse {
	lines := make([]cartLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, cartLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			ImagePath: line.ImagePath,
			Quantity:  line.Quantity,
			AddedAt:   formatTime(line.AddedAt),
		})
	}
	resp := orderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Lines:           lines,
		ShippingAddress: newShippingAddressPayload(order.ShippingAddress),
		Totals:          newTotalsResponse(order.Totals),
		Status:          string(order.Status),
		TrackingNumber:  order.TrackingNumber,
		Notes:           order.Notes,
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
	}
	if order.EstimatedDelivery != nil {
		resp.EstimatedDelivery = formatTime(*order.EstimatedDelivery)
	}
	return resp
}

type reviewResponse struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id,omitempty"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func newReviewResponse(review domain.Review) reviewResponse {
	return reviewResponse{
		ID:        review.ID,
		OrderID:   review.OrderID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		Status:    string(review.Status),
		CreatedAt: formatTime(review.CreatedAt),
	}
}

type pageResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parsePagination(r *http.Request) (domain.Pagination, error) {
	query := r.URL.Query()
	size := defaultPageSize
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Pagination{}, errors.New("page_size must be an integer")
		}
		switch {
		case parsed <= 0:
			size = defaultPageSize
		case parsed > maxPageSize:
			size = maxPageSize
		default:
			size = parsed
		}
	}
	return domain.Pagination{
		PageSize:  size,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}, nil
}

func writeInvalidBody(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "request body is not valid JSON", http.StatusBadRequest))
}
