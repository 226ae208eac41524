package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/bloomgoods/api/internal/domain"
	pfirestore "github.com/bloomgoods/api/internal/platform/firestore"
)

const cartCollection = "carts"

// CartRepository persists the single active cart per user, keyed by user ID.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base: pfirestore.NewBaseRepository[cartDocument](provider, cartCollection),
	}, nil
}

func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ReplaceLines swaps the full line set for the user's cart, creating the
// document when absent. An empty slice clears the cart.
func (r *CartRepository) ReplaceLines(ctx context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	now := time.Now().UTC()
	createdAt := now
	if existing, err := r.base.Get(ctx, userID); err == nil && !existing.Data.CreatedAt.IsZero() {
		createdAt = existing.Data.CreatedAt
	}

	doc := cartDocument{
		Lines:     make([]cartLineDocument, 0, len(lines)),
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	for _, line := range lines {
		doc.Lines = append(doc.Lines, newCartLineDocument(line))
	}

	if _, err := r.base.Set(ctx, userID, doc); err != nil {
		return domain.Cart{}, err
	}
	return doc.toDomain(userID), nil
}

type cartLineDocument struct {
	ProductID string    `firestore:"productId"`
	Name      string    `firestore:"name"`
	UnitPrice int64     `firestore:"unitPrice"`
	ImagePath string    `firestore:"imagePath,omitempty"`
	Quantity  int       `firestore:"quantity"`
	AddedAt   time.Time `firestore:"addedAt"`
}

type cartDocument struct {
	Lines     []cartLineDocument `firestore:"lines"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

func newCartLineDocument(line domain.CartLine) cartLineDocument {
	return cartLineDocument{
		ProductID: line.ProductID,
		Name:      line.Name,
		UnitPrice: line.UnitPrice,
		ImagePath: line.ImagePath,
		Quantity:  line.Quantity,
		AddedAt:   line.AddedAt.UTC(),
	}
}

func (d cartDocument) toDomain(userID string) domain.Cart {
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
	return domain.Cart{
		ID:        userID,
		UserID:    userID,
		Lines:     lines,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
