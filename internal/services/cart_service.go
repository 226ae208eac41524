package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bloomgoods/api/internal/domain"
	"github.com/bloomgoods/api/internal/repositories"
)

var (
	// ErrCartInvalidInput indicates the caller supplied invalid input.
	ErrCartInvalidInput = errors.New("cart service: invalid input")
	// ErrCartProductNotFound indicates the referenced product does not exist.
	ErrCartProductNotFound = errors.New("cart service: product not found")
	// ErrCartProductUnavailable indicates the product is out of stock.
	ErrCartProductUnavailable = errors.New("cart service: product unavailable")
	// ErrCartUnavailable indicates the backing store cannot fulfil the request.
	ErrCartUnavailable = errors.New("cart service: unavailable")
)

const (
	minLineQuantity = 1
	maxLineQuantity = 10
)

// CartView pairs the stored cart with totals derived at read time. Totals
// are never persisted; they are recomputed from the lines on every read so
// a pricing policy change is reflected immediately.
type CartView struct {
	Cart   Cart
	Totals CartTotals
}

// CartPricer computes totals for a set of cart lines.
type CartPricer interface {
	Calculate(ctx context.Context, lines []CartLine) (CartTotals, error)
}

// AddCartItemCommand adds a product to the cart.
type AddCartItemCommand struct {
	ProductID string
	Quantity  int
}

// CartService manages the per-user cart aggregate.
type CartService interface {
	GetCart(ctx context.Context, userID string) (CartView, error)
	AddItem(ctx context.Context, userID string, cmd AddCartItemCommand) (CartView, error)
	SetQuantity(ctx context.Context, userID, productID string, quantity int) (CartView, error)
	RemoveItem(ctx context.Context, userID, productID string) (CartView, error)
	Clear(ctx context.Context, userID string) error
}

// CartServiceDeps wires the repositories and pricing dependencies.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Products   repositories.ProductRepository
	Pricer     CartPricer
	Clock      func() time.Time
	Logger     Logger
}

type cartService struct {
	repo     repositories.CartRepository
	products repositories.ProductRepository
	pricer   CartPricer
	now      func() time.Time
	logger   Logger
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errors.New("cart service: repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("cart service: pricer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:     deps.Repository,
		products: deps.Products,
		pricer:   deps.Pricer,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

func (s *cartService) GetCart(ctx context.Context, userID string) (CartView, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.loadCart(ctx, uid)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, cart)
}

func (s *cartService) AddItem(ctx context.Context, userID string, cmd AddCartItemCommand) (CartView, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return CartView{}, ErrCartProductNotFound
		}
		return CartView{}, s.translateRepoError(err)
	}
	if !product.InStock {
		return CartView{}, ErrCartProductUnavailable
	}

	cart, err := s.loadCart(ctx, uid)
	if err != nil {
		return CartView{}, err
	}

	quantity := clampQuantity(cmd.Quantity)
	found := false
	lines := cloneLines(cart.Lines)
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = clampQuantity(lines[i].Quantity + quantity)
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.UnitPrice,
			ImagePath: product.ImagePath,
			Quantity:  quantity,
			AddedAt:   s.now(),
		})
	}

	saved, err := s.repo.ReplaceLines(ctx, uid, lines)
	if err != nil {
		return CartView{}, s.translateRepoError(err)
	}

	s.logger(ctx, "cart.item_added", map[string]any{
		"userId":    uid,
		"productId": productID,
		"quantity":  quantity,
		"lines":     len(saved.Lines),
	})
	return s.view(ctx, saved)
}

func (s *cartService) SetQuantity(ctx context.Context, userID, productID string, quantity int) (CartView, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if quantity < 0 {
		return CartView{}, fmt.Errorf("%w: quantity must not be negative", ErrCartInvalidInput)
	}

	cart, err := s.loadCart(ctx, uid)
	if err != nil {
		return CartView{}, err
	}

	lines := make([]domain.CartLine, 0, len(cart.Lines))
	found := false
	for _, line := range cart.Lines {
		if line.ProductID != productID {
			lines = append(lines, line)
			continue
		}
		found = true
		if quantity == 0 {
			continue
		}
		line.Quantity = clampQuantity(quantity)
		lines = append(lines, line)
	}
	if !found {
		return CartView{}, ErrCartProductNotFound
	}

	saved, err := s.repo.ReplaceLines(ctx, uid, lines)
	if err != nil {
		return CartView{}, s.translateRepoError(err)
	}

	s.logger(ctx, "cart.quantity_set", map[string]any{
		"userId":    uid,
		"productId": productID,
		"quantity":  quantity,
	})
	return s.view(ctx, saved)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (CartView, error) {
	return s.SetQuantity(ctx, userID, productID, 0)
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if _, err := s.repo.ReplaceLines(ctx, uid, nil); err != nil {
		return s.translateRepoError(err)
	}
	s.logger(ctx, "cart.cleared", map[string]any{"userId": uid})
	return nil
}

// loadCart treats a missing cart document as an empty cart rather than an
// error; carts are created lazily on first write.
func (s *cartService) loadCart(ctx context.Context, userID string) (Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{UserID: userID}, nil
		}
		return Cart{}, s.translateRepoError(err)
	}
	return cart, nil
}

func (s *cartService) view(ctx context.Context, cart Cart) (CartView, error) {
	totals, err := s.pricer.Calculate(ctx, cart.Lines)
	if err != nil {
		s.logger(ctx, "cart.pricing_failed", map[string]any{
			"userId": cart.UserID,
			"error":  err.Error(),
		})
		return CartView{}, fmt.Errorf("%w: %v", ErrCartInvalidInput, err)
	}
	return CartView{Cart: cart, Totals: totals}, nil
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCartProductNotFound
		}
	}
	return ErrCartUnavailable
}

func clampQuantity(quantity int) int {
	if quantity < minLineQuantity {
		return minLineQuantity
	}
	if quantity > maxLineQuantity {
		return maxLineQuantity
	}
	return quantity
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
