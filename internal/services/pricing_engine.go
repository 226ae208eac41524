package services

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrPricingInvalidCart signals malformed cart data such as negative
	// prices or non-positive quantities.
	ErrPricingInvalidCart = errors.New("pricing: invalid cart")
	// ErrPricingInvalidPolicy signals a misconfigured pricing policy.
	ErrPricingInvalidPolicy = errors.New("pricing: invalid policy")
)

// PricingPolicy holds the tunable parameters of the pricing computation.
// Amounts are minor currency units; the tax rate is expressed in basis
// points so the whole computation stays integral.
type PricingPolicy struct {
	TaxRateBps            int64
	FreeShippingThreshold int64
	FlatShippingCost      int64
}

// PricingEngine derives cart totals from line items and a pricing policy.
// It is a pure computation: the engine never reads or writes state, so the
// same cart and policy always produce the same totals.
type PricingEngine struct {
	policy PricingPolicy
	logger Logger
}

type PricingEngineDeps struct {
	Policy PricingPolicy
	Logger Logger
}

func NewPricingEngine(deps PricingEngineDeps) (*PricingEngine, error) {
	if err := validatePolicy(deps.Policy); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &PricingEngine{
		policy: deps.Policy,
		logger: logger,
	}, nil
}

func validatePolicy(policy PricingPolicy) error {
	if policy.TaxRateBps < 0 {
		return fmt.Errorf("%w: tax rate must not be negative", ErrPricingInvalidPolicy)
	}
	if policy.FreeShippingThreshold < 0 {
		return fmt.Errorf("%w: free shipping threshold must not be negative", ErrPricingInvalidPolicy)
	}
	if policy.FlatShippingCost < 0 {
		return fmt.Errorf("%w: flat shipping cost must not be negative", ErrPricingInvalidPolicy)
	}
	return nil
}

// Calculate computes subtotal, tax, shipping and total for the given lines.
// An empty cart prices to all zeros; in particular it never accrues the
// flat shipping cost.
func (e *PricingEngine) Calculate(ctx context.Context, lines []CartLine) (CartTotals, error) {
	if e == nil {
		return CartTotals{}, errors.New("pricing: engine is nil")
	}

	var subtotal int64
	for i, line := range lines {
		if line.UnitPrice < 0 {
			return CartTotals{}, fmt.Errorf("%w: line %d has negative unit price", ErrPricingInvalidCart, i)
		}
		if line.Quantity <= 0 {
			return CartTotals{}, fmt.Errorf("%w: line %d has non-positive quantity", ErrPricingInvalidCart, i)
		}
		subtotal += line.UnitPrice * int64(line.Quantity)
	}

	if len(lines) == 0 || subtotal == 0 {
		return CartTotals{}, nil
	}

	tax := roundHalfUpBps(subtotal, e.policy.TaxRateBps)
	shipping := e.policy.FlatShippingCost
	if subtotal >= e.policy.FreeShippingThreshold {
		shipping = 0
	}

	totals := CartTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}

	e.logger(ctx, "pricing.calculated", map[string]any{
		"lines":    len(lines),
		"subtotal": totals.Subtotal,
		"tax":      totals.Tax,
		"shipping": totals.Shipping,
		"total":    totals.Total,
	})
	return totals, nil
}

// roundHalfUpBps applies a basis-point rate with half-up rounding on the
// final minor unit.
func roundHalfUpBps(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
