package services

import (
	"context"
	"errors"
	"testing"
)

func testPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRateBps:            800,
		FreeShippingThreshold: 10000,
		FlatShippingCost:      599,
	}
}

func newTestPricingEngine(t *testing.T) *PricingEngine {
	t.Helper()
	engine, err := NewPricingEngine(PricingEngineDeps{Policy: testPolicy()})
	if err != nil {
		t.Fatalf("NewPricingEngine returned error: %v", err)
	}
	return engine
}

func TestPricingEngineHappyPath(t *testing.T) {
	engine := newTestPricingEngine(t)

	totals, err := engine.Calculate(context.Background(), []CartLine{
		{ProductID: "p1", Name: "Lavender Candle", UnitPrice: 2499, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	want := CartTotals{Subtotal: 4998, Tax: 400, Shipping: 599, Total: 5997}
	if totals != want {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
}

func TestPricingEngineEmptyCartIsAllZeros(t *testing.T) {
	engine := newTestPricingEngine(t)

	totals, err := engine.Calculate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if totals != (CartTotals{}) {
		t.Fatalf("totals = %+v, want all zeros", totals)
	}
}

func TestPricingEngineFreeShippingAtThreshold(t *testing.T) {
	engine := newTestPricingEngine(t)

	cases := []struct {
		name         string
		unitPrice    int64
		wantShipping int64
	}{
		{name: "just below threshold", unitPrice: 9999, wantShipping: 599},
		{name: "exactly at threshold", unitPrice: 10000, wantShipping: 0},
		{name: "above threshold", unitPrice: 10001, wantShipping: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals, err := engine.Calculate(context.Background(), []CartLine{
				{ProductID: "p1", UnitPrice: tc.unitPrice, Quantity: 1},
			})
			if err != nil {
				t.Fatalf("Calculate returned error: %v", err)
			}
			if totals.Shipping != tc.wantShipping {
				t.Fatalf("shipping = %d, want %d", totals.Shipping, tc.wantShipping)
			}
		})
	}
}

func TestPricingEngineTaxRoundsHalfUp(t *testing.T) {
	engine := newTestPricingEngine(t)

	// 8% of 1231 is 98.48, rounds down to 98; 8% of 1232 is 98.56, rounds up.
	cases := []struct {
		subtotal int64
		wantTax  int64
	}{
		{subtotal: 1231, wantTax: 98},
		{subtotal: 1232, wantTax: 99},
		{subtotal: 625, wantTax: 50},
	}

	for _, tc := range cases {
		totals, err := engine.Calculate(context.Background(), []CartLine{
			{ProductID: "p1", UnitPrice: tc.subtotal, Quantity: 1},
		})
		if err != nil {
			t.Fatalf("Calculate(%d) returned error: %v", tc.subtotal, err)
		}
		if totals.Tax != tc.wantTax {
			t.Fatalf("tax for subtotal %d = %d, want %d", tc.subtotal, totals.Tax, tc.wantTax)
		}
	}
}

func TestPricingEngineRejectsInvalidLines(t *testing.T) {
	engine := newTestPricingEngine(t)

	cases := []struct {
		name string
		line CartLine
	}{
		{name: "negative price", line: CartLine{ProductID: "p1", UnitPrice: -1, Quantity: 1}},
		{name: "zero quantity", line: CartLine{ProductID: "p1", UnitPrice: 100, Quantity: 0}},
		{name: "negative quantity", line: CartLine{ProductID: "p1", UnitPrice: 100, Quantity: -2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Calculate(context.Background(), []CartLine{tc.line})
			if !errors.Is(err, ErrPricingInvalidCart) {
				t.Fatalf("error = %v, want ErrPricingInvalidCart", err)
			}
		})
	}
}

func TestNewPricingEngineRejectsNegativePolicy(t *testing.T) {
	_, err := NewPricingEngine(PricingEngineDeps{Policy: PricingPolicy{TaxRateBps: -1}})
	if !errors.Is(err, ErrPricingInvalidPolicy) {
		t.Fatalf("error = %v, want ErrPricingInvalidPolicy", err)
	}
}
