package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("PORT", "")
	t.Setenv("PRICING_TAX_RATE_BPS", "")
	t.Setenv("PRICING_FREE_SHIPPING_THRESHOLD", "")
	t.Setenv("PRICING_FLAT_SHIPPING_COST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Fatalf("expected port %s got %s", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Fatalf("unexpected read timeout %s", cfg.Server.ReadTimeout)
	}
	if cfg.Pricing.TaxRateBps != defaultTaxRateBps {
		t.Fatalf("expected tax rate %d got %d", defaultTaxRateBps, cfg.Pricing.TaxRateBps)
	}
	if cfg.Pricing.FreeShippingThreshold != defaultFreeShippingThreshold {
		t.Fatalf("unexpected threshold %d", cfg.Pricing.FreeShippingThreshold)
	}
	if cfg.Notifications.Topic != defaultNotificationTopic {
		t.Fatalf("unexpected topic %s", cfg.Notifications.Topic)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")
	t.Setenv("PRICING_TAX_RATE_BPS", "1000")
	t.Setenv("PRICING_FREE_SHIPPING_THRESHOLD", "5000")
	t.Setenv("PRICING_FLAT_SHIPPING_COST", "499")
	t.Setenv("FIRESTORE_PROJECT_ID", "demo-project")
	t.Setenv("NOTIFICATION_PROJECT_ID", "")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("unexpected port %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("unexpected read timeout %s", cfg.Server.ReadTimeout)
	}
	if cfg.Pricing.TaxRateBps != 1000 || cfg.Pricing.FreeShippingThreshold != 5000 || cfg.Pricing.FlatShippingCost != 499 {
		t.Fatalf("unexpected pricing config %+v", cfg.Pricing)
	}
	// Notification and Firebase project IDs fall back to the Firestore project.
	if cfg.Notifications.ProjectID != "demo-project" {
		t.Fatalf("expected notification project fallback, got %q", cfg.Notifications.ProjectID)
	}
	if cfg.Firebase.ProjectID != "demo-project" {
		t.Fatalf("expected firebase project fallback, got %q", cfg.Firebase.ProjectID)
	}
}

func TestLoadRejectsNegativePricing(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("PRICING_TAX_RATE_BPS", "-5")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for negative tax rate")
	}
}
