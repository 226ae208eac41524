package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	// Pricing defaults mirror the storefront launch policy: 8% tax, free
	// shipping at 100.00, 5.99 flat rate otherwise (minor units).
	defaultTaxRateBps            = 800
	defaultFreeShippingThreshold = 10000
	defaultFlatShippingCost      = 599

	defaultNotificationTopic = "order-notifications"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Firestore     FirestoreConfig
	Firebase      FirebaseConfig
	Stripe        StripeConfig
	Notifications NotificationConfig
	Pricing       PricingConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// FirebaseConfig stores Firebase Auth project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// StripeConfig collects payment provider credentials.
type StripeConfig struct {
	APIKey     string
	SuccessURL string
	CancelURL  string
}

// NotificationConfig identifies the Pub/Sub topic the email worker consumes.
type NotificationConfig struct {
	ProjectID string
	Topic     string
}

// PricingConfig carries the storefront pricing policy. TaxRateBps is the tax
// rate in basis points so totals stay integral; monetary fields are in the
// smallest currency unit.
type PricingConfig struct {
	TaxRateBps            int64
	FreeShippingThreshold int64
	FlatShippingCost      int64
}

// Load reads configuration from the environment, applying values from an
// optional .env file first (existing environment variables win).
func Load() (Config, error) {
	if err := loadEnvFile(envFileName()); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         envOrDefault("PORT", defaultPort),
			ReadTimeout:  durationOrDefault("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationOrDefault("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationOrDefault("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID")),
			EmulatorHost: strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST")),
		},
		Firebase: FirebaseConfig{
			ProjectID:       strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
			CredentialsFile: strings.TrimSpace(os.Getenv("FIREBASE_CREDENTIALS_FILE")),
		},
		Stripe: StripeConfig{
			APIKey:     strings.TrimSpace(os.Getenv("STRIPE_API_KEY")),
			SuccessURL: strings.TrimSpace(os.Getenv("CHECKOUT_SUCCESS_URL")),
			CancelURL:  strings.TrimSpace(os.Getenv("CHECKOUT_CANCEL_URL")),
		},
		Notifications: NotificationConfig{
			ProjectID: strings.TrimSpace(os.Getenv("NOTIFICATION_PROJECT_ID")),
			Topic:     envOrDefault("NOTIFICATION_TOPIC", defaultNotificationTopic),
		},
		Pricing: PricingConfig{
			TaxRateBps:            int64OrDefault("PRICING_TAX_RATE_BPS", defaultTaxRateBps),
			FreeShippingThreshold: int64OrDefault("PRICING_FREE_SHIPPING_THRESHOLD", defaultFreeShippingThreshold),
			FlatShippingCost:      int64OrDefault("PRICING_FLAT_SHIPPING_COST", defaultFlatShippingCost),
		},
	}

	if cfg.Notifications.ProjectID == "" {
		cfg.Notifications.ProjectID = cfg.Firestore.ProjectID
	}
	if cfg.Firebase.ProjectID == "" {
		cfg.Firebase.ProjectID = cfg.Firestore.ProjectID
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var problems []string
	if c.Pricing.TaxRateBps < 0 {
		problems = append(problems, "PRICING_TAX_RATE_BPS must be non-negative")
	}
	if c.Pricing.FreeShippingThreshold < 0 {
		problems = append(problems, "PRICING_FREE_SHIPPING_THRESHOLD must be non-negative")
	}
	if c.Pricing.FlatShippingCost < 0 {
		problems = append(problems, "PRICING_FLAT_SHIPPING_COST must be non-negative")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		problems = append(problems, "PORT must not be empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envFileName() string {
	if name := strings.TrimSpace(os.Getenv("ENV_FILE")); name != "" {
		return name
	}
	return defaultEnvFile
}

// loadEnvFile applies KEY=VALUE pairs from the file without overriding
// variables already present in the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func int64OrDefault(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
