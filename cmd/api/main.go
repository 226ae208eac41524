package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/bloomgoods/api/internal/handlers"
	"github.com/bloomgoods/api/internal/payments"
	"github.com/bloomgoods/api/internal/platform/auth"
	"github.com/bloomgoods/api/internal/platform/config"
	pfirestore "github.com/bloomgoods/api/internal/platform/firestore"
	"github.com/bloomgoods/api/internal/platform/jobs"
	"github.com/bloomgoods/api/internal/platform/observability"
	firestoreRepo "github.com/bloomgoods/api/internal/repositories/firestore"
	"github.com/bloomgoods/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.Notifications.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()
	notificationTopic := pubsubClient.Topic(cfg.Notifications.Topic)
	defer notificationTopic.Stop()

	dispatcher, err := jobs.NewPubSubNotificationDispatcher(notificationTopic)
	if err != nil {
		logger.Fatal("failed to initialise notification dispatcher", zap.Error(err))
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator, err := auth.NewAuthenticator(firebaseVerifier)
	if err != nil {
		logger.Fatal("failed to initialise authenticator", zap.Error(err))
	}

	productRepo, err := firestoreRepo.NewProductRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	cartRepo, err := firestoreRepo.NewCartRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise cart repository", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	reviewRepo, err := firestoreRepo.NewReviewRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise review repository", zap.Error(err))
	}

	pricingEngine, err := services.NewPricingEngine(services.PricingEngineDeps{
		Policy: services.PricingPolicy{
			TaxRateBps:            cfg.Pricing.TaxRateBps,
			FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
			FlatShippingCost:      cfg.Pricing.FlatShippingCost,
		},
		Logger: observability.EventLogger(logger.Named("pricing")),
	})
	if err != nil {
		logger.Fatal("failed to initialise pricing engine", zap.Error(err))
	}

	orderNumbers := services.NewOrderNumberGenerator(services.OrderNumberGeneratorDeps{
		Clock: time.Now,
	})

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: cartRepo,
		Products:   productRepo,
		Pricer:     pricingEngine,
		Clock:      time.Now,
		Logger:     observability.EventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Repository:   orderRepo,
		Carts:        cartRepo,
		Pricer:       pricingEngine,
		OrderNumbers: orderNumbers,
		Dispatcher:   dispatcher,
		Clock:        time.Now,
		Logger:       observability.EventLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey: cfg.Stripe.APIKey,
		Logger: observability.EventLogger(logger.Named("stripe")),
		Clock:  time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe payment provider", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:      cartService,
		Orders:     orderService,
		Payments:   stripeProvider,
		SuccessURL: cfg.Stripe.SuccessURL,
		CancelURL:  cfg.Stripe.CancelURL,
		Clock:      time.Now,
		Logger:     observability.EventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: productRepo,
		Clock:      time.Now,
		Logger:     observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	reviewService, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews: reviewRepo,
		Orders:  orderRepo,
		Clock:   time.Now,
		Logger:  observability.EventLogger(logger.Named("reviews")),
	})
	if err != nil {
		logger.Fatal("failed to initialise review service", zap.Error(err))
	}

	catalogHandlers := handlers.NewCatalogHandlers(catalogService, reviewService)
	cartHandlers := handlers.NewCartHandlers(authenticator, cartService)
	checkoutHandlers := handlers.NewCheckoutHandlers(authenticator, checkoutService)
	orderHandlers := handlers.NewOrderHandlers(authenticator, orderService)
	reviewHandlers := handlers.NewReviewHandlers(authenticator, reviewService)
	adminHandlers := handlers.NewAdminHandlers(authenticator, catalogService, orderService, reviewService)

	healthHandlers := handlers.NewHealthHandlers(map[string]handlers.ReadinessCheck{
		"firestore": firestoreReadiness(firestoreClient),
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithReviewRoutes(reviewHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("bloomgoods api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func firestoreReadiness(client *firestore.Client) handlers.ReadinessCheck {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("firestore client not configured")
		}
		iter := client.Collections(ctx)
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}
