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

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/cityprint/api/internal/handlers"
	"github.com/cityprint/api/internal/notifications"
	"github.com/cityprint/api/internal/payments"
	"github.com/cityprint/api/internal/platform/auth"
	"github.com/cityprint/api/internal/platform/config"
	pfirestore "github.com/cityprint/api/internal/platform/firestore"
	"github.com/cityprint/api/internal/platform/observability"
	"github.com/cityprint/api/internal/platform/secrets"
	firestoreRepo "github.com/cityprint/api/internal/repositories/firestore"
	"github.com/cityprint/api/internal/services"
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

	fetcher, err := secrets.NewFetcher(ctx)
	if err != nil {
		logger.Warn("secret fetcher unavailable; secret references will not resolve", zap.Error(err))
	} else {
		defer func() {
			if err := fetcher.Close(); err != nil {
				logger.Warn("secret fetcher close error", zap.Error(err))
			}
		}()
	}

	loadOpts := []config.Option{}
	if fetcher != nil {
		loadOpts = append(loadOpts, config.WithSecretResolver(fetcher))
	}
	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	staffVerifier, err := auth.NewStaffVerifier(cfg.Security.StaffJWTSecret, cfg.Security.StaffJWTIssuer)
	if err != nil {
		logger.Fatal("failed to initialise staff verifier", zap.Error(err))
	}

	var gateway payments.Gateway
	if cfg.Razorpay.KeyID != "" {
		razorpayGateway, err := payments.NewRazorpayGateway(cfg.Razorpay)
		if err != nil {
			logger.Fatal("failed to initialise razorpay gateway", zap.Error(err))
		}
		gateway = razorpayGateway
	} else {
		logger.Warn("razorpay credentials not configured; online payments disabled")
	}

	dispatcher, pubsubClient := newDispatcher(ctx, logger, cfg.Notifications)
	if pubsubClient != nil {
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}

	pricingEngine, err := services.NewPricingEngine(services.PricingEngineDeps{
		Logger: observability.ServiceLogger(logger.Named("pricing")),
	})
	if err != nil {
		logger.Fatal("failed to initialise pricing engine", zap.Error(err))
	}
	taxCalculator, err := services.NewGSTCalculator(cfg.Pricing.TaxRate)
	if err != nil {
		logger.Fatal("failed to initialise tax calculator", zap.Error(err))
	}
	eligibility, err := services.NewSameDayEligibility(services.SameDayEligibilityDeps{
		Timezone: cfg.Pricing.Timezone,
	})
	if err != nil {
		logger.Fatal("failed to initialise delivery eligibility", zap.Error(err))
	}
	allocator, err := services.NewCounterService(services.CounterServiceDeps{
		Repository:  registry.Counters(),
		Timezone:    cfg.Pricing.Timezone,
		OrderPrefix: cfg.Pricing.OrderNumberPrefix,
		QuotePrefix: cfg.Pricing.QuoteNumberPrefix,
	})
	if err != nil {
		logger.Fatal("failed to initialise number allocator", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      registry.Orders(),
		Products:    registry.Products(),
		Pricing:     pricingEngine,
		Tax:         taxCalculator,
		Eligibility: eligibility,
		Numbers:     allocator,
		Gateway:     gateway,
		Dispatcher:  dispatcher,
		Policy: services.OrderPricingPolicy{
			Currency:          cfg.Pricing.Currency,
			ShippingFlatFee:   cfg.Pricing.ShippingFlatFee,
			FreeShippingAbove: cfg.Pricing.FreeShippingAbove,
			HomeState:         cfg.Pricing.HomeState,
		},
		Logger: observability.ServiceLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	quoteService, err := services.NewQuoteService(services.QuoteServiceDeps{
		Quotes:     registry.Quotes(),
		Numbers:    allocator,
		Dispatcher: dispatcher,
		Logger:     observability.ServiceLogger(logger.Named("quotes")),
	})
	if err != nil {
		logger.Fatal("failed to initialise quote service", zap.Error(err))
	}
	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: registry.Products(),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	router, err := handlers.NewRouter(handlers.RouterDeps{
		Logger:   logger.Named("http"),
		Catalog:  catalogService,
		Orders:   orderService,
		Quotes:   quoteService,
		Health:   registry.Health(),
		Customer: authenticator,
		Staff:    staffVerifier,
		Gateway:  gateway,
	})
	if err != nil {
		logger.Fatal("failed to assemble router", zap.Error(err))
	}

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
		serverLogger.Info("cityprint api listening")
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

// newDispatcher builds the Pub/Sub event dispatcher, falling back to a noop
// when the topic is not configured so checkout never depends on it.
func newDispatcher(ctx context.Context, logger *zap.Logger, cfg config.NotificationConfig) (notifications.Dispatcher, *pubsub.Client) {
	if cfg.ProjectID == "" || cfg.OrderTopicID == "" {
		logger.Warn("order event topic not configured; notifications disabled")
		return notifications.NoopDispatcher{}, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Warn("pubsub client init failed; notifications disabled", zap.Error(err))
		return notifications.NoopDispatcher{}, nil
	}

	dispatcher, err := notifications.NewPubSubDispatcher(notifications.PubSubDispatcherDeps{
		Topic:          client.Topic(cfg.OrderTopicID),
		PublishTimeout: cfg.PublishTimeout,
		Logger:         observability.ServiceLogger(logger.Named("notifications")),
	})
	if err != nil {
		logger.Warn("dispatcher init failed; notifications disabled", zap.Error(err))
		_ = client.Close()
		return notifications.NoopDispatcher{}, nil
	}
	return dispatcher, client
}
