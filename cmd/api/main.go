package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/emarket-np/storefront/api/routes"
	"github.com/emarket-np/storefront/internal/cart"
	"github.com/emarket-np/storefront/internal/catalog"
	"github.com/emarket-np/storefront/internal/checkout"
	"github.com/emarket-np/storefront/internal/coupons"
	"github.com/emarket-np/storefront/internal/orders"
	"github.com/emarket-np/storefront/internal/payments"
	"github.com/emarket-np/storefront/internal/shipping"
	"github.com/emarket-np/storefront/pkg/config"
	"github.com/emarket-np/storefront/pkg/db"
	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/metrics"
	"github.com/emarket-np/storefront/pkg/redis"
	"github.com/emarket-np/storefront/pkg/restclient"
	"github.com/emarket-np/storefront/pkg/wallet"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(promRegistry)

	taxRate, err := cfg.Pricing.Rate()
	if err != nil {
		logg.Error(ctx, "invalid tax rate", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewSnapshotStore(dbClient.DB())
	if err != nil {
		logg.Error(ctx, "failed to prepare cart store", err)
		os.Exit(1)
	}
	aggregator, err := cart.NewAggregator(ctx, cartStore, taxRate, logg)
	if err != nil {
		logg.Error(ctx, "failed to build cart", err)
		os.Exit(1)
	}

	newRest := func(baseURL string) *restclient.Client {
		client, err := restclient.New(baseURL, cfg.Services.Timeout, logg)
		if err != nil {
			logg.Error(ctx, "failed to build rest client for "+baseURL, err)
			os.Exit(1)
		}
		return client
	}

	catalogClient, err := catalog.NewClient(newRest(cfg.Services.CatalogBaseURL))
	if err != nil {
		logg.Error(ctx, "failed to build catalog client", err)
		os.Exit(1)
	}
	couponClient, err := coupons.NewClient(newRest(cfg.Services.CouponBaseURL))
	if err != nil {
		logg.Error(ctx, "failed to build coupon client", err)
		os.Exit(1)
	}
	shippingClient, err := shipping.NewClient(newRest(cfg.Services.ShippingBaseURL), cfg.Shipping.HomeCountry)
	if err != nil {
		logg.Error(ctx, "failed to build shipping client", err)
		os.Exit(1)
	}
	orderClient, err := orders.NewClient(newRest(cfg.Services.OrderBaseURL))
	if err != nil {
		logg.Error(ctx, "failed to build order client", err)
		os.Exit(1)
	}
	paymentClient, err := payments.NewClient(newRest(cfg.Services.PaymentBaseURL))
	if err != nil {
		logg.Error(ctx, "failed to build payment client", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		API:        orderClient,
		PendingTTL: cfg.Sweep.PendingTTL,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build order service", err)
		os.Exit(1)
	}

	signer, err := wallet.NewSigner(cfg.Wallet.SecretKey)
	if err != nil {
		logg.Error(ctx, "failed to build wallet signer", err)
		os.Exit(1)
	}

	orchestrator, err := checkout.NewOrchestrator(checkout.OrchestratorParams{
		Cart:     aggregator,
		Catalog:  catalogClient,
		Coupons:  couponClient,
		Shipping: shippingClient,
		Orders:   orderClient,
		History:  orderService,
		Records:  paymentClient,
		Signer:   signer,
		Wallet:   cfg.Wallet,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build checkout orchestrator", err)
		os.Exit(1)
	}

	reconciler, err := payments.NewReconciler(payments.ReconcilerParams{
		Records: paymentClient,
		Orders:  orderClient,
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build payment reconciler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting storefront api")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Cart:       aggregator,
			Checkout:   orchestrator,
			Orders:     orderService,
			Reconciler: reconciler,
			Registry:   promRegistry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "storefront api stopped unexpectedly", err)
		os.Exit(1)
	}
}
