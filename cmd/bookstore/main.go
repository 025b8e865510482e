package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkpress/bookstore/internal/cart"
	"github.com/inkpress/bookstore/internal/catalog"
	"github.com/inkpress/bookstore/internal/checkout"
	"github.com/inkpress/bookstore/internal/config"
	"github.com/inkpress/bookstore/internal/finance"
	"github.com/inkpress/bookstore/internal/fulfillment"
	"github.com/inkpress/bookstore/internal/infra/adapters/blobstore"
	"github.com/inkpress/bookstore/internal/infra/adapters/docstore"
	"github.com/inkpress/bookstore/internal/infra/adapters/mailer"
	"github.com/inkpress/bookstore/internal/infra/adapters/printer"
	"github.com/inkpress/bookstore/internal/infra/adapters/stripegw"
	"github.com/inkpress/bookstore/internal/infra/httpx"
	"github.com/inkpress/bookstore/internal/orders"
	"github.com/inkpress/bookstore/internal/pkg/cache"
	"github.com/inkpress/bookstore/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.ServiceName)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Error("tracer shutdown failed", "error", err)
		}
	}()

	store, err := docstore.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)

	blobs, err := blobstore.New(blobstore.Config{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		slog.Error("failed to connect to object store", "error", err)
		os.Exit(1)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		slog.Error("failed to prepare asset bucket", "error", err)
		os.Exit(1)
	}

	gateway := stripegw.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.SiteURL)
	mail := mailer.New(cfg.ResendAPIKey, cfg.MailFrom)
	printService := printer.New(cfg.Lulu.BaseURL, cfg.Lulu.ClientKey, cfg.Lulu.ClientSecret)

	bookRepo := store.Books()
	orderRepo := store.Orders()

	catalogSvc := catalog.NewService(bookRepo, blobs, mail, redisCache)
	cartSvc := cart.NewService(redisCache, bookRepo)
	checkoutSvc := checkout.NewService(gateway, orderRepo)
	orderSvc := orders.NewService(orderRepo)
	financeSvc := finance.NewService(finance.NewAggregator(cfg.TaxRatePercent), bookRepo, orderRepo)
	flogRepo := store.FulfillmentLogs()
	fulfiller := fulfillment.NewCoordinator(orderRepo, gateway, printService, mail, flogRepo)

	handler := httpx.NewHandler(catalogSvc, cartSvc, checkoutSvc, orderSvc, financeSvc, gateway, fulfiller, flogRepo)
	router := httpx.NewRouter(handler)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("bookstore listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
