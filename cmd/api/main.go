package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/paybridge/api/routes"
	"github.com/angelmondragon/paybridge/internal/intents"
	stripewebhook "github.com/angelmondragon/paybridge/internal/webhooks/stripe"
	"github.com/angelmondragon/paybridge/pkg/config"
	"github.com/angelmondragon/paybridge/pkg/instance"
	"github.com/angelmondragon/paybridge/pkg/logger"
	"github.com/angelmondragon/paybridge/pkg/metrics"
	"github.com/angelmondragon/paybridge/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(runCtx, cfg, logg)
	if err != nil {
		logg.Error(runCtx, "failed to bootstrap transaction store", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(runCtx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(runCtx, "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	paymentMetrics := metrics.NewPaymentMetrics(reg)

	intentService, err := intents.NewService(intents.ServiceParams{
		Processor:            stripeClient,
		Currency:             cfg.Stripe.Currency,
		DefaultPaymentMethod: cfg.Stripe.DefaultPaymentMethod,
		Logger:               logg,
		Metrics:              paymentMetrics,
	})
	if err != nil {
		logg.Error(runCtx, "failed to create intent service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Store:   store,
		Logger:  logg,
		Metrics: paymentMetrics,
	})
	if err != nil {
		logg.Error(runCtx, "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.GetID(),
		"stripe_env":   stripeClient.Environment(),
		"store_driver": cfg.Store.Driver,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, paymentMetrics, reg, store, intentService, stripeClient, webhookService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			_ = closeStore()
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	err = multierr.Combine(
		server.Shutdown(shutdownCtx),
		closeStore(),
	)
	if err != nil {
		logg.Error(ctx, "api shutdown incomplete", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
