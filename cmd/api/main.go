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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/reraeasy/quotation-engine/api/routes"
	"github.com/reraeasy/quotation-engine/internal/catalog"
	"github.com/reraeasy/quotation-engine/internal/packages"
	"github.com/reraeasy/quotation-engine/internal/preferences"
	"github.com/reraeasy/quotation-engine/internal/quotations"
	"github.com/reraeasy/quotation-engine/internal/terms"
	"github.com/reraeasy/quotation-engine/pkg/config"
	"github.com/reraeasy/quotation-engine/pkg/db"
	"github.com/reraeasy/quotation-engine/pkg/logger"
	"github.com/reraeasy/quotation-engine/pkg/metrics"
	"github.com/reraeasy/quotation-engine/pkg/migrate"
	"github.com/reraeasy/quotation-engine/pkg/quotationapi"
	"github.com/reraeasy/quotation-engine/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	quotationMetrics := metrics.NewQuotationMetrics(registry)

	backend, err := quotationapi.NewClient(
		cfg.Upstream.BaseURL,
		quotationapi.WithTimeout(cfg.Upstream.Timeout),
		quotationapi.WithObserver(quotationMetrics.IncUpstream),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create quotation api client", err)
		os.Exit(1)
	}

	fallback, err := cfg.Pricing.PackageFallbackTable()
	if err != nil {
		logg.Error(context.Background(), "invalid package fallback prices", err)
		os.Exit(1)
	}

	cat := catalog.Default()
	quotationService, err := quotations.NewService(quotations.Config{
		Backend:     backend,
		Catalog:     cat,
		Terms:       terms.Default(),
		Aggregator:  packages.NewAggregator(fallback),
		Preferences: preferences.NewService(preferences.NewRepository(dbClient.DB()), logg),
		Cache:       redisClient,
		CacheTTL:    cfg.Pricing.CacheTTL,
		Metrics:     quotationMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quotation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			cat,
			quotationService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, redisClient.Close())
	errs = multierr.Append(errs, dbClient.Close())
	if errs != nil {
		logg.Error(ctx, "shutdown completed with errors", errs)
		exitCode = 1
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
