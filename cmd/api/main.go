package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/glowbook/bookingflow/internal/api/router"
	"github.com/glowbook/bookingflow/internal/availability"
	"github.com/glowbook/bookingflow/internal/bookingflow"
	"github.com/glowbook/bookingflow/internal/cache"
	"github.com/glowbook/bookingflow/internal/catalog"
	"github.com/glowbook/bookingflow/internal/config"
	"github.com/glowbook/bookingflow/internal/http/handlers"
	"github.com/glowbook/bookingflow/internal/observability/metrics"
	"github.com/glowbook/bookingflow/internal/preload"
	"github.com/glowbook/bookingflow/internal/provider"
	"github.com/glowbook/bookingflow/pkg/logging"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bookingflow API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Cache backend: redis when configured, in-memory otherwise
	var store cache.Store
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		store = cache.NewRedisStore(redis.NewClient(opts), logger)
		logger.Info("using redis cache store", "addr", cfg.RedisAddr)
	} else {
		store = cache.NewMemoryStore()
		logger.Info("REDIS_ADDR not set, using in-memory cache store")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(reg)

	// Upstream provider client
	if cfg.ProviderBaseURL == "" {
		logger.Error("PROVIDER_BASE_URL is required")
		os.Exit(1)
	}
	client := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderLocationID, logger,
		provider.WithTimeout(cfg.ProviderTimeout),
	)

	// Availability resolution and cache-aware catalog
	resolverOpts := []availability.Option{
		availability.WithTTL(cfg.AvailabilityTTL),
		availability.WithBatchDays(cfg.BatchDays),
		availability.WithJitter(cfg.JitterMin, cfg.JitterMax),
		availability.WithMetrics(bookingMetrics),
	}
	if cfg.BookingHorizonDays > 0 {
		days := cfg.BookingHorizonDays
		resolverOpts = append(resolverOpts, availability.WithHorizon(func(today time.Time) time.Time {
			return today.AddDate(0, 0, days)
		}))
	}
	resolver := availability.NewResolver(client, store, logger, resolverOpts...)

	cat := catalog.NewCatalog(client, store, logger,
		catalog.WithTTLs(cfg.CatalogTTL, cfg.StaffTTL),
		catalog.WithMetrics(bookingMetrics),
	)
	preloader := preload.NewPreloader(cat, resolver, store, logger,
		preload.WithTTLs(cfg.CatalogTTL, cfg.StaffTTL),
		preload.WithMetrics(bookingMetrics),
	)

	// Booking sessions
	sessions := handlers.NewSessionStore()
	newFlow := func() *bookingflow.Flow {
		return bookingflow.NewFlow(cat, client, preloader, logger,
			bookingflow.WithPreloadBreadth(cfg.PreloadServices, cfg.PreloadDays),
		)
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		CatalogHandler:     handlers.NewCatalogHandler(cat, logger),
		Availability:       handlers.NewAvailabilityHandler(resolver, client, preloader, logger),
		Appointments:       handlers.NewAppointmentHandler(client, logger),
		Sessions:           handlers.NewSessionHandler(sessions, newFlow, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
