package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/celldb/celldb/pkg/api"
	"github.com/celldb/celldb/pkg/config"
	"github.com/celldb/celldb/pkg/httputil"
	"github.com/celldb/celldb/pkg/identity"
	"github.com/celldb/celldb/pkg/middleware"
	"github.com/celldb/celldb/pkg/observability"
	"github.com/celldb/celldb/pkg/records"
	"github.com/celldb/celldb/pkg/roles"
	"github.com/celldb/celldb/pkg/sheets"
	"github.com/celldb/celldb/pkg/sheetstore"
	"github.com/celldb/celldb/pkg/stats"
	"github.com/celldb/celldb/pkg/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "celldb: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	backend, err := sheetstore.NewStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage backend: %w", err)
	}
	store := sheetstore.NewInstrumentedStore(backend, cfg.Storage.Type, metrics)
	logger.WithField("backend", cfg.Storage.Type).Info("storage backend ready")

	sheetSvc := sheets.NewService(store)
	roleSvc := roles.NewService(store)
	userSvc := users.NewService(store)
	recordSvc := records.NewService(store, sheetSvc)

	// Bootstrap the reserved tabs so a fresh spreadsheet is usable.
	if err := sheetSvc.EnsureConfigSheet(ctx); err != nil {
		return fmt.Errorf("bootstrap configuration sheet: %w", err)
	}
	if err := roleSvc.EnsureSheet(ctx); err != nil {
		return fmt.Errorf("bootstrap roles sheet: %w", err)
	}
	if err := userSvc.EnsureSheet(ctx); err != nil {
		return fmt.Errorf("bootstrap users sheet: %w", err)
	}

	authenticator := identity.NewMemoryAuthenticator(cfg.Auth.SessionTTL)
	cachedAuth := identity.NewCachingAuthenticator(authenticator, cfg.Auth.CacheSize, cfg.Auth.CacheTTL).
		WithCounters(metrics.AuthCacheHitsTotal, metrics.AuthCacheMissesTotal)
	resolver := identity.NewResolver(cachedAuth, userSvc)

	var redisClient *redis.Client
	if cfg.RateLimit.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisURL,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, rate limiting will fail open")
		}
	}

	server := api.NewServer(api.Deps{
		Logger:   logger,
		Roles:    roleSvc,
		Sheets:   sheetSvc,
		Users:    userSvc,
		Records:  recordSvc,
		Sessions: authenticator,
	})

	// Identity resolution sits outside request logging so log entries carry
	// the caller's user id.
	middlewares := []func(http.Handler) http.Handler{
		middleware.Recovery(logger),
		observability.HTTPMetricsMiddleware(metrics),
		middleware.NewIdentityMiddleware(resolver, logger).Handler,
		middleware.RequestLogging(logger),
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	if cfg.RateLimit.Enabled {
		rlConfig := &middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		}
		if redisClient != nil {
			rl := middleware.NewDistributedRateLimitMiddleware(redisClient, rlConfig, logger, metrics)
			middlewares = append(middlewares, rl.Handler)
		} else {
			rl := middleware.NewRateLimitMiddleware(rlConfig, metrics)
			rl.StartCleanup(limiterCtx)
			middlewares = append(middlewares, rl.Handler)
		}
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      httputil.Chain(middlewares...)(server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Probes and metrics live on their own port.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(store, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("health server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})

	if cfg.Stats.Enabled {
		collector := stats.NewCollector(store, metrics, logger)
		if err := collector.Start(ctx, cfg.Stats.Schedule); err != nil {
			return fmt.Errorf("start stats collector: %w", err)
		}
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			collector.Stop()
			return nil
		})
	}
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("celldb listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server failed")
		}
	}()

	return shutdown.WaitForShutdown()
}
