package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/project-portal-go/internal/config"
	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/handler"
	"github.com/boddenberg/project-portal-go/internal/infra/cache"
	"github.com/boddenberg/project-portal-go/internal/infra/memstore"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/infra/resilience"
	"github.com/boddenberg/project-portal-go/internal/infra/supabase"
	"github.com/boddenberg/project-portal-go/internal/job"
	"github.com/boddenberg/project-portal-go/internal/port"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend", cfg.Backend),
		zap.Bool("use_supabase", cfg.UseSupabase()),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("overdue_schedule", cfg.OverdueSchedule),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, observability.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Backend ---
	var store port.Store
	var idp port.IdentityProvider
	var health handler.Pinger
	var devTokens handler.DevSignIn

	if cfg.UseSupabase() {
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}),
			resilienceCfg,
			logger,
		)
		store, idp, health = client, client, client
	} else {
		if cfg.Backend == config.BackendSupabase {
			logger.Warn("SUPABASE_URL not set, falling back to the memory backend")
		}
		mem := memstore.New(cfg.JWTSecret, cfg.JWTAccessTTL, logger)
		if err := seedDevData(context.Background(), mem, logger); err != nil {
			logger.Fatal("failed to seed memory backend", zap.Error(err))
		}
		store, idp, health, devTokens = mem, mem, mem, mem
	}

	// --- Cache ---
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err = cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rdb.Close()
		logger.Info("using Redis cache", zap.String("addr", cfg.RedisAddr))
	}
	identityCache := newCache[guard.CacheEntry](rdb, "portal:identity:", cfg.CacheTTL, logger)
	configCache := newCache[service.ConfigEntry](rdb, "portal:", cfg.CacheTTL, logger)
	idempotencyCache := newCache[domain.CreateUserResponse](rdb, "portal:", cfg.IdempotencyTTL, logger)

	// --- Dashboard defaults ---
	defaults, err := config.LoadDashboardDefaults(cfg.DashboardDefaultsFile)
	if err != nil {
		logger.Fatal("failed to load dashboard defaults", zap.String("file", cfg.DashboardDefaultsFile), zap.Error(err))
	}

	// --- Services ---
	dashboardSvc := service.NewDashboardService(store, configCache, defaults, metrics, logger)
	projectsSvc := service.NewProjectsService(store, dashboardSvc, logger)
	provisioningSvc := service.NewProvisioningService(idp, store, idempotencyCache, resilience.Config{
		MaxRetries:     3,
		InitialBackoff: cfg.InitialBackoff,
	}, metrics, logger)

	// --- Jobs ---
	overdue := job.NewOverdueJob(store, cfg.OverdueSchedule, metrics, logger)
	if err := overdue.Start(); err != nil {
		logger.Fatal("failed to start overdue sweeper", zap.Error(err))
	}

	// --- Router ---
	router := handler.NewRouter(&handler.Deps{
		Store:        store,
		Health:       health,
		Resolver:     guard.NewResolver(idp, store, identityCache, metrics, logger),
		Dashboard:    dashboardSvc,
		Projects:     projectsSvc,
		Provisioning: provisioningSvc,
		Notifier:     service.NewLogNotifier(metrics, logger),
		DevTokens:    devTokens,

		AuthEntryPoint:     cfg.AuthEntryPoint,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            metrics,
		Logger:             logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	overdue.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// newCache returns a Redis-backed cache when rdb is set, else an in-process one.
func newCache[T any](rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) port.Cache[T] {
	if rdb != nil {
		return cache.NewRedis[T](rdb, prefix, ttl, logger)
	}
	return cache.New[T](ttl)
}
