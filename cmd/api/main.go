// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// Command api is the entry point for the Verano storefront API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/phamanh/verano/internal/admin"
	"github.com/phamanh/verano/internal/api"
	"github.com/phamanh/verano/internal/catalog/product"
	"github.com/phamanh/verano/internal/orders/order"
	"github.com/phamanh/verano/internal/platform/config"
	"github.com/phamanh/verano/internal/platform/constants"
	"github.com/phamanh/verano/internal/platform/migration"
	pgstore "github.com/phamanh/verano/internal/platform/postgres"
	redisstore "github.com/phamanh/verano/internal/platform/redis"
	"github.com/phamanh/verano/internal/platform/sec"
	"github.com/phamanh/verano/internal/users/account"
	"github.com/phamanh/verano/internal/users/auth"
)

// tokenPurgeInterval is how often expired refresh tokens are swept from
// storage. Rotation already deletes consumed tokens; the sweep only mops
// up sessions that were simply abandoned.
const tokenPurgeInterval = 1 * time.Hour

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "verano"))
	slog.SetDefault(log)

	log.Info("[Verano] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "verano"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService([]byte(cfg.JWTSecret), constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(log,
		api.Probe{Name: "postgres", Check: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		}},
		api.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}},
	)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	tokenRepository := auth.NewRefreshTokenRepository(pool)
	snapshotCache := auth.NewSnapshotCache(rdb)

	authService := auth.NewService(userRepository, tokenRepository, snapshotCache, jwtSvc, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authHandler := auth.NewHandler(authService, cfg.IsProduction())

	accountService := account.NewService(userRepository, tokenRepository, snapshotCache, log)
	accountHandler := account.NewHandler(accountService)

	productRepository := product.NewRepository(pool)
	productService := product.NewService(productRepository)
	productHandler := product.NewHandler(productService)

	orderRepository := order.NewRepository(pool)
	orderService := order.NewService(orderRepository, productRepository)
	orderHandler := order.NewHandler(orderService)

	adminService := admin.NewService(userRepository, orderRepository)
	adminHandler := admin.NewHandler(adminService, orderService)

	// ── 9. Background Maintenance ─────────────────────────────────────────
	maintenanceCtx, maintenanceCancel := context.WithCancel(context.Background())
	defer maintenanceCancel()
	go purgeExpiredTokens(maintenanceCtx, authService, log)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Account:   accountHandler,
		Product:   productHandler,
		Order:     orderHandler,
		Admin:     adminHandler,
	}

	server := api.NewServer(maintenanceCtx, cfg, log, jwtSvc, authService, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// purgeExpiredTokens periodically deletes refresh tokens whose expiry has
// passed, so abandoned sessions do not accumulate forever.
func purgeExpiredTokens(ctx context.Context, authService *auth.Service, log *slog.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := authService.PurgeExpiredTokens(ctx)
			if err != nil {
				log.Error("refresh_token_purge_failed", slog.Any("error", err))
				continue
			}
			if purged > 0 {
				log.Info("refresh_tokens_purged", slog.Int64("count", purged))
			}
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
