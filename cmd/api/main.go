package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-orchestrator/config"
	gw "payment-orchestrator/internal/adapter/gateway"
	httpHandler "payment-orchestrator/internal/adapter/http/handler"
	pgStorage "payment-orchestrator/internal/adapter/storage/postgres"
	redisStorage "payment-orchestrator/internal/adapter/storage/redis"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/internal/notify"
	"payment-orchestrator/internal/service"
	"payment-orchestrator/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Payment Orchestration Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories and shared stores
	txRepo := pgStorage.NewTransactionRepo(pool)
	idempotencyStore := redisStorage.NewIdempotencyStore(rdb)
	limitStore := redisStorage.NewLimitStore(rdb)
	breakerStore := redisStorage.NewBreakerStore(rdb)

	// Gateway adapters
	registry := gw.NewRegistry(cfg.Gateways.Default,
		gw.NewPaystack(cfg.Gateways.Paystack, cfg.Gateways.Timeout, log),
		gw.NewSandbox(cfg.Gateways.Sandbox),
	)

	// Notifier
	var notifier ports.Notifier
	webhookNotifier := notify.NewWebhookNotifier(cfg.Notifier, log)
	if cfg.Notifier.URL != "" {
		notifier = webhookNotifier
	} else {
		notifier = notify.NewNoopNotifier()
	}

	// Orchestration pipeline
	limits := service.NewLimitValidator(limitStore, cfg.Limits, log)
	breaker := service.NewCircuitBreaker(breakerStore, cfg.Breaker, log)
	retry := service.NewRetryPolicy(cfg.Retry, log)
	paymentSvc := service.NewPaymentService(
		txRepo,
		idempotencyStore,
		limits,
		breaker,
		retry,
		registry,
		notifier,
		cfg.Idempotency.TTL,
		log,
	)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Orchestrator:   paymentSvc,
		Gateways:       registry,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Flush in-flight webhook deliveries before exiting
	webhookNotifier.Close()

	log.Info().Msg("Server exited")
}
