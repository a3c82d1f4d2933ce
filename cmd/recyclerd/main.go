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

	"github.com/SherClockHolmes/webpush-go"

	"recycle-fleet-backend/config"
	"recycle-fleet-backend/internal/api"
	"recycle-fleet-backend/internal/auth"
	"recycle-fleet-backend/internal/db"
	"recycle-fleet-backend/internal/logs"
	"recycle-fleet-backend/internal/notification"
	"recycle-fleet-backend/internal/offline"
	"recycle-fleet-backend/internal/ratelimit"
	"recycle-fleet-backend/internal/store"
	"recycle-fleet-backend/internal/ticket"
	"recycle-fleet-backend/internal/token"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logs.Logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logs.Init(logs.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logs.Logger.Printf("configuration loaded from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logs.Logger.Fatalf("failed to initialize database: %v", err)
	}

	appStore := store.NewGormStore(gormDB)

	// Shared TTL stores: PIN attempt counters and short-lived tokens.
	limiter := ratelimit.New(cfg.Auth.AttemptWindow)
	tokens := token.NewStore()

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Web push for ticket-assignment notifications (optional).
	var pool *notification.WorkerPool
	var notifier ticket.Notifier
	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		pool.Start(ctx)
		notifier = pool
		logs.Logger.Printf("notification worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logs.Logger.Warn("VAPID keys not configured; ticket-assignment notifications disabled")
	}

	// Core services.
	gate := auth.NewDeviceGate(appStore)
	pins := auth.NewPinAuthenticator(appStore, limiter, tokens, cfg.Auth)
	reconciler := offline.NewReconciler(appStore)
	tickets := ticket.NewService(appStore, notifier)

	handler := api.NewHandler(appStore, gate, pins, reconciler, tickets, webpushOptions)
	router := api.NewRouter(handler, gate, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logs.Logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logs.Logger.Println("shutdown signal received, stopping services")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logs.Logger.Fatalf("HTTP server shutdown: %v", err)
	}

	logs.Logger.Println("server gracefully stopped")
}
