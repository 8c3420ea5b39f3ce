package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/set-night/boostly"
	"github.com/set-night/boostly/internal/catalog"
	"github.com/set-night/boostly/internal/config"
	"github.com/set-night/boostly/internal/handler"
	"github.com/set-night/boostly/internal/middleware"
	"github.com/set-night/boostly/internal/pricing"
	"github.com/set-night/boostly/internal/repository"
	"github.com/set-night/boostly/internal/repository/memory"
	"github.com/set-night/boostly/internal/service"
	"github.com/set-night/boostly/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded", "services", len(cat.Services()))

	store, ping, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Ops notifications
	var notifier service.Notifier = service.NopNotifier{}
	if cfg.TelegramLogEnabled() {
		b, err := bot.New(cfg.BotToken)
		if err != nil {
			slog.Error("telegram logging disabled", "error", err)
		} else {
			tgLogger := telegram.NewTelegramLogger(b, cfg)
			go tgLogger.Run(ctx)
			notifier = tgLogger
		}
	}

	// Initialize services
	ledger := service.NewLedgerService(store)
	orders := service.NewOrderService(store, pricing.NewEngine(cat), cat, ledger, notifier)
	tasks := service.NewTaskService(store, cat, ledger)

	h := handler.New(handler.Deps{
		Cfg:        cfg,
		Orders:     orders,
		Tasks:      tasks,
		Ledger:     ledger,
		Payments:   service.NewPaymentVerifier(cfg.PaymentCallbackSecret),
		Catalog:    cat,
		RateLimits: store,
		Ping:       ping,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recover(), middleware.Logging())
	h.Register(router)

	// Start stale rate limit cleanup goroutine
	go func() {
		ticker := time.NewTicker(config.RateLimitCleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := store.DeleteStaleRateLimits(ctx, time.Now().Add(-config.RateLimitRetention)); err != nil {
					slog.Error("cleanup rate limits", "error", err)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           http.TimeoutHandler(router, config.RequestTimeout, `{"error":"request timeout"}`),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	go func() {
		slog.Info("starting server", "addr", srv.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	slog.Info("server stopped gracefully")
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.LoadFile(cfg.CatalogPath, cfg.DefaultCooldown)
	}
	return catalog.Load(boostly.DefaultCatalog, cfg.DefaultCooldown)
}

// openStore returns the configured store with its health probe and closer.
func openStore(ctx context.Context, cfg *config.Config) (service.Store, func(context.Context) error, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		slog.Warn("using in-memory storage: development only, transactions are serialized and data is lost on restart")
		return memory.New(), nil, func() {}, nil
	}

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	// Run migrations
	if err := repository.RunMigrations(cfg.DatabaseURL, boostly.MigrationsFS, "migrations"); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	return repository.NewStore(pool), pool.Ping, pool.Close, nil
}
