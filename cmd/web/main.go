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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/config"
	apphttp "github.com/Simon-Ruto/Together-Crowdfunding/internal/http"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/ratelimit"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/metrics"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/payments"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/storage"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB_DSN needs parseTime=true; timestamps are stored with millisecond precision.
	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		defer sqlDB.Close()
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("media storage ready", "driver", store.Driver)

	var provider payments.Provider
	switch cfg.Payments.Provider {
	case "mock":
		provider = payments.NewMockProvider(cfg.Payments.MockWebhookSecret)
	default:
		provider = payments.NewStripeProvider(cfg.Payments.StripeSecretKey, cfg.Payments.WebhookSecret)
	}
	logger.Info("payment provider ready", "provider", provider.Name(), "currency", cfg.Payments.Currency)

	limiter, closeLimiter, err := newLimiter(ctx, cfg.RateLimit, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	m := metrics.New()

	userSvc := users.NewService(db)
	userSvc.SetLogger(logger)
	projectSvc := projects.NewService(db, store.Storage, cfg.Payments.Currency)
	projectSvc.SetLogger(logger)

	settler := payments.NewSettler(db)
	settler.SetLogger(logger)
	settler.SetMetrics(m)

	checkout := payments.NewCheckoutService(db, provider, payments.CheckoutConfig{
		Currency:  cfg.Payments.Currency,
		ClientURL: cfg.ClientURL,
		Timeout:   cfg.Payments.Timeout,
	})
	checkout.SetLogger(logger)
	checkout.SetMetrics(m)

	confirm := payments.NewConfirmService(db, provider, settler, cfg.Payments.Timeout)
	confirm.SetLogger(logger)

	webhooks := payments.NewWebhookService(db, provider, settler)
	webhooks.SetLogger(logger)
	webhooks.SetMetrics(m)

	deps := apphttp.Deps{
		Logger:    logger,
		Metrics:   m,
		Limiter:   limiter,
		Users:     userSvc,
		Tokens:    users.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL),
		Projects:  projectSvc,
		Checkout:  checkout,
		Confirm:   confirm,
		Webhooks:  webhooks,
		ClientURL: cfg.ClientURL,
	}
	if store.Driver == "local" {
		deps.UploadDir = cfg.Storage.LocalDir
		deps.UploadURLPrefix = cfg.Storage.LocalURLPrefix
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apphttp.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("together api starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLimiter uses Redis when REDIS_URL is set so limits hold across instances.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, logger *slog.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		mem := ratelimit.NewMemory(cfg.Requests, cfg.Window)
		logger.Info("rate limiter ready", "store", "memory", "requests", cfg.Requests, "window", cfg.Window)
		return mem, mem.Close, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// requests still pass while redis is down, see middleware.RateLimit
		logger.Warn("redis not reachable at startup", "err", err)
	}
	logger.Info("rate limiter ready", "store", "redis", "requests", cfg.Requests, "window", cfg.Window)
	return ratelimit.NewRedis(client, cfg.Requests, cfg.Window), func() { _ = client.Close() }, nil
}
