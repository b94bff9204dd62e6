package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// Change events are optional: without a broker the API works, the
	// spreadsheet mirror just catches up on its periodic resync.
	var (
		publisher  services.EventPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	categories := services.NewCategoryService(repo)

	caches := cache.NewManager()
	caches.Register(categories.Cache())
	caches.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Auth:           services.NewAuthService(repo, issuer),
		LineItems:      services.NewLineItemService(repo, publisher),
		Categories:     categories,
		Savings:        services.NewSavingService(repo),
		Verifier:       issuer,
		Logger:         logger,
		LoginRateLimit: cfg.LoginRateLimit,
		Ready:          repo.Ping,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Warn("Database close error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server", "port", cfg.Port, "amqp_enabled", publisher != nil, log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
