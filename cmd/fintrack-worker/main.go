package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil).WithComponent(log.ComponentWorker)
	logger.Info("Starting fintrack-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", log.FieldError, err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(ctx, mirrorCfg)
	if err != nil {
		logger.Error("Failed to initialize spreadsheet mirror", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mw := worker.NewMirrorWorker(repo, mirror, logger)

	// Catch up on anything missed while the worker was down.
	if _, err := mw.Resync(ctx); err != nil {
		logger.Error("Startup resync failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLineItemEvents(gctx, mw.HandleEvent)
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ResyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if _, err := mw.Resync(gctx); err != nil && gctx.Err() == nil {
					logger.Error("Periodic resync failed", log.FieldError, err)
				}
			}
		}
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
