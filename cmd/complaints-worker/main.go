package main

import (
	"context"
	"errors"
	"os"
	"time"

	"complaints/internal/amqp"
	"complaints/internal/backend"
	"complaints/internal/cli"
	"complaints/internal/config"
	"complaints/internal/log"
	gsheet "complaints/internal/sheets/google"
	"complaints/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting complaints-worker")

	cfg := config.Load()
	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	sheetsClient, err := gsheet.New(context.Background(), backend.SheetsSettings(cfg))
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", log.FieldSource, sheetsClient.Source())

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	refresh := worker.NewRefreshWorker(sheetsClient, repo)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)

	// On startup, import once so the dashboard has data before any request.
	if _, err := refresh.Import(ctx); err != nil {
		logger.Error("Startup import failed", log.FieldError, err, log.FieldOperation, log.OpStartup)
	}

	if amqpClient == nil && cfg.RefreshInterval <= 0 {
		logger.Info("No AMQP_URL or REFRESH_INTERVAL configured, nothing left to do")
		return
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeRefresh(ctx, refresh.HandleRefreshMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("Consuming refresh requests", "queue", cfg.AMQPQueue)
	}
	if cfg.RefreshInterval > 0 {
		go refresh.RunPeriodic(ctx, cfg.RefreshInterval)
		logger.Info("Periodic import enabled", "interval", cfg.RefreshInterval)
	}

	<-done
	if at, id := refresh.LastImport(); !at.IsZero() {
		logger.Info("Worker stopped", "last_import", at.Format(time.RFC3339), log.FieldSnapshotID, id)
		return
	}
	logger.Info("Worker stopped")
}
