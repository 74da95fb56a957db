package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"complaints/internal/amqp"
	"complaints/internal/analytics"
	"complaints/internal/backend"
	"complaints/internal/cache"
	"complaints/internal/cli"
	apphttp "complaints/internal/http"
	"complaints/internal/log"
	"complaints/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	m := metrics.New()
	snapshots := cache.NewSnapshotCache(result.Reader, cache.SnapshotOptions{
		Key:      cfg.DataBackend,
		TTL:      cfg.SnapshotTTL,
		Timeout:  cfg.LoadTimeout,
		Observer: m,
	})
	cacheManager := cache.NewManager()
	cacheManager.Register(snapshots.Entries())
	cacheManager.StartCleanup(time.Minute)

	var refresher apphttp.Refresher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the dashboard still works; refresh falls back to cache invalidation
			logger.Warn("AMQP unavailable, refresh requests will not reach the worker", log.FieldError, err)
		} else {
			refresher = amqpClient
			logger.Info("AMQP refresh publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Backend:   cfg.DataBackend,
		Reader:    snapshots,
		Engine:    analytics.NewEngine(cfg.EngineOptions()),
		Refresher: refresher,
		Metrics:   m,
		Logger:    logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.LoadTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	_, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting complaints dashboard",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"snapshot_ttl", cfg.SnapshotTTL,
		"refresh", refresher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
