package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrax/internal/amqp"
	"fintrax/internal/backend"
	"fintrax/internal/cache"
	"fintrax/internal/cli"
	apphttp "fintrax/internal/http"
	"fintrax/internal/log"
	"fintrax/internal/services"
	"fintrax/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig(cli.Validate)
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, log.FieldBackend, backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	c, manager := cli.NewCache(cfg, logger)
	defer manager.Stop()

	broker := cli.ConnectAMQP(cfg, logger)
	var publisher services.InvalidationPublisher
	if broker != nil {
		publisher = broker
		defer broker.Close()
	}

	finance := services.NewFinanceService(result.Backend, c, publisher, logger)
	charts := services.NewChartService(finance,
		services.WithLocation(cfg.Location()),
		services.WithChartLogger(logger))

	if broker != nil {
		go consumeInvalidations(ctx, broker, finance, logger)
	}

	scheduler := worker.NewScheduler(ctx, logger)
	warmer := worker.NewCacheWarmer(finance, logger)
	if err := scheduler.Register("cache-warm", cfg.CacheWarmCron, warmer.Run); err != nil {
		logger.Error("Failed to schedule cache warmer", log.FieldError, err, "spec", cfg.CacheWarmCron)
		os.Exit(1)
	}
	scheduler.Start()
	// Warm the cache at startup; failures are logged by the scheduler.
	go func() { _ = scheduler.RunNow("cache-warm") }()

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, finance, charts, c, result.Ping)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrax server", "port", cfg.Port, log.FieldBackend, result.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	scheduler.Stop(shutdownCtx)
	finance.Wait()
	logger.Info("Server stopped gracefully")
}

// consumeInvalidations applies cache invalidations published by other
// instances until ctx ends.
func consumeInvalidations(ctx context.Context, broker *amqp.Client, finance *services.FinanceService, logger *log.Logger) {
	logger = logger.WithComponent(log.ComponentAMQP)
	err := broker.ConsumeInvalidations(ctx, func(ctx context.Context, msg *amqp.InvalidationMessage) error {
		removed, err := finance.ApplyInvalidation(msg.Pattern, msg.Keys)
		if errors.Is(err, cache.ErrInvalidPattern) {
			// Redelivery cannot fix a bad pattern.
			logger.WarnContext(ctx, "Dropping invalidation with invalid pattern",
				log.FieldCachePattern, msg.Pattern, "source", msg.Source)
			return nil
		}
		if err != nil {
			return err
		}
		logger.DebugContext(ctx, "Applied remote invalidation",
			log.FieldCachePattern, msg.Pattern,
			log.FieldCacheRemoved, removed,
			"source", msg.Source)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Invalidation consumer stopped", log.FieldError, err)
	}
}
