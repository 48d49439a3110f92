// Package cli provides the initialization steps shared by cmd/fintrax and
// cmd/fintrax-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrax/internal/amqp"
	"fintrax/internal/cache"
	"fintrax/internal/config"
	"fintrax/internal/log"
	"fintrax/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given level and installs it
// as the slog default.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from the environment, exiting the process
// when it cannot be parsed. validators run in order after the load.
func LoadConfig(validators ...func(*config.Config) error) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exit("Configuration could not be loaded", err)
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			exit("Configuration validation failed", err)
		}
	}
	return cfg
}

// Validate and ValidateImporter adapt the config checks for LoadConfig.
func Validate(c *config.Config) error         { return c.Validate() }
func ValidateImporter(c *config.Config) error { return c.ValidateImporter() }

// InitSQLite opens (and migrates) the SQLite store at path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, logger.WithComponent(log.ComponentStorage).Logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// NewCache builds the response cache from cfg and starts its periodic
// cleanup. Stop the returned manager on shutdown.
func NewCache(cfg *config.Config, logger *log.Logger) (*cache.Cache, *cache.Manager) {
	c := cache.New(
		cache.WithDefaultTTL(cfg.CacheTTL),
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithStaleRetention(cfg.CacheStaleRetention),
		cache.WithLogger(logger),
	)
	manager := cache.NewManager(logger)
	manager.Register(c)
	manager.StartCleanup(cfg.CacheCleanupInterval)
	return c, manager
}

// ConnectAMQP connects to the invalidation exchange when AMQP_URL is set.
// It returns nil when AMQP is not configured or unreachable; instances then
// run without cross-instance invalidation.
func ConnectAMQP(cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, cache invalidation stays local")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "", logger)
	if err != nil {
		logger.Warn("AMQP unavailable, cache invalidation stays local", log.FieldError, err)
		return nil
	}
	logger.Info("Connected to AMQP", "exchange", cfg.AMQPExchange, "source", client.Source())
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func exit(msg string, err error) {
	log.New(log.DefaultConfig()).Error(msg, log.FieldError, err)
	os.Exit(1)
}
