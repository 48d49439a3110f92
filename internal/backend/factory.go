package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrax/internal/sources/memory"
	"fintrax/internal/sources/rest"
	"fintrax/internal/storage"
)

var _ Factory = (*DefaultFactory)(nil)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case REST:
		return f.createREST(ctx, cfg), nil
	case SQLite:
		return f.createSQLite(ctx, cfg)
	default:
		return f.createMemory(ctx, cfg)
	}
}

func (f *DefaultFactory) createREST(ctx context.Context, cfg Config) *Result {
	client := rest.New(cfg.BaseURL, rest.WithToken(cfg.Token), rest.WithTimeout(cfg.Timeout))
	f.logger.InfoContext(ctx, "Initialized REST backend",
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"authenticated", cfg.Token != "")
	return &Result{Backend: client, Type: REST}
}

func (f *DefaultFactory) createSQLite(ctx context.Context, cfg Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	version, err := storage.SchemaVersion(cfg.SQLiteDBPath)
	if err != nil {
		f.logger.WarnContext(ctx, "Could not read schema version", "error", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"schema_version", version)
	return &Result{Backend: repo, Type: SQLite, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemory(ctx context.Context, cfg Config) (*Result, error) {
	store, err := memory.NewFromFile(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", cfg.SeedFile)
	return &Result{Backend: store, Type: Memory}, nil
}
