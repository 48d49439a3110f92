package worker

import (
	"context"
	"fmt"

	"fintrax/internal/log"
)

// Refresher force-refreshes a set of cache entries.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// CacheWarmer keeps the finance cache populated so dashboard reads rarely
// wait on the backend.
type CacheWarmer struct {
	finance Refresher
	logger  *log.Logger
}

func NewCacheWarmer(finance Refresher, logger *log.Logger) *CacheWarmer {
	if logger == nil {
		logger = log.Discard()
	}
	return &CacheWarmer{finance: finance, logger: logger.WithComponent(log.ComponentWorker)}
}

func (w *CacheWarmer) Run(ctx context.Context) error {
	if err := w.finance.Refresh(ctx); err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}
	w.logger.DebugContext(ctx, "Cache warmed", log.FieldOperation, log.OpRefresh)
	return nil
}
