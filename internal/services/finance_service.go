package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"fintrax/internal/cache"
	"fintrax/internal/core"
	"fintrax/internal/log"
	"fintrax/internal/sources"
)

// InvalidationPublisher tells other instances which cache entries went stale.
type InvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, pattern string, keys []string) error
}

// FinanceService reads finance data through the cache and writes through the
// backend, keeping the cache (local and remote) coherent after every write.
type FinanceService struct {
	backend   sources.Backend
	cache     *cache.Cache
	publisher InvalidationPublisher
	logger    *log.Logger

	// background revalidations started by StaleTransactions
	revalidating sync.WaitGroup
}

// NewFinanceService wires a backend to a cache. publisher may be nil, in
// which case writes only invalidate the local cache.
func NewFinanceService(backend sources.Backend, c *cache.Cache, publisher InvalidationPublisher, logger *log.Logger) *FinanceService {
	if logger == nil {
		logger = log.Discard()
	}
	return &FinanceService{
		backend:   backend,
		cache:     c,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentFinance),
	}
}

func getOpts(force bool) []cache.GetOption {
	if force {
		return []cache.GetOption{cache.ForceRefresh()}
	}
	return nil
}

// Transactions returns every transaction; filtering is left to the chart layer
// so that one cached list serves all periods.
func (s *FinanceService) Transactions(ctx context.Context, force bool) ([]core.Transaction, error) {
	return cache.Get(ctx, s.cache, cache.KeyFinanceTransactions, func(ctx context.Context) ([]core.Transaction, error) {
		return s.backend.ListTransactions(ctx, core.TransactionFilter{})
	}, getOpts(force)...)
}

func (s *FinanceService) Summary(ctx context.Context, force bool) (core.FinanceSummary, error) {
	return cache.Get(ctx, s.cache, cache.KeyFinanceSummary, s.backend.FinanceSummary, getOpts(force)...)
}

func (s *FinanceService) Savings(ctx context.Context, force bool) ([]core.Savings, error) {
	return cache.Get(ctx, s.cache, cache.KeyFinanceSavings, s.backend.ListSavings, getOpts(force)...)
}

func (s *FinanceService) Loans(ctx context.Context, force bool) ([]core.Loan, error) {
	return cache.Get(ctx, s.cache, cache.KeyFinanceLoans, s.backend.ListLoans, getOpts(force)...)
}

// StaleTransactions answers from the cache even when the entry has expired,
// reporting stale=true and refreshing in the background. With nothing cached
// it falls back to a normal read.
func (s *FinanceService) StaleTransactions(ctx context.Context) (txs []core.Transaction, stale bool, err error) {
	cached, ok := cache.GetStale[[]core.Transaction](s.cache, cache.KeyFinanceTransactions)
	if !ok {
		txs, err = s.Transactions(ctx, false)
		return txs, false, err
	}
	if s.cache.IsValid(cache.KeyFinanceTransactions) {
		return cached, false, nil
	}

	s.revalidating.Add(1)
	go func() {
		defer s.revalidating.Done()
		// Expired, so a plain Get refetches and joins any refresh already running.
		if _, err := s.Transactions(context.WithoutCancel(ctx), false); err != nil {
			s.logger.WarnContext(ctx, "Background revalidation failed",
				log.FieldCacheKey, cache.KeyFinanceTransactions,
				log.FieldError, err)
		}
	}()
	return cached, true, nil
}

// Snapshot reads the summary and the transaction list concurrently.
func (s *FinanceService) Snapshot(ctx context.Context, force bool) (core.Snapshot, error) {
	var (
		summary core.FinanceSummary
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.Summary(gctx, force)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.Transactions(gctx, force)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return core.NewSnapshot(summary, txs), nil
}

func (s *FinanceService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.backend.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(created.ID, created.Type.String(), created.Amount.String(), created.Category).
			ToSlice()...)
	s.afterWrite(ctx)
	return created, nil
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.backend.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)
	s.afterWrite(ctx)
	return nil
}

// afterWrite drops the entries a transaction write affects and tells the other
// instances to drop the same keys. A failed broadcast is logged; the write
// itself already succeeded.
func (s *FinanceService) afterWrite(ctx context.Context) {
	keys := []string{cache.KeyFinanceTransactions, cache.KeyFinanceSummary}
	for _, k := range keys {
		s.cache.Invalidate(k)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishInvalidation(ctx, "", keys); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish cache invalidation",
			"keys", keys,
			log.FieldError, err)
	}
}

// ApplyInvalidation drops the named keys and every key matching pattern.
// Either may be empty. It returns how many entries were removed.
func (s *FinanceService) ApplyInvalidation(pattern string, keys []string) (int, error) {
	removed := 0
	for _, k := range keys {
		if s.cache.Invalidate(k) {
			removed++
		}
	}
	if pattern == "" {
		return removed, nil
	}
	n, err := s.cache.InvalidatePattern(pattern)
	return removed + n, err
}

// Invalidate applies an invalidation locally and broadcasts it. An invalid
// pattern is rejected before anything is removed or published.
func (s *FinanceService) Invalidate(ctx context.Context, pattern string, keys []string) (int, error) {
	if pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return 0, fmt.Errorf("%w %q: %w", cache.ErrInvalidPattern, pattern, err)
		}
	}
	removed, err := s.ApplyInvalidation(pattern, keys)
	if err != nil {
		return removed, err
	}
	s.logger.InfoContext(ctx, "Cache invalidated",
		log.FieldOperation, log.OpInvalidate,
		log.FieldCachePattern, pattern,
		log.FieldCacheRemoved, removed)
	if s.publisher != nil {
		if err := s.publisher.PublishInvalidation(ctx, pattern, keys); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish cache invalidation",
				log.FieldCachePattern, pattern,
				log.FieldError, err)
		}
	}
	return removed, nil
}

// Refresh force-fetches every finance key concurrently. Every failure is
// reported, not just the first.
func (s *FinanceService) Refresh(ctx context.Context) error {
	jobs := []struct {
		key string
		run func() error
	}{
		{cache.KeyFinanceSummary, func() error { return errOnly(s.Summary(ctx, true)) }},
		{cache.KeyFinanceTransactions, func() error { return errOnly(s.Transactions(ctx, true)) }},
		{cache.KeyFinanceSavings, func() error { return errOnly(s.Savings(ctx, true)) }},
		{cache.KeyFinanceLoans, func() error { return errOnly(s.Loans(ctx, true)) }},
	}

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := job.run(); err != nil {
				errs[i] = fmt.Errorf("%s: %w", job.key, err)
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("refresh finance cache: %w", err)
	}
	s.logger.DebugContext(ctx, "Finance cache refreshed", log.FieldOperation, log.OpRefresh)
	return nil
}

func errOnly[T any](_ T, err error) error { return err }

// Wait blocks until background revalidations have finished.
func (s *FinanceService) Wait() {
	s.revalidating.Wait()
}
