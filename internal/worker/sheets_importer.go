package worker

import (
	"context"
	"fmt"

	"fintrax/internal/cache"
	"fintrax/internal/core"
	"fintrax/internal/log"
	"fintrax/internal/sources"
)

// TransactionImporter stores transactions that are not stored yet and reports
// how many were new.
type TransactionImporter interface {
	ImportTransactions(ctx context.Context, txs []core.Transaction) (int, error)
}

type InvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, pattern string, keys []string) error
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Fetched  int
	Inserted int
}

// SheetsImporter copies spreadsheet transactions into the local store. Rows
// are matched on their external reference, so re-running an import only adds
// rows appended since the last run.
type SheetsImporter struct {
	source    sources.TransactionLister
	store     TransactionImporter
	publisher InvalidationPublisher
	logger    *log.Logger
}

// NewSheetsImporter wires a sheet reader to a store. publisher may be nil.
func NewSheetsImporter(source sources.TransactionLister, store TransactionImporter, publisher InvalidationPublisher, logger *log.Logger) *SheetsImporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &SheetsImporter{
		source:    source,
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run satisfies Job.
func (w *SheetsImporter) Run(ctx context.Context) error {
	_, err := w.Import(ctx)
	return err
}

// Import runs one import. When new rows landed, every instance is told to drop
// its finance entries; a failed broadcast is logged, not returned.
func (w *SheetsImporter) Import(ctx context.Context) (ImportResult, error) {
	txs, err := w.source.ListTransactions(ctx, core.TransactionFilter{})
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet: %w", err)
	}
	res := ImportResult{Fetched: len(txs)}
	if len(txs) == 0 {
		w.logger.InfoContext(ctx, "No rows found in sheet")
		return res, nil
	}

	res.Inserted, err = w.store.ImportTransactions(ctx, txs)
	if err != nil {
		return res, fmt.Errorf("import transactions: %w", err)
	}

	w.logger.InfoContext(ctx, "Sheet import completed",
		log.FieldOperation, log.OpImport,
		"fetched", res.Fetched,
		"inserted", res.Inserted)

	if res.Inserted == 0 || w.publisher == nil {
		return res, nil
	}
	if err := w.publisher.PublishInvalidation(ctx, cache.PatternFinance, nil); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish cache invalidation",
			log.FieldCachePattern, cache.PatternFinance,
			log.FieldError, err)
	}
	return res, nil
}
