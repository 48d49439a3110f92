package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"fintrax/internal/core"
	"fintrax/internal/sources"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *slog.Logger
}

var _ sources.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps balance read-modify-write cycles serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		Type:     int64(f.Type),
		Category: f.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", row.ID, err)
		}
		// Dates are stored as written, so range checks happen on civil days here.
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	err := r.inTx(ctx, func(q *Queries) error {
		id, err := r.insert(ctx, q, t)
		if err != nil {
			return err
		}
		if id == 0 {
			return fmt.Errorf("external reference %q already imported", t.ExternalRef)
		}
		t.ID = id
		return adjustBalance(ctx, q, t, 1)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type.String(),
		"amount", t.Amount.String(),
		"category", t.Category)
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetTransaction(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return sources.ErrNotFound
		}
		if err != nil {
			return err
		}
		t, err := toTransaction(row)
		if err != nil {
			return err
		}
		if _, err := q.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return adjustBalance(ctx, q, t, -1)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

// ImportTransactions inserts transactions keyed by ExternalRef. Rows whose
// reference is already stored are skipped, so re-running an import is safe.
// It returns how many rows were new.
func (r *SQLiteRepository) ImportTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	inserted := 0
	err := r.inTx(ctx, func(q *Queries) error {
		for _, t := range txs {
			t = t.Normalize()
			if t.ExternalRef == "" {
				return fmt.Errorf("import requires an external reference (date %s)", t.Date)
			}
			if err := t.Validate(); err != nil {
				return fmt.Errorf("%s: %w", t.ExternalRef, err)
			}
			id, err := r.insert(ctx, q, t)
			if err != nil {
				return fmt.Errorf("%s: %w", t.ExternalRef, err)
			}
			if id == 0 {
				continue
			}
			if err := adjustBalance(ctx, q, t, 1); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import transactions: %w", err)
	}

	r.logger.InfoContext(ctx, "Transactions imported", "received", len(txs), "inserted", inserted)
	return inserted, nil
}

// UpdateFinance overwrites the stored balance and debt.
func (r *SQLiteRepository) UpdateFinance(ctx context.Context, balance, totalDebt decimal.Decimal) error {
	err := r.queries.UpdateFinance(ctx, UpdateFinanceParams{
		Balance:   balance.String(),
		TotalDebt: totalDebt.String(),
	})
	if err != nil {
		return fmt.Errorf("update finance: %w", err)
	}
	return nil
}

// FinanceSummary combines the account row with totals derived from the
// transaction, savings and loan tables.
func (r *SQLiteRepository) FinanceSummary(ctx context.Context) (core.FinanceSummary, error) {
	fin, err := r.queries.GetFinance(ctx)
	if err != nil {
		return core.FinanceSummary{}, fmt.Errorf("get finance: %w", err)
	}
	var s core.FinanceSummary
	if s.Balance, err = decimal.NewFromString(fin.Balance); err != nil {
		return core.FinanceSummary{}, fmt.Errorf("balance: %w", err)
	}
	if s.TotalDebt, err = decimal.NewFromString(fin.TotalDebt); err != nil {
		return core.FinanceSummary{}, fmt.Errorf("total debt: %w", err)
	}

	txs, err := r.ListTransactions(ctx, core.TransactionFilter{})
	if err != nil {
		return core.FinanceSummary{}, err
	}
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case core.Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
	}

	savings, err := r.ListSavings(ctx)
	if err != nil {
		return core.FinanceSummary{}, err
	}
	for _, sv := range savings {
		s.TotalSavings = s.TotalSavings.Add(sv.Amount)
	}
	loans, err := r.ListLoans(ctx)
	if err != nil {
		return core.FinanceSummary{}, err
	}
	for _, l := range loans {
		s.TotalLoans = s.TotalLoans.Add(l.TotalAmount)
	}

	s.NetWorth = s.ComputeNetWorth()
	return s, nil
}

func (r *SQLiteRepository) ListSavings(ctx context.Context) ([]core.Savings, error) {
	rows, err := r.queries.ListSavings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	out := make([]core.Savings, 0, len(rows))
	for _, row := range rows {
		sv := core.Savings{ID: row.ID, Name: row.Name, Rate: row.Rate}
		if sv.Amount, err = decimal.NewFromString(row.Amount); err != nil {
			return nil, fmt.Errorf("savings %d amount: %w", row.ID, err)
		}
		if sv.TargetAmount, err = decimal.NewFromString(row.TargetAmount); err != nil {
			return nil, fmt.Errorf("savings %d target: %w", row.ID, err)
		}
		out = append(out, sv)
	}
	return out, nil
}

func (r *SQLiteRepository) ListLoans(ctx context.Context) ([]core.Loan, error) {
	rows, err := r.queries.ListLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	out := make([]core.Loan, 0, len(rows))
	for _, row := range rows {
		l := core.Loan{ID: row.ID, Name: row.Name, Rate: row.Rate, Term: int(row.Term), Duration: int(row.Duration)}
		if l.TotalAmount, err = decimal.NewFromString(row.TotalAmount); err != nil {
			return nil, fmt.Errorf("loan %d total: %w", row.ID, err)
		}
		if l.PremiumAmount, err = decimal.NewFromString(row.PremiumAmount); err != nil {
			return nil, fmt.Errorf("loan %d premium: %w", row.ID, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) insert(ctx context.Context, q *Queries, t core.Transaction) (int64, error) {
	return q.CreateTransaction(ctx, CreateTransactionParams{
		UserID:          t.UserID,
		Source:          t.Source,
		Type:            int64(t.Type),
		TransactionType: int64(t.TransactionType),
		Amount:          t.Amount.String(),
		Category:        t.Category,
		Date:            t.Date.String(),
		Description:     t.Description,
		Status:          int64(t.Status),
		ExternalRef:     sql.NullString{String: t.ExternalRef, Valid: t.ExternalRef != ""},
	})
}

// adjustBalance applies (sign 1) or reverts (sign -1) t's effect on the balance.
func adjustBalance(ctx context.Context, q *Queries, t core.Transaction, sign int64) error {
	fin, err := q.GetFinance(ctx)
	if err != nil {
		return fmt.Errorf("get finance: %w", err)
	}
	balance, err := decimal.NewFromString(fin.Balance)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	delta := t.Amount.Mul(decimal.NewFromInt(sign))
	if t.IsExpense() {
		delta = delta.Neg()
	}
	return q.UpdateFinance(ctx, UpdateFinanceParams{
		Balance:   balance.Add(delta).String(),
		TotalDebt: fin.TotalDebt,
	})
}

func toTransaction(row TransactionRow) (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", row.Amount, core.ErrInvalidAmount)
	}
	date, err := core.ParseDateField("date", row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:              row.ID,
		UserID:          row.UserID,
		Source:          row.Source,
		Type:            core.TransactionType(row.Type),
		TransactionType: uint(row.TransactionType),
		Amount:          amount,
		Category:        row.Category,
		Date:            date,
		Description:     row.Description,
		Status:          uint(row.Status),
		ExternalRef:     row.ExternalRef.String,
	}, nil
}
