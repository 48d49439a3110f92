package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the tables; amounts are decimal strings.
type (
	TransactionRow struct {
		ID              int64
		UserID          int64
		Source          string
		Type            int64
		TransactionType int64
		Amount          string
		Category        string
		Date            string
		Description     string
		Status          int64
		ExternalRef     sql.NullString
	}

	FinanceRow struct {
		Balance   string
		TotalDebt string
	}

	SavingsRow struct {
		ID           int64
		Name         string
		Amount       string
		TargetAmount string
		Rate         float64
	}

	LoanRow struct {
		ID            int64
		Name          string
		TotalAmount   string
		Rate          float64
		Term          int64
		Duration      int64
		PremiumAmount string
	}
)

const transactionColumns = `id, user_id, source, type, transaction_type, amount, category, date, description, status, external_ref`

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE (?1 = 0 OR type = ?1)
  AND (?2 = '' OR category = ?2 COLLATE NOCASE)
ORDER BY date, id`

type ListTransactionsParams struct {
	Type     int64
	Category string
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.Type, arg.Category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := scanTransaction(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i TransactionRow
	err := scanTransaction(row, &i)
	return i, err
}

const createTransaction = `INSERT INTO transactions (
    user_id, source, type, transaction_type, amount, category, date, description, status, external_ref
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (external_ref) DO NOTHING`

type CreateTransactionParams struct {
	UserID          int64
	Source          string
	Type            int64
	TransactionType int64
	Amount          string
	Category        string
	Date            string
	Description     string
	Status          int64
	ExternalRef     sql.NullString
}

// CreateTransaction returns the new row ID, or 0 when external_ref already exists.
func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction,
		arg.UserID,
		arg.Source,
		arg.Type,
		arg.TransactionType,
		arg.Amount,
		arg.Category,
		arg.Date,
		arg.Description,
		arg.Status,
		arg.ExternalRef,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getFinance = `SELECT balance, total_debt FROM finance WHERE id = 1`

func (q *Queries) GetFinance(ctx context.Context) (FinanceRow, error) {
	row := q.db.QueryRowContext(ctx, getFinance)
	var i FinanceRow
	err := row.Scan(&i.Balance, &i.TotalDebt)
	return i, err
}

const updateFinance = `UPDATE finance SET balance = ?, total_debt = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`

type UpdateFinanceParams struct {
	Balance   string
	TotalDebt string
}

func (q *Queries) UpdateFinance(ctx context.Context, arg UpdateFinanceParams) error {
	_, err := q.db.ExecContext(ctx, updateFinance, arg.Balance, arg.TotalDebt)
	return err
}

const listSavings = `SELECT id, name, amount, target_amount, rate FROM savings ORDER BY id`

func (q *Queries) ListSavings(ctx context.Context) ([]SavingsRow, error) {
	rows, err := q.db.QueryContext(ctx, listSavings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SavingsRow
	for rows.Next() {
		var i SavingsRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Amount, &i.TargetAmount, &i.Rate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listLoans = `SELECT id, name, total_amount, rate, term, duration, premium_amount FROM loans ORDER BY id`

func (q *Queries) ListLoans(ctx context.Context) ([]LoanRow, error) {
	rows, err := q.db.QueryContext(ctx, listLoans)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LoanRow
	for rows.Next() {
		var i LoanRow
		if err := rows.Scan(&i.ID, &i.Name, &i.TotalAmount, &i.Rate, &i.Term, &i.Duration, &i.PremiumAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner, i *TransactionRow) error {
	return s.Scan(
		&i.ID,
		&i.UserID,
		&i.Source,
		&i.Type,
		&i.TransactionType,
		&i.Amount,
		&i.Category,
		&i.Date,
		&i.Description,
		&i.Status,
		&i.ExternalRef,
	)
}
