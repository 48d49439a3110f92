// Package sources declares the outbound ports every data backend implements.
package sources

import (
	"context"
	"errors"

	"fintrax/internal/core"
)

// ErrNotFound is returned when a record addressed by ID does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	TransactionLister interface {
		ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		// CreateTransaction stores t and returns it with its assigned ID.
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	SummaryReader interface {
		FinanceSummary(ctx context.Context) (core.FinanceSummary, error)
	}

	SavingsLister interface {
		ListSavings(ctx context.Context) ([]core.Savings, error)
	}

	LoanLister interface {
		ListLoans(ctx context.Context) ([]core.Loan, error)
	}

	// Backend is a complete finance data source.
	Backend interface {
		TransactionLister
		TransactionWriter
		SummaryReader
		SavingsLister
		LoanLister
	}
)
