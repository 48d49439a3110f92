package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrax/internal/core"
	"fintrax/internal/sources"
)

const seedYAML = `
summary:
  balance: 100000
  total_debt: 5000
transactions:
  - type: income
    amount: "50,000"
    category: salary
    date: 2024-03-01
  - id: 10
    type: 2
    amount: 1500.50
    category: " food "
    date: "2024-03-05"
    description: groceries
savings:
  - name: Emergency
    amount: 20000
    target_amount: 50000
loans:
  - name: Car
    total_amount: 10000
    term: 36
`

func TestParseSeed(t *testing.T) {
	s, err := Parse([]byte(seedYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	ctx := context.Background()

	txs, _ := s.ListTransactions(ctx, core.TransactionFilter{})
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].ID != 1 || !txs[0].Amount.Equal(decimal.NewFromInt(50000)) || txs[0].Type != core.Income {
		t.Errorf("first transaction = %+v", txs[0])
	}
	if txs[1].ID != 10 || txs[1].Category != "food" || txs[1].Date.String() != "2024-03-05" {
		t.Errorf("second transaction = %+v", txs[1])
	}

	sum, _ := s.FinanceSummary(ctx)
	if !sum.TotalSavings.Equal(decimal.NewFromInt(20000)) || !sum.TotalLoans.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("derived totals = %v / %v", sum.TotalSavings, sum.TotalLoans)
	}
	// 100000 + 20000 - (5000 + 10000)
	if !sum.NetWorth.Equal(decimal.NewFromInt(105000)) {
		t.Errorf("net worth = %v", sum.NetWorth)
	}
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"bad date", "transactions:\n  - {type: income, amount: 1, date: 03/01/2024}\n", nil},
		{"bad type", "transactions:\n  - {type: transfer, amount: 1, date: 2024-03-01}\n", core.ErrInvalidType},
		{"zero amount", "transactions:\n  - {type: income, amount: 0, date: 2024-03-01}\n", core.ErrInvalidAmount},
		{"bad summary", "summary:\n  balance: lots\n", core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if tt.want == nil {
				var de *core.DateError
				if !errors.As(err, &de) {
					t.Errorf("expected *core.DateError, got %v", err)
				}
			}
		})
	}
}

func TestCreateDeleteKeepsSummaryInStep(t *testing.T) {
	s := New(core.FinanceSummary{Balance: decimal.NewFromInt(1000)}, nil, nil, nil)
	ctx := context.Background()

	created, err := s.CreateTransaction(ctx, core.Transaction{
		Type:   core.Expense,
		Amount: decimal.NewFromInt(300),
		Date:   core.NewDate(2024, time.March, 2, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if created.ID != 1 {
		t.Errorf("ID = %d, want 1", created.ID)
	}
	sum, _ := s.FinanceSummary(ctx)
	if !sum.Balance.Equal(decimal.NewFromInt(700)) || !sum.TotalExpense.Equal(decimal.NewFromInt(300)) {
		t.Errorf("after create: %+v", sum)
	}

	if err := s.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	sum, _ = s.FinanceSummary(ctx)
	if !sum.Balance.Equal(decimal.NewFromInt(1000)) || !sum.TotalExpense.IsZero() {
		t.Errorf("after delete: %+v", sum)
	}

	if err := s.DeleteTransaction(ctx, created.ID); !errors.Is(err, sources.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := New(core.FinanceSummary{}, nil, nil, nil)
	_, err := s.CreateTransaction(context.Background(), core.Transaction{Type: core.Income, Amount: decimal.NewFromInt(5)})
	if !errors.Is(err, core.ErrMissingDate) {
		t.Fatalf("error = %v, want ErrMissingDate", err)
	}
}

func TestListTransactionsFilter(t *testing.T) {
	s, err := Parse([]byte(seedYAML))
	if err != nil {
		t.Fatal(err)
	}
	txs, _ := s.ListTransactions(context.Background(), core.TransactionFilter{Type: core.Expense})
	if len(txs) != 1 || txs[0].Category != "food" {
		t.Fatalf("filtered = %+v", txs)
	}
}

func TestNewFromFile(t *testing.T) {
	s, err := NewFromFile("")
	if err != nil {
		t.Fatal(err)
	}
	if txs, _ := s.ListTransactions(context.Background(), core.TransactionFilter{}); len(txs) != 0 {
		t.Errorf("expected empty store, got %d", len(txs))
	}

	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFile(path); err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	if _, err := NewFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
