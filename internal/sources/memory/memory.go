package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"fintrax/internal/core"
	"fintrax/internal/sources"
)

// Store keeps finance data in process memory. Writes keep the summary's
// balance and totals in step with the transaction list.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	summary core.FinanceSummary
	txs     []core.Transaction
	savings []core.Savings
	loans   []core.Loan
}

var _ sources.Backend = (*Store)(nil)

func New(summary core.FinanceSummary, txs []core.Transaction, savings []core.Savings, loans []core.Loan) *Store {
	s := &Store{
		summary: summary,
		txs:     slices.Clone(txs),
		savings: slices.Clone(savings),
		loans:   slices.Clone(loans),
	}
	for _, t := range s.txs {
		s.nextID = max(s.nextID, t.ID)
	}
	if s.summary.TotalSavings.IsZero() {
		for _, sv := range s.savings {
			s.summary.TotalSavings = s.summary.TotalSavings.Add(sv.Amount)
		}
	}
	if s.summary.TotalLoans.IsZero() {
		for _, l := range s.loans {
			s.summary.TotalLoans = s.summary.TotalLoans.Add(l.TotalAmount)
		}
	}
	return s
}

// seed is the YAML layout of a seed file. Scalars stay strings so that
// malformed amounts and dates are reported instead of zeroed.
type seed struct {
	Summary struct {
		Balance      string `yaml:"balance"`
		TotalDebt    string `yaml:"total_debt"`
		TotalSavings string `yaml:"total_savings"`
		TotalLoans   string `yaml:"total_loans"`
	} `yaml:"summary"`
	Transactions []struct {
		ID          int64  `yaml:"id"`
		Type        string `yaml:"type"`
		Amount      string `yaml:"amount"`
		Category    string `yaml:"category"`
		Date        string `yaml:"date"`
		Description string `yaml:"description"`
	} `yaml:"transactions"`
	Savings []struct {
		Name         string  `yaml:"name"`
		Amount       string  `yaml:"amount"`
		TargetAmount string  `yaml:"target_amount"`
		Rate         float64 `yaml:"rate"`
	} `yaml:"savings"`
	Loans []struct {
		Name          string  `yaml:"name"`
		TotalAmount   string  `yaml:"total_amount"`
		Rate          float64 `yaml:"rate"`
		Term          int     `yaml:"term"`
		Duration      int     `yaml:"duration"`
		PremiumAmount string  `yaml:"premium_amount"`
	} `yaml:"loans"`
}

// NewFromFile seeds a store from a YAML file. An empty path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return New(core.FinanceSummary{}, nil, nil, nil), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse builds a store from seed YAML.
func Parse(raw []byte) (*Store, error) {
	var sd seed
	if err := yaml.Unmarshal(raw, &sd); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	var summary core.FinanceSummary
	var err error
	for _, f := range []struct {
		name string
		in   string
		out  *decimal.Decimal
	}{
		{"summary.balance", sd.Summary.Balance, &summary.Balance},
		{"summary.total_debt", sd.Summary.TotalDebt, &summary.TotalDebt},
		{"summary.total_savings", sd.Summary.TotalSavings, &summary.TotalSavings},
		{"summary.total_loans", sd.Summary.TotalLoans, &summary.TotalLoans},
	} {
		if *f.out, err = decimalOrZero(f.in); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	txs := make([]core.Transaction, 0, len(sd.Transactions))
	for i, st := range sd.Transactions {
		t := core.Transaction{
			ID:          st.ID,
			Category:    st.Category,
			Description: st.Description,
			Source:      "seed",
		}
		if t.ID == 0 {
			t.ID = int64(i + 1)
		}
		if t.Type, err = core.ParseTransactionType(st.Type); err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		if t.Amount, err = core.ParseAmount(st.Amount); err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		if t.Date, err = core.ParseDateField("date", st.Date); err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		txs = append(txs, t.Normalize())
	}

	savings := make([]core.Savings, 0, len(sd.Savings))
	for i, ss := range sd.Savings {
		sv := core.Savings{ID: int64(i + 1), Name: ss.Name, Rate: ss.Rate}
		if sv.Amount, err = decimalOrZero(ss.Amount); err != nil {
			return nil, fmt.Errorf("savings[%d]: %w", i, err)
		}
		if sv.TargetAmount, err = decimalOrZero(ss.TargetAmount); err != nil {
			return nil, fmt.Errorf("savings[%d]: %w", i, err)
		}
		savings = append(savings, sv)
	}

	loans := make([]core.Loan, 0, len(sd.Loans))
	for i, sl := range sd.Loans {
		l := core.Loan{ID: int64(i + 1), Name: sl.Name, Rate: sl.Rate, Term: sl.Term, Duration: sl.Duration}
		if l.TotalAmount, err = decimalOrZero(sl.TotalAmount); err != nil {
			return nil, fmt.Errorf("loans[%d]: %w", i, err)
		}
		if l.PremiumAmount, err = decimalOrZero(sl.PremiumAmount); err != nil {
			return nil, fmt.Errorf("loans[%d]: %w", i, err)
		}
		loans = append(loans, l)
	}

	return New(summary, txs, savings, loans), nil
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.txs = append(s.txs, t)
	s.apply(t, 1)
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.txs, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		return fmt.Errorf("transaction %d: %w", id, sources.ErrNotFound)
	}
	s.apply(s.txs[i], -1)
	s.txs = slices.Delete(s.txs, i, i+1)
	return nil
}

// apply adds (sign 1) or reverts (sign -1) a transaction's effect on the summary.
func (s *Store) apply(t core.Transaction, sign int64) {
	amt := t.Amount.Mul(decimal.NewFromInt(sign))
	switch t.Type {
	case core.Income:
		s.summary.Balance = s.summary.Balance.Add(amt)
		s.summary.TotalIncome = s.summary.TotalIncome.Add(amt)
	case core.Expense:
		s.summary.Balance = s.summary.Balance.Sub(amt)
		s.summary.TotalExpense = s.summary.TotalExpense.Add(amt)
	}
}

func (s *Store) FinanceSummary(_ context.Context) (core.FinanceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.summary
	out.NetWorth = out.ComputeNetWorth()
	return out, nil
}

func (s *Store) ListSavings(_ context.Context) ([]core.Savings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Savings{}, s.savings...), nil
}

func (s *Store) ListLoans(_ context.Context) ([]core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Loan{}, s.loans...), nil
}

func decimalOrZero(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return d, nil
}
