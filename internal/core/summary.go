package core

import "github.com/shopspring/decimal"

// FinanceSummary is the backend's aggregate view of the account.
type FinanceSummary struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalDebt    decimal.Decimal `json:"total_debt"`
	TotalSavings decimal.Decimal `json:"total_savings"`
	TotalLoans   decimal.Decimal `json:"total_loans"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetWorth     decimal.Decimal `json:"net_worth"`
}

// Liabilities is everything owed: debt plus outstanding loans.
func (s FinanceSummary) Liabilities() decimal.Decimal {
	return s.TotalDebt.Add(s.TotalLoans)
}

// ComputeNetWorth recomputes NetWorth from its parts.
func (s FinanceSummary) ComputeNetWorth() decimal.Decimal {
	return s.Balance.Add(s.TotalSavings).Sub(s.Liabilities())
}

type Savings struct {
	ID           int64           `json:"saving_id"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Rate         float64         `json:"rate"`
}

// Progress is the share of the target reached, in percent, capped at 100.
func (s Savings) Progress() float64 {
	if !s.TargetAmount.IsPositive() {
		return 0
	}
	p := s.Amount.Div(s.TargetAmount).Mul(decimal.NewFromInt(100)).InexactFloat64()
	if p > 100 {
		return 100
	}
	return p
}

type Loan struct {
	ID            int64           `json:"loan_id"`
	Name          string          `json:"name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Rate          float64         `json:"rate"`
	Term          int             `json:"term"`
	Duration      int             `json:"duration"`
	PremiumAmount decimal.Decimal `json:"premium_amount"`
}

// Snapshot bundles the inputs of the net-worth chart, read at one point in time.
type Snapshot struct {
	Balance      decimal.Decimal
	Savings      decimal.Decimal
	Liabilities  decimal.Decimal
	Transactions []Transaction
}

// NewSnapshot derives chart inputs from a summary and the transaction list.
func NewSnapshot(s FinanceSummary, txs []Transaction) Snapshot {
	return Snapshot{
		Balance:      s.Balance,
		Savings:      s.TotalSavings,
		Liabilities:  s.Liabilities(),
		Transactions: txs,
	}
}
