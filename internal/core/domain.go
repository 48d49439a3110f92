package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = 1
	Expense TransactionType = 2
)

type (
	// TransactionType mirrors the backend's numeric type column (1=income, 2=expense).
	TransactionType uint8

	Transaction struct {
		ID              int64           `json:"transaction_id"`
		UserID          int64           `json:"user_id"`
		Source          string          `json:"source,omitempty"`
		Type            TransactionType `json:"type"`
		TransactionType uint            `json:"transaction_type,omitempty"`
		Amount          decimal.Decimal `json:"amount"`
		Category        string          `json:"category,omitempty"`
		Date            Date            `json:"date"`
		Description     string          `json:"description,omitempty"`
		Status          uint            `json:"status,omitempty"`
		ExternalRef     string          `json:"external_ref,omitempty"` // import origin, e.g. "sheet:12"
	}

	// TransactionFilter narrows a transaction listing. Zero values mean "any".
	TransactionFilter struct {
		Type      TransactionType
		Category  string
		StartDate Date
		EndDate   Date
	}
)

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMissingDate      = errors.New("missing transaction date")
	ErrDescriptionLimit = errors.New("description too long (max 200 characters)")
	ErrInvalidRange     = errors.New("start date is after end date")
)

func init() {
	// Amounts travel as JSON numbers to and from the backend.
	decimal.MarshalJSONWithoutQuotes = true
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	switch t {
	case Income:
		return "income"
	case Expense:
		return "expense"
	default:
		return "unknown"
	}
}

// ParseTransactionType accepts the numeric code or the name, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "income":
		return Income, nil
	case "2", "expense":
		return Expense, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// IsIncome reports whether the transaction adds to the balance.
func (t Transaction) IsIncome() bool { return t.Type == Income }

// IsExpense reports whether the transaction reduces the balance.
func (t Transaction) IsExpense() bool { return t.Type == Expense }

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLimit
	}
	return nil
}

// Normalize trims free-text fields; it never changes amounts or dates.
func (t Transaction) Normalize() Transaction {
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	t.Source = strings.TrimSpace(t.Source)
	return t
}

// Matches reports whether the transaction passes the filter.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.Type != 0 && t.Type != f.Type {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, t.Category) {
		return false
	}
	day := CivilDay(t.Date.Time)
	if !f.StartDate.IsZero() && day < CivilDay(f.StartDate.Time) {
		return false
	}
	if !f.EndDate.IsZero() && day > CivilDay(f.EndDate.Time) {
		return false
	}
	return true
}
