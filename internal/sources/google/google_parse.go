package google

import (
	"fmt"
	"strings"

	"fintrax/internal/core"
)

// RowError pins a parse failure to its 1-based sheet row.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("sheet row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// parseRows converts a values matrix with columns Date, Type, Amount,
// Category, Description into transactions. firstRow is the sheet row number
// of values[0]. Fully blank rows are skipped.
func parseRows(values [][]any, firstRow int) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(values))
	for i, raw := range values {
		row := firstRow + i
		cols := toStrings(raw)
		if isBlank(cols) {
			continue
		}

		date, err := core.ParseDateField("date", safeGet(cols, 0))
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		typ, err := core.ParseTransactionType(safeGet(cols, 1))
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		amount, err := core.ParseAmount(safeGet(cols, 2))
		if err != nil {
			return nil, &RowError{Row: row, Err: fmt.Errorf("%w: %q", err, safeGet(cols, 2))}
		}

		t := core.Transaction{
			Source:      "sheets",
			Type:        typ,
			Amount:      amount,
			Category:    safeGet(cols, 3),
			Date:        date,
			Description: safeGet(cols, 4),
			ExternalRef: fmt.Sprintf("sheet:%d", row),
		}.Normalize()
		if err := t.Validate(); err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		out = append(out, t)
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
