// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// chart query parameters and transaction bodies sent as JSON or form data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrax/internal/core"
	"fintrax/internal/services"
)

// maxBodyBytes bounds request bodies; a transaction is a few hundred bytes.
const maxBodyBytes = 64 << 10

// ParseChartQuery reads period, start_date, end_date, top and refresh.
//
// An empty period means this-month. Dates without a period imply custom.
// A custom period needs both dates in order.
func ParseChartQuery(q url.Values) (services.ChartQuery, error) {
	var cq services.ChartQuery

	raw := strings.TrimSpace(q.Get("period"))
	start := strings.TrimSpace(q.Get("start_date"))
	end := strings.TrimSpace(q.Get("end_date"))
	switch {
	case raw != "":
		p, ok := core.ParseTimePeriod(raw)
		if !ok {
			return cq, fmt.Errorf("%w: unknown period %q", errBadRequest, raw)
		}
		cq.Period = p
	case start != "" || end != "":
		cq.Period = core.CustomPeriod
	default:
		cq.Period = core.ThisMonth
	}

	if cq.Period == core.CustomPeriod {
		if start == "" || end == "" {
			return cq, fmt.Errorf("%w: custom period needs start_date and end_date", errBadRequest)
		}
		startDate, err := core.ParseDateField("start_date", start)
		if err != nil {
			return cq, err
		}
		endDate, err := core.ParseDateField("end_date", end)
		if err != nil {
			return cq, err
		}
		r := core.DateRange{StartDate: startDate, EndDate: endDate}
		if err := r.Validate(); err != nil {
			return cq, err
		}
		cq.Custom = &r
	}

	if v := strings.TrimSpace(q.Get("top")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cq, fmt.Errorf("%w: top must be a non-negative integer", errBadRequest)
		}
		cq.Top = n
	}

	refresh, err := parseBool(q, "refresh")
	if err != nil {
		return cq, err
	}
	cq.Refresh = refresh
	return cq, nil
}

// parseBool reads an optional boolean query flag; absent means false.
func parseBool(q url.Values, name string) (bool, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, name)
	}
	return b, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing. A body over
// maxBodyBytes is rejected, never truncated.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	p.err = bodyReadError(p.err)
	return p
}

// bodyReadError turns the limit error of http.MaxBytesReader into
// errBodyTooLarge.
func bodyReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
	}
	return err
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", errBadRequest)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", errBadRequest)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseTransaction builds a transaction from a create request. Amounts
// accept the same hand-typed forms as the sheets import.
func parseTransaction(p *RequestBodyParser) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	raw := p.Get("date")
	if raw == "" {
		return core.Transaction{}, core.ErrMissingDate
	}
	date, err := core.ParseDateField("date", raw)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Type:        typ,
		Amount:      amount,
		Category:    p.Get("category"),
		Date:        date,
		Description: p.Get("description"),
		Source:      p.Get("source"),
	}, nil
}
