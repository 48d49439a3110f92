// Package rest reads and writes finance data through the backend's JSON API.
// Every response body is wrapped as {"data": ...}; failures carry {"message": ...}.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrax/internal/core"
	"fintrax/internal/sources"
)

const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ sources.Backend = (*Client)(nil)

type Option func(*Client)

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	q := url.Values{}
	if f.Type != 0 {
		q.Set("type", strconv.Itoa(int(f.Type)))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if !f.StartDate.IsZero() {
		q.Set("start_date", f.StartDate.Format(core.DateLayout))
	}
	if !f.EndDate.IsZero() {
		q.Set("end_date", f.EndDate.Format(core.DateLayout))
	}
	path := "/transactions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []core.Transaction
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var created core.Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions", t, &created); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return created, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, "/transactions/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func (c *Client) FinanceSummary(ctx context.Context) (core.FinanceSummary, error) {
	var s core.FinanceSummary
	if err := c.do(ctx, http.MethodGet, "/finance/summary", nil, &s); err != nil {
		return core.FinanceSummary{}, fmt.Errorf("finance summary: %w", err)
	}
	return s, nil
}

func (c *Client) ListSavings(ctx context.Context) ([]core.Savings, error) {
	out := []core.Savings{}
	if err := c.do(ctx, http.MethodGet, "/savings", nil, &out); err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	return out, nil
}

func (c *Client) ListLoans(ctx context.Context) ([]core.Loan, error) {
	out := []core.Loan{}
	if err := c.do(ctx, http.MethodGet, "/loans", nil, &out); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return out, nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do sends one request and decodes the envelope's data into out (if non-nil).
// 404 maps to sources.ErrNotFound so callers can branch without an HTTP dependency.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			apiErr.Message = env.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return errors.Join(sources.ErrNotFound, apiErr)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}
