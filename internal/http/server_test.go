package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrax/internal/cache"
	"fintrax/internal/core"
	"fintrax/internal/services"
	"fintrax/internal/sources"
	"fintrax/internal/sources/memory"
	"fintrax/internal/sources/rest"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func tx(id int64, typ core.TransactionType, amount int64, category string, month time.Month, day int) core.Transaction {
	return core.Transaction{
		ID:       id,
		Type:     typ,
		Amount:   decimal.NewFromInt(amount),
		Category: category,
		Date:     core.NewDate(2024, month, day, time.UTC),
	}
}

func fixtureStore() *memory.Store {
	summary := core.FinanceSummary{
		Balance:      decimal.NewFromInt(100000),
		TotalSavings: decimal.NewFromInt(20000),
		TotalDebt:    decimal.NewFromInt(5000),
	}
	return memory.New(summary, []core.Transaction{
		tx(1, core.Income, 50000, "salary", time.March, 1),
		tx(2, core.Expense, 1200, "food", time.March, 5),
		tx(3, core.Expense, 500, "transport", time.March, 8),
		tx(4, core.Expense, 800, "food", time.March, 10),
		tx(5, core.Expense, 20000, "rent", time.February, 2),
		tx(6, core.Income, 5000, "freelance", time.February, 20),
	}, nil, nil)
}

type testEnv struct {
	srv     *Server
	clock   *testClock
	cache   *cache.Cache
	finance *services.FinanceService
}

func newTestEnv(t testing.TB, backend sources.Backend, cfg Config, ready ReadinessCheck) *testEnv {
	t.Helper()
	clock := &testClock{now: time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)}
	c := cache.New(cache.WithClock(clock.Now), cache.WithDefaultTTL(time.Minute))
	finance := services.NewFinanceService(backend, c, nil, nil)
	charts := services.NewChartService(finance, services.WithClock(clock.Now), services.WithLocation(time.UTC))
	srv := NewServer(cfg, finance, charts, c, ready)
	t.Cleanup(func() {
		finance.Wait()
		_ = srv.Shutdown(context.Background())
	})
	return &testEnv{srv: srv, clock: clock, cache: c, finance: finance}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return env
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}

	down := newTestEnv(t, fixtureStore(), Config{}, func(context.Context) error { return errors.New("database is locked") })
	rr := down.do(http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "database is locked") {
		t.Errorf("readyz body should name the failed check: %s", rr.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{RateLimitPerMinute: 100}, nil)
	env.do(http.MethodGet, "/api/charts/expenses", "")
	env.do(http.MethodGet, "/api/charts/expenses", "")

	rr := env.do(http.MethodGet, "/metrics", "")
	body := rr.Body.String()
	for _, want := range []string{
		"http_requests_total 2",
		`cache_requests_total{outcome="hit"} 1`,
		`cache_requests_total{outcome="miss"} 1`,
		"active_rate_limit_clients 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestChartEndpoints(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)

	rr := env.do(http.MethodGet, "/api/charts/expenses?period=this-month", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expenses status = %d: %s", rr.Code, rr.Body.String())
	}
	var breakdown services.CategoryBreakdown
	if err := json.Unmarshal(decode(t, rr).Data, &breakdown); err != nil {
		t.Fatal(err)
	}
	if breakdown.TotalLabel != "₹2,500" || len(breakdown.Categories) != 2 {
		t.Errorf("breakdown = %+v", breakdown)
	}

	tests := []struct {
		path string
		want string
	}{
		{"/api/charts/income-sources?period=last-3-months", `"Salary"`},
		{"/api/charts/income-trend?period=last-month", `"net":-15000`},
		{"/api/charts/net-worth", `"growth_label"`},
		{"/api/charts/balance?start_date=2024-03-01&end_date=2024-03-31", `"opening":52500`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := env.do(http.MethodGet, tt.path, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body missing %s: %s", tt.want, rr.Body.String())
			}
		})
	}
}

func TestChartEndpoints_BadQuery(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)

	tests := []struct {
		name    string
		query   string
		message string
	}{
		{"unknown period", "period=fortnight", "unknown period"},
		{"malformed date", "start_date=2024-13-01&end_date=2024-12-31", "start_date"},
		{"reversed range", "start_date=2024-03-31&end_date=2024-03-01", core.ErrInvalidRange.Error()},
		{"custom without dates", "period=custom", "needs start_date and end_date"},
		{"negative top", "top=-1", "top"},
		{"bad refresh flag", "refresh=maybe", "refresh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodGet, "/api/charts/expenses?"+tt.query, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if msg := decode(t, rr).Message; !strings.Contains(msg, tt.message) {
				t.Errorf("message = %q, want it to mention %q", msg, tt.message)
			}
		})
	}
}

func TestTransactionsLifecycle(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)

	rr := env.do(http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"₹1,250","category":"food","date":"2024-03-14","description":"groceries"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}
	var created core.Transaction
	if err := json.Unmarshal(decode(t, rr).Data, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID != 7 || !created.Amount.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("created = %+v", created)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/transactions/7" {
		t.Errorf("Location = %q", loc)
	}

	rr = env.do(http.MethodGet, "/api/charts/expenses", "")
	if !strings.Contains(rr.Body.String(), `"total":3750`) {
		t.Errorf("chart should see the new expense: %s", rr.Body.String())
	}

	if rr := env.do(http.MethodDelete, "/api/transactions/7", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := env.do(http.MethodDelete, "/api/transactions/7", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}
	if rr := env.do(http.MethodDelete, "/api/transactions/abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rr.Code)
	}
}

func TestCreateTransaction_Invalid(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest},
		{"unknown type", `{"type":"gift","amount":"10","date":"2024-03-01"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"type":"expense","amount":"0","date":"2024-03-01"}`, http.StatusUnprocessableEntity},
		{"missing date", `{"type":"expense","amount":"10"}`, http.StatusUnprocessableEntity},
		{"malformed date", `{"type":"expense","amount":"10","date":"yesterday"}`, http.StatusUnprocessableEntity},
		{"description too long", `{"type":"expense","amount":"10","date":"2024-03-01","description":"` + strings.Repeat("x", 201) + `"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if decode(t, rr).Message == "" {
				t.Error("error responses carry a message")
			}
		})
	}
}

func TestCreateTransaction_Form(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader("type=income&amount=2500&category=bonus&date=2024-03-12"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOversizedBodiesAreRejected(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)
	padding := strings.Repeat("x", maxBodyBytes)

	// Cut at the limit this would still be a valid transaction.
	req := httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader("type=income&amount=2500&category=bonus&date=2024-03-12&note="+padding))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("create: status = %d, want 413: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/api/transactions", "")
	if strings.Contains(rr.Body.String(), "bonus") {
		t.Error("oversized create must not store a transaction")
	}

	rr = env.do(http.MethodPost, "/api/cache/invalidate", `{"pattern":"`+padding+`"}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("invalidate: status = %d, want 413: %s", rr.Code, rr.Body.String())
	}
}

func TestListTransactions_Stale(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)

	rr := env.do(http.MethodGet, "/api/transactions?stale=true", "")
	if rr.Code != http.StatusOK || rr.Header().Get(headerCacheStale) != "false" {
		t.Fatalf("first read: status %d, stale header %q", rr.Code, rr.Header().Get(headerCacheStale))
	}

	env.clock.Advance(2 * time.Minute)
	rr = env.do(http.MethodGet, "/api/transactions?stale=true", "")
	if rr.Header().Get(headerCacheStale) != "true" {
		t.Errorf("expired entry should be served stale, header %q", rr.Header().Get(headerCacheStale))
	}
	env.finance.Wait()

	rr = env.do(http.MethodGet, "/api/transactions?stale=true", "")
	if rr.Header().Get(headerCacheStale) != "false" {
		t.Errorf("revalidated entry is fresh again, header %q", rr.Header().Get(headerCacheStale))
	}

	var txs []core.Transaction
	if err := json.Unmarshal(decode(t, env.do(http.MethodGet, "/api/transactions", "")).Data, &txs); err != nil {
		t.Fatal(err)
	}
	if len(txs) != 6 {
		t.Errorf("transactions = %d, want 6", len(txs))
	}
}

func TestCacheEndpoints(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{}, nil)
	env.do(http.MethodGet, "/api/finance/summary", "")
	env.do(http.MethodGet, "/api/transactions", "")

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"empty request", `{}`, http.StatusBadRequest, "required"},
		{"unknown field", `{"everything":true}`, http.StatusBadRequest, "unknown field"},
		{"bad pattern", `{"pattern":"("}`, http.StatusBadRequest, "invalid pattern"},
		{"single key", `{"key":"finance:summary"}`, http.StatusOK, `"removed":1`},
		{"pattern", `{"pattern":"^finance:"}`, http.StatusOK, `"removed":1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/api/cache/invalidate", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body %s missing %q", rr.Body.String(), tt.want)
			}
		})
	}

	rr := env.do(http.MethodGet, "/api/cache/stats", "")
	var stats cache.Stats
	if err := json.Unmarshal(decode(t, rr).Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 || stats.Misses != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{RateLimitPerMinute: 2}, nil)

	for i := 0; i < 2; i++ {
		if rr := env.do(http.MethodGet, "/api/finance/summary", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rr.Code)
		}
	}
	rr := env.do(http.MethodGet, "/api/finance/summary", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || decode(t, rr).Message == "" {
		t.Error("429 carries Retry-After and a JSON message")
	}

	if rr := env.do(http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("health checks are not rate limited, status %d", rr.Code)
	}
}

func TestMiddlewareStack(t *testing.T) {
	env := newTestEnv(t, fixtureStore(), Config{CORSAllowedOrigins: []string{"https://dash.example.com"}}, nil)

	rr := env.do(http.MethodGet, "/api/finance/summary", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	pre := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(pre, req)
	if got := pre.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.com" {
		t.Errorf("preflight Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/finance/summary", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	other := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(other, req)
	if got := other.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin got Allow-Origin %q", got)
	}

	if rr := env.do(http.MethodGet, "/api/nothing-here", ""); rr.Code != http.StatusNotFound || decode(t, rr).Message == "" {
		t.Errorf("unknown route status = %d", rr.Code)
	}
	if rr := env.do(http.MethodPut, "/api/transactions", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status = %d, want 405", rr.Code)
	}
}

// failingBackend serves the fixture but fails every transaction listing.
type failingBackend struct {
	*memory.Store
	err error
}

func (f failingBackend) ListTransactions(context.Context, core.TransactionFilter) ([]core.Transaction, error) {
	return nil, f.err
}

func TestBackendErrorsAreMapped(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"upstream failure", &rest.APIError{Status: 503, Message: "maintenance"}, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"anything else", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, failingBackend{Store: fixtureStore(), err: tt.err}, Config{}, nil)
			rr := env.do(http.MethodGet, "/api/charts/expenses", "")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if msg := decode(t, rr).Message; strings.Contains(msg, "disk on fire") || strings.Contains(msg, "maintenance") {
				t.Errorf("server-side details leaked: %q", msg)
			}
		})
	}
}
