package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrax/internal/core"
	"fintrax/internal/sources/memory"
)

// gatedBackend blocks every transaction listing until release is closed.
type gatedBackend struct {
	*memory.Store
	calls   atomic.Int32
	release chan struct{}
}

func (g *gatedBackend) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	g.calls.Add(1)
	<-g.release
	return g.Store.ListTransactions(ctx, f)
}

// TestConcurrentChartRequestsShareOneFetch fires the transaction-backed chart
// endpoints at once and checks the backend is listed exactly once.
func TestConcurrentChartRequestsShareOneFetch(t *testing.T) {
	backend := &gatedBackend{Store: fixtureStore(), release: make(chan struct{})}
	env := newTestEnv(t, backend, Config{}, nil)

	paths := []string{
		"/api/charts/expenses",
		"/api/charts/expenses?period=last-3-months&top=1",
		"/api/charts/income-sources",
		"/api/charts/income-trend?period=this-year",
		"/api/transactions",
	}
	const perPath = 5
	total := len(paths) * perPath

	var wg sync.WaitGroup
	codes := make(chan int, total)
	for _, p := range paths {
		for i := 0; i < perPath; i++ {
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				rr := httptest.NewRecorder()
				env.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
				codes <- rr.Code
			}(p)
		}
	}

	// Release the fetch only once every request is waiting on it.
	deadline := time.After(5 * time.Second)
	for {
		s := env.cache.Stats()
		if s.Pending == 1 && backend.calls.Load() == 1 && int(s.Misses+s.Shared) >= total {
			break
		}
		select {
		case <-deadline:
			close(backend.release)
			t.Fatalf("requests never converged on one fetch: stats %+v, calls %d", s, backend.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	close(backend.release)
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("status = %d", code)
		}
	}
	if n := backend.calls.Load(); n != 1 {
		t.Errorf("backend listed %d times, want 1", n)
	}
	if s := env.cache.Stats(); s.Misses != 1 {
		t.Errorf("stats = %+v, want a single miss for the transaction list", s)
	}
}

func BenchmarkChartRequestCached(b *testing.B) {
	env := newTestEnv(b, fixtureStore(), Config{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/charts/expenses?period=this-year", nil)
	env.srv.Handler.ServeHTTP(httptest.NewRecorder(), req)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		env.srv.Handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
