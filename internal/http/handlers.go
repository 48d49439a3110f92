package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fintrax/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.ready == nil:
		checks["backend"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			log.FromContext(ctx).WithComponent(log.ComponentBackend).WarnContext(ctx, "Readiness check failed",
				log.FieldError, err)
		} else {
			checks["backend"] = "ok"
		}
	}

	stats := s.cache.Stats()
	checks["cache"] = map[string]any{
		"entries": stats.Entries,
		"pending": stats.Pending,
		"status":  "ok",
	}

	if s.rateLimiter != nil {
		checks["rate_limiter"] = map[string]any{
			"active_clients": s.rateLimiter.ActiveClients(),
			"status":         "ok",
		}
	}

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheStats := s.cache.Stats()
	uptime := time.Since(s.started)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP cache_requests_total Cache lookups by outcome\n")
	fmt.Fprintf(w, "# TYPE cache_requests_total counter\n")
	fmt.Fprintf(w, "cache_requests_total{outcome=\"hit\"} %d\n", cacheStats.Hits)
	fmt.Fprintf(w, "cache_requests_total{outcome=\"miss\"} %d\n", cacheStats.Misses)
	fmt.Fprintf(w, "cache_requests_total{outcome=\"shared\"} %d\n", cacheStats.Shared)
	fmt.Fprintf(w, "cache_requests_total{outcome=\"error\"} %d\n\n", cacheStats.Errors)

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries %d\n\n", cacheStats.Entries)

	fmt.Fprintf(w, "# HELP cache_pending_fetches In-flight fetches\n")
	fmt.Fprintf(w, "# TYPE cache_pending_fetches gauge\n")
	fmt.Fprintf(w, "cache_pending_fetches %d\n\n", cacheStats.Pending)

	if s.rateLimiter != nil {
		rateLimitMetrics := s.rateLimiter.GetMetrics()
		fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
		fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
		fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

		fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
		fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
		fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)
	}

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}

// fail writes the mapped error response; server-side failures are logged
// with the request's logger so they carry the request ID.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, component, op string, err error) {
	resp := ErrorFor(err)
	if status := statusFor(err); status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).WithComponent(component).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}
	resp.Write(w)
}
