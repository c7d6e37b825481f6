package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"behavior/internal/core"
	"behavior/internal/log"
	"behavior/internal/services"
)

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"User behavior": "Analysis"})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings the statement source and, when configured, the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			return
		}
		checks[name] = "ok"
	}

	check("source", s.statements.Ping)
	if s.store != nil {
		check("store", s.store.Ping)
	} else {
		checks["store"] = "not_configured"
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"source":    s.statements.SourceName(),
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.trace.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Total number of 5xx responses", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("invalid_ip_attempts_total", "Forwarded client IPs that failed to parse", "counter", securityMetrics.InvalidIPAttempts)
	if s.cache != nil {
		metric("statement_cache_entries", "Cached statements", "gauge", s.cache.Size())
	}
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handleRawData(w http.ResponseWriter, r *http.Request) {
	records, err := s.statements.RawData(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpLoad, err)
		return
	}
	s.structured.LogStatementServed(r.Context(), log.OpLoad, s.statements.SourceName(), len(records))
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDailyExpenses(w http.ResponseWriter, r *http.Request) {
	totals, err := s.statements.DailyExpenseTotals(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpSummarize, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handlePeriodExpenses(p core.Period) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := s.statements.ExpenseTotals(r.Context(), p)
		if err != nil {
			s.writeError(w, r, log.OpSummarize, err)
			return
		}
		writeJSON(w, http.StatusOK, totals)
	}
}

func (s *Server) handleGroupedByDate(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.statements.GroupedByDate(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpGroup, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// handleCategoryExpenses serves first-word groups per period. The timeframe
// query parameter defaults to daily.
func (s *Server) handleCategoryExpenses(w http.ResponseWriter, r *http.Request) {
	p := core.Daily
	if tf := r.URL.Query().Get("timeframe"); tf != "" {
		var err error
		if p, err = core.ParsePeriod(tf); err != nil {
			s.writeError(w, r, log.OpCategorize, err)
			return
		}
	}

	groups, err := s.statements.CategorizedExpenses(r.Context(), p)
	if err != nil {
		s.writeError(w, r, log.OpCategorize, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleTokenCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.statements.TokenCategories(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpCategorize, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleListStatements(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, log.OpList, services.ErrStoreNotConfigured)
		return
	}
	rows, err := s.store.ListStatements(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.writeError(w, r, log.OpImport, services.ErrStoreNotConfigured)
		return
	}
	result, err := s.importer.Import(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	s.structured.LogImport(r.Context(), result.Path, result.Queued, result.Rows)

	status := http.StatusOK
	if result.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}
