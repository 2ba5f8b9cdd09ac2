package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	applog "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/log"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}).Write(w)
}

// handleReady reports whether the server's collaborators are usable. A
// missing advisor is reported but does not fail readiness; the rest of
// the API works without it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			ready = false
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "ok"
	}

	if s.advisor != nil {
		checks["advisor"] = "configured"
	} else {
		checks["advisor"] = "not configured"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	NewJSONResponse().Status(status).Payload(map[string]any{
		"status": state,
		"checks": checks,
	}).Write(w)
}

// handleMetrics exposes the server's counters in the Prometheus text
// format so they can be scraped without a client library.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	detectMetrics := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeCounter := func(name, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n", name, value)
	}
	writeGauge := func(name, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %d\n", name, value)
	}

	writeCounter("http_requests_total", "HTTP requests handled.", traceMetrics.TotalRequests)
	writeGauge("http_request_duration_average_microseconds", "Mean request duration.", traceMetrics.AverageResponseTime)
	writeCounter("statements_ingested_total", "Statement files ingested.", atomic.LoadInt64(&s.statementsIngested))
	writeCounter("transactions_ingested_total", "Transactions imported from statements.", atomic.LoadInt64(&s.transactionsIngested))
	writeCounter("chat_requests_total", "Advisor chat requests served.", atomic.LoadInt64(&s.chatRequests))
	writeCounter("report_cache_hits_total", "Report cache hits.", atomic.LoadInt64(&s.reportCacheHits))
	writeCounter("report_cache_misses_total", "Report cache misses.", atomic.LoadInt64(&s.reportCacheMisses))
	writeGauge("report_cache_entries", "Reports currently cached.", int64(s.reportCache.Size()))
	writeCounter("rate_limit_hits_total", "Requests rejected by the rate limiter.", rateMetrics.TotalHits)
	writeGauge("rate_limit_active_clients", "Clients tracked by the rate limiter.", rateMetrics.ClientCount)
	writeCounter("suspicious_requests_total", "Requests matching attack patterns.", detectMetrics.SuspiciousRequests)
	writeGauge("uptime_seconds", "Seconds since the server started.", int64(time.Since(s.startedAt).Seconds()))
}

// handleSession deletes a session and everything stored under it.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}

	sessionID := SessionFromRequest(r)
	if sessionID == "" {
		BadRequestError("missing session parameter").Write(w)
		return
	}

	logger := applog.FromContext(r.Context())
	if err := s.store.Delete(r.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			NotFoundError("session not found").Write(w)
			return
		}
		logger.ErrorContext(r.Context(), "Session delete failed",
			applog.FieldSessionID, sessionID,
			applog.FieldError, err)
		InternalServerError("failed to delete session").Write(w)
		return
	}

	s.reportCache.Delete(sessionID)
	logger.InfoContext(r.Context(), "Session deleted", applog.FieldSessionID, sessionID)
	w.WriteHeader(http.StatusNoContent)
}
