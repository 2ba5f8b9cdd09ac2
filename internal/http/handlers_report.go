package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
	applog "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/log"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/session"
)

// TransactionsResponse lists a session's normalized transactions.
type TransactionsResponse struct {
	SessionID    string             `json:"sessionId"`
	Count        int                `json:"count"`
	Transactions []core.Transaction `json:"transactions"`
}

// handleReport returns the derived analytics report for a session.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	sessionID := SessionFromRequest(r)
	if sessionID == "" {
		BadRequestError("missing session parameter").Write(w)
		return
	}

	report, err := s.sessionReport(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			NotFoundError("session not found").Write(w)
			return
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report build failed",
			applog.FieldSessionID, sessionID,
			applog.FieldError, err)
		InternalServerError("failed to build report").Write(w)
		return
	}

	NewJSONResponse().Payload(report).Write(w)
}

// handleTransactions returns the raw transaction list for a session.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	sessionID := SessionFromRequest(r)
	if sessionID == "" {
		BadRequestError("missing session parameter").Write(w)
		return
	}

	txns, err := s.store.ListTransactions(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			NotFoundError("session not found").Write(w)
			return
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction list failed",
			applog.FieldSessionID, sessionID,
			applog.FieldError, err)
		InternalServerError("failed to list transactions").Write(w)
		return
	}
	if txns == nil {
		// An empty session serializes as [] rather than null.
		txns = []core.Transaction{}
	}

	NewJSONResponse().Payload(TransactionsResponse{
		SessionID:    sessionID,
		Count:        len(txns),
		Transactions: txns,
	}).Write(w)
}

// sessionReport returns the cached report for a session, deriving and
// caching it on a miss. Uploads and session deletes invalidate the
// entry, so a cached report is never stale.
func (s *Server) sessionReport(ctx context.Context, sessionID string) (core.Report, error) {
	if report, found := s.reportCache.Get(sessionID); found {
		atomic.AddInt64(&s.reportCacheHits, 1)
		applog.FromContext(ctx).DebugContext(ctx, "Report cache hit", applog.FieldSessionID, sessionID)
		return report, nil
	}
	atomic.AddInt64(&s.reportCacheMisses, 1)

	txns, err := s.store.ListTransactions(ctx, sessionID)
	if err != nil {
		return core.Report{}, err
	}

	report := core.GenerateReport(txns)
	s.reportCache.Set(sessionID, report)
	return report, nil
}
