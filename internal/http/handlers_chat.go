package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	applog "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/log"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/session"
)

// chatTimeout bounds a single advisor round trip.
const chatTimeout = 30 * time.Second

// ChatResponse carries the advisor's answer about a session's report.
type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Answer    string `json:"answer"`
	Model     string `json:"model"`
}

// handleChat answers a free-form question about a session's spending.
// The advisor only ever sees the derived report, never the raw rows.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if s.advisor == nil {
		ServiceUnavailableError("advisor not configured").Write(w)
		return
	}

	req, err := ParseChatRequest(r)
	if err != nil {
		BadRequestError("invalid chat request body").Write(w)
		return
	}

	sessionID := SessionFromRequest(r)
	if sessionID == "" {
		sessionID = req.Session
	}
	if sessionID == "" {
		BadRequestError("missing session").Write(w)
		return
	}

	logger := applog.FromContext(r.Context())

	report, err := s.sessionReport(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			NotFoundError("session not found").Write(w)
			return
		}
		logger.ErrorContext(r.Context(), "Report build failed",
			applog.FieldSessionID, sessionID,
			applog.FieldError, err)
		InternalServerError("failed to build report").Write(w)
		return
	}

	atomic.AddInt64(&s.chatRequests, 1)

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	answer, err := s.advisor.Advise(ctx, req.Message, report)
	if err != nil {
		logger.ErrorContext(r.Context(), "Advisor request failed",
			applog.FieldSessionID, sessionID,
			applog.FieldModel, s.advisor.Model(),
			applog.FieldError, err)
		BadGatewayError("advisor request failed").Write(w)
		return
	}

	NewJSONResponse().Payload(ChatResponse{
		SessionID: sessionID,
		Answer:    answer,
		Model:     s.advisor.Model(),
	}).Write(w)
}
