package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	applog "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/log"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/session"
)

// handleUpload ingests an uploaded statement file into a session. When
// the request names no session a fresh one is created and returned with
// status 201.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	logger := applog.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.uploadMaxBytes)
	if err := r.ParseMultipartForm(s.uploadMaxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			logger.WarnContext(r.Context(), "Upload rejected, body too large",
				applog.FieldSizeBytes, r.ContentLength)
			PayloadTooLargeError("statement exceeds the upload size limit").Write(w)
			return
		}
		BadRequestError("invalid multipart form").Write(w)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("missing file field").Write(w)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to read uploaded file",
			applog.FieldFilename, header.Filename,
			applog.FieldError, err)
		InternalServerError("failed to read upload").Write(w)
		return
	}

	sessionID := SessionFromRequest(r)
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.FormValue("session"))
	}
	created := false
	if sessionID == "" {
		sess, err := s.store.Create(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "Session create failed", applog.FieldError, err)
			InternalServerError("failed to create session").Write(w)
			return
		}
		sessionID = sess.ID
		created = true
	}

	result, err := s.ingest.IngestStatement(r.Context(), sessionID, header.Filename, raw)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			NotFoundError("session not found").Write(w)
			return
		}
		logger.ErrorContext(r.Context(), "Statement ingestion failed",
			applog.FieldSessionID, sessionID,
			applog.FieldFilename, header.Filename,
			applog.FieldError, err)
		InternalServerError("failed to ingest statement").Write(w)
		return
	}

	atomic.AddInt64(&s.statementsIngested, 1)
	atomic.AddInt64(&s.transactionsIngested, int64(result.Imported))
	// The session's report is stale now.
	s.reportCache.Delete(sessionID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	NewJSONResponse().Status(status).Payload(result).Write(w)
}
