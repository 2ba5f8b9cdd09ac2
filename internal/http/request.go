// This file implements utilities for extracting and validating request
// data: session identifiers, the chat body, and input sanitization.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// maxChatBodyBytes bounds the chat request body.
const maxChatBodyBytes = 64 << 10

// ChatRequest is the JSON body accepted by the chat endpoint.
type ChatRequest struct {
	Session string `json:"session"`
	Message string `json:"message"`
}

// SessionFromRequest extracts the session ID from the X-Session-ID
// header or the session query parameter. The body is never touched so
// handlers can still parse it themselves.
func SessionFromRequest(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Session-ID")); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("session"))
}

// ParseChatRequest decodes and sanitizes the chat request body.
func ParseChatRequest(r *http.Request) (ChatRequest, error) {
	var req ChatRequest

	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBodyBytes))
	if err != nil {
		return req, err
	}
	if len(body) == 0 {
		return req, errors.New("empty request body")
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}

	req.Session = strings.TrimSpace(req.Session)
	req.Message = sanitizeInput(req.Message)
	return req, nil
}

// sanitizeInput removes control characters except tab, newline, and
// carriage return, then trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// RequireMethod checks if the request method matches the expected
// method(s). Returns an error response builder if the method doesn't
// match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET is a convenience function for GET-only handlers.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet)
}
