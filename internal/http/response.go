// This file implements the builder used to construct JSON API
// responses. It provides a fluent API for status, headers, and payload,
// plus helpers for the uniform error envelope.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Payload sets the value that Write encodes as the JSON body.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.payload != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(b.statusCode)

	if b.payload != nil {
		if err := json.NewEncoder(w).Encode(b.payload); err != nil {
			// Headers are already out; all we can do is log.
			slog.Error("Failed to encode response payload", "error", err)
		}
	}
}

// ErrorBody is the uniform JSON error envelope.
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates an error response with the standard envelope.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Payload(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// PayloadTooLargeError creates a 413 Content Too Large error response.
func PayloadTooLargeError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusRequestEntityTooLarge, message)
}

// TooManyRequestsError creates a 429 response with a retry hint.
func TooManyRequestsError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, message).
		Header("Retry-After", "60")
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// BadGatewayError creates a 502 Bad Gateway error response.
func BadGatewayError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, message)
}

// ServiceUnavailableError creates a 503 Service Unavailable response.
func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// MethodNotAllowedError creates a 405 response naming the allowed methods.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}
