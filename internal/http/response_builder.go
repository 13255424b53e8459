// This file implements the Builder Pattern for JSON responses. Every
// handler answers through it so status codes, error bodies and the
// persistence warning are formatted the same way.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"subtrack/internal/store"
)

// PersistWarningHeader is set when a mutation was applied in memory but
// could not be saved.
const PersistWarningHeader = "X-Persist-Warning"

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	warning    string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A map body also gets
// the persistence warning, if any, under "warning".
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// PersistWarning records err when it is a *store.PersistError and reports
// whether it did. Any other non-nil error is left to the caller.
func (b *JSONResponseBuilder) PersistWarning(err error) bool {
	var pe *store.PersistError
	if !errors.As(err, &pe) {
		return false
	}
	b.warning = "change applied but not saved: " + pe.Err.Error()
	return true
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.warning != "" {
		w.Header().Set(PersistWarningHeader, b.warning)
		if m, ok := b.body.(map[string]any); ok {
			m["warning"] = b.warning
		}
	}

	if b.statusCode == http.StatusNoContent || b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(map[string]any{"error": message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}
