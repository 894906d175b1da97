// Package http exposes the ledger engines over a JSON API.
//
// This file implements the Builder Pattern for JSON responses so every
// handler writes status, headers and body the same way.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finledger/internal/auth"
	"finledger/internal/charts"
	"finledger/internal/core"
	applog "finledger/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	raw        []byte
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    map[string]string{"Content-Type": "application/json"},
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

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// PNG switches the response to an image body.
func (b *JSONResponseBuilder) PNG(img []byte) *JSONResponseBuilder {
	b.headers["Content-Type"] = "image/png"
	b.raw = img
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body := b.raw
	if body == nil && b.payload != nil {
		encoded, err := json.Marshal(b.payload)
		if err != nil {
			slog.Error("Failed to encode response", "error", err)
			b.statusCode = http.StatusInternalServerError
			encoded = []byte(`{"error":"internal error"}`)
		}
		body = append(encoded, '\n')
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// FromError maps the domain error taxonomy to a response. Storage and
// unknown failures are logged and reported generically.
func FromError(r *http.Request, err error) *JSONResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(errorBody{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, core.ErrInvalidPeriod), errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrValidation):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, core.ErrInUse):
		return ErrorResponse(http.StatusConflict, "still used by transactions")
	case errors.Is(err, core.ErrNoSourceBudgets):
		return ErrorResponse(http.StatusConflict, "There are no budgets in the previous month to copy.")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, auth.ErrUnauthorized):
		return ErrorResponse(http.StatusUnauthorized, auth.ErrUnauthorized.Error())
	case errors.Is(err, charts.ErrNoData):
		return NewJSONResponse().Status(http.StatusNoContent)
	default:
		applog.NewRequestLogger(applog.FromContext(r.Context())).
			Failed(r.Context(), r, err, applog.LogFields{"storage": errors.Is(err, core.ErrStorage)})
		return InternalServerError()
	}
}
