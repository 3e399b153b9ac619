package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/km-arc/go-inject/framework/inject"
)

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// Fail sends the error response StatusFor picks for err. Only *Error
// messages reach the client; anything else is reported by status text.
func (res *Response) Fail(err error) {
	status := StatusFor(err)
	var herr *Error
	if errors.As(err, &herr) {
		res.Error(status, herr.Message)
		return
	}
	res.Error(status, http.StatusText(status))
}

// ── Errors ────────────────────────────────────────────────────────────────────

// Error is an error carrying the HTTP status it should be reported with.
type Error struct {
	Status  int
	Message string
}

// Abort returns an *Error for status. The message defaults to the status
// text.
//
//	return gohttp.Abort(http.StatusForbidden)
func Abort(status int, message ...string) *Error {
	return &Error{Status: status, Message: first(message, http.StatusText(status))}
}

func (e *Error) Error() string { return e.Message }

// StatusFor maps err to the status code it should be reported with.
//
//	*Error                    its Status
//	context.DeadlineExceeded  504
//	inject.ErrNoInjector      503 (not booted yet, or shutting down)
//	anything else             500
func StatusFor(err error) int {
	var herr *Error
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &herr):
		return herr.Status
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, inject.ErrNoInjector):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
