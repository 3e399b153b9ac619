package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-inject/framework/inject"
)

// MaxBodyBytes caps the request body Bind reads.
const MaxBodyBytes = 4 << 20 // 4 MB

// Request wraps *http.Request and resolves dependencies from the request
// scope its context carries.
type Request struct {
	raw   *http.Request
	maker inject.Maker
}

// NewRequest wraps r. Dependencies resolve through the registered injector.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// NewRequestWith wraps r and resolves dependencies through m instead of the
// registered injector.
func NewRequestWith(r *http.Request, m inject.Maker) *Request {
	return &Request{raw: r, maker: m}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Context returns the request context, which carries the request scope.
func (req *Request) Context() context.Context { return req.raw.Context() }

// ── Resolution ───────────────────────────────────────────────────────────────

// Make resolves key within the request scope.
func (req *Request) Make(key string) (any, error) {
	if req.maker != nil {
		return req.maker.Make(req.raw.Context(), key)
	}
	return inject.Make(req.raw.Context(), key)
}

// Resolve resolves key within the request scope and asserts it to T.
//
//	repo, err := gohttp.Resolve[*UserRepo](req, "users")
func Resolve[T any](req *Request, key string) (T, error) {
	if req.maker != nil {
		return inject.Resolve[T](req.raw.Context(), req.maker, key)
	}
	inj, err := inject.Active()
	if err != nil {
		var zero T
		return zero, err
	}
	return inject.Resolve[T](req.raw.Context(), inj, key)
}

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes a JSON request body into v. A body over MaxBodyBytes fails
// with an *Error carrying 413.
func (req *Request) Bind(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(nil, req.raw.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Abort(http.StatusRequestEntityTooLarge)
		}
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, v)
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// BearerToken extracts the token from Authorization: Bearer <token>.
func (req *Request) BearerToken() string {
	auth := req.raw.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// ID returns the request id set by the router.
func (req *Request) ID() string { return chimw.GetReqID(req.raw.Context()) }

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }
