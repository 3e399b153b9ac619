// Package routing wraps chi with the middleware every request-scoped
// application needs: request ids, real client IPs, panic recovery, request
// logging and the request scope itself.
package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/middleware"
)

// Router wraps chi.Router.
type Router struct {
	mux chi.Router
}

// Option configures New.
type Option func(*settings)

type settings struct {
	logger *zap.Logger
	scope  []middleware.Option
	scoped bool
}

// WithLogger logs every request through logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithScope wraps every request in a request scope configured by opts.
func WithScope(opts ...middleware.Option) Option {
	return func(s *settings) {
		s.scoped = true
		s.scope = opts
	}
}

// New creates a Router with RequestID, RealIP and Recoverer installed, plus
// request logging and the request scope when configured. The scope is
// innermost so a recovered panic still ends it.
func New(opts ...Option) *Router {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.RealIP)
	if s.logger != nil {
		r.Use(RequestLogger(s.logger))
	}
	r.Use(chimw.Recoverer)
	if s.scoped {
		r.Use(middleware.Scope(s.scope...))
	}
	return &Router{mux: r}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Handle registers h for every method on pattern.
func (r *Router) Handle(pattern string, h http.Handler) { r.mux.Handle(pattern, h) }

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the parent's middleware stack.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Prefix creates a sub-router mounted under pattern.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx})
	})
}

// Middleware appends middleware to the router's stack. It must be called
// before any route is registered.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler.
func (r *Router) Handler() http.Handler {
	return r.mux
}
