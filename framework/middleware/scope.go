// Package middleware adapts net/http request handling to the inject request
// scope. Each adapter only starts a scope before the handler runs and ends it
// afterwards, failure path included.
package middleware

import (
	"net/http"
)

// Scope returns middleware that wraps every request in a request scope.
// The handler receives a request whose context carries the scope; the scope
// is ended when the handler returns or panics.
//
//	r := chi.NewRouter()
//	r.Use(middleware.Scope(middleware.WithLogger(logger)))
func Scope(opts ...Option) func(http.Handler) http.Handler {
	o := newOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := o.lifecycle.StartScope(r.Context())
			if err != nil {
				o.failed("start", r, err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			defer func() {
				if err := o.lifecycle.EndScope(ctx); err != nil {
					o.failed("end", r, err)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
