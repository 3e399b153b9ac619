package inject

import "context"

// defaultScopes backs the package-level lifecycle functions and every
// container created without WithScopeStore.
var defaultScopes = NewScopeStore()

// DefaultScopes returns the process-wide scope store.
func DefaultScopes() *ScopeStore { return defaultScopes }

// StartScope begins a request scope on ctx. Adapters call it before running
// request-handling code and use the returned context for the request.
//
//	ctx, err := inject.StartScope(r.Context())
//	if err != nil { ... }
//	defer inject.EndScope(ctx)
func StartScope(ctx context.Context) (context.Context, error) {
	return defaultScopes.Start(ctx)
}

// EndScope ends the request scope bound to ctx. Adapters call it after the
// handler returns, on the failure path too.
func EndScope(ctx context.Context) error {
	return defaultScopes.End(ctx)
}

// CurrentScope returns the live scope bound to ctx, if any.
func CurrentScope(ctx context.Context) (*Scope, bool) {
	return defaultScopes.Current(ctx)
}
