package middleware

import (
	"errors"
	"net/http"
)

// Hooks is the request/response hook form of the scope adapter, for
// frameworks that call into middleware around the handler instead of
// wrapping it.
//
//	req, err := hooks.ProcessRequest(req)
//	resp, err := handler(req)
//	if err != nil {
//	    return hooks.ProcessException(req, err)
//	}
//	return hooks.ProcessResponse(req, resp)
type Hooks struct {
	o *options
}

// NewHooks creates hooks driving the process-wide scope store unless
// WithLifecycle says otherwise.
func NewHooks(opts ...Option) *Hooks {
	return &Hooks{o: newOptions(opts)}
}

// ProcessRequest starts a scope and returns the request carrying it. A nil
// error means the request should proceed.
func (h *Hooks) ProcessRequest(r *http.Request) (*http.Request, error) {
	ctx, err := h.o.lifecycle.StartScope(r.Context())
	if err != nil {
		h.o.failed("start", r, err)
		return r, err
	}
	return r.WithContext(ctx), nil
}

// ProcessResponse ends the scope of r and returns response unmodified.
func (h *Hooks) ProcessResponse(r *http.Request, response any) (any, error) {
	if err := h.o.lifecycle.EndScope(r.Context()); err != nil {
		h.o.failed("end", r, err)
		return response, err
	}
	return response, nil
}

// ProcessException ends the scope of r after the handler failed with cause.
// It returns cause, joined with the end error if ending also failed.
func (h *Hooks) ProcessException(r *http.Request, cause error) error {
	if err := h.o.lifecycle.EndScope(r.Context()); err != nil {
		h.o.failed("end", r, err)
		return errors.Join(cause, err)
	}
	return cause
}
