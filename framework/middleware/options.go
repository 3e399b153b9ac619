package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/inject"
)

// Lifecycle starts and ends request scopes. *inject.Injector satisfies it.
type Lifecycle interface {
	StartScope(ctx context.Context) (context.Context, error)
	EndScope(ctx context.Context) error
}

// ErrorRecorder counts failed lifecycle operations. *metrics.Recorder
// satisfies it.
type ErrorRecorder interface {
	LifecycleError(op string)
}

// gateway drives the process-wide scope store.
type gateway struct{}

func (gateway) StartScope(ctx context.Context) (context.Context, error) {
	return inject.StartScope(ctx)
}

func (gateway) EndScope(ctx context.Context) error {
	return inject.EndScope(ctx)
}

// Option configures the scope middleware and hooks.
type Option func(*options)

type options struct {
	lifecycle Lifecycle
	logger    *zap.Logger
	recorder  ErrorRecorder
}

// WithLifecycle makes the adapter drive lc instead of the process-wide
// scope store.
func WithLifecycle(lc Lifecycle) Option {
	return func(o *options) { o.lifecycle = lc }
}

// WithLogger sets the logger lifecycle failures are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithErrorRecorder counts lifecycle failures.
func WithErrorRecorder(r ErrorRecorder) Option {
	return func(o *options) { o.recorder = r }
}

func newOptions(opts []Option) *options {
	o := &options{lifecycle: gateway{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

func (o *options) failed(op string, r *http.Request, err error) {
	if o.recorder != nil {
		o.recorder.LifecycleError(op)
	}
	o.logger.Error("request scope "+op+" failed",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", chimw.GetReqID(r.Context())),
	)
}
