// Package app is the application kernel: it owns the injector, registers
// and boots service providers, and serves HTTP until its context ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/inject"
	"github.com/km-arc/go-inject/framework/logging"
	"github.com/km-arc/go-inject/framework/metrics"
	"github.com/km-arc/go-inject/framework/providers"
	"github.com/km-arc/go-inject/framework/routing"
)

// ErrServed is returned by Serve, Run and Router once the application has
// been served: shutting down unregisters the injector and releases every
// binding, so an Application serves at most once.
var ErrServed = errors.New("app: application already served")

// Application is the top-level application container. It embeds the
// Injector so user code can call app.Scoped(), app.Bind(), app.Make()
// directly.
type Application struct {
	*inject.Injector
	Providers *inject.ProviderRegistry

	cfg    *config.Config
	served atomic.Bool
	closed atomic.Bool
}

// New builds the logger and the injector from cfg and registers the
// framework providers. The injector resolves scoped bindings from a scope
// store of its own; opts are applied after the defaults and may replace it.
func New(cfg *config.Config, opts ...inject.Option) (*Application, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	defaults := []inject.Option{
		inject.WithLogger(logger),
		inject.WithScopeStore(inject.NewScopeStore()),
	}
	inj := inject.New(append(defaults, opts...)...)
	a := &Application{
		Injector:  inj,
		Providers: inject.NewProviderRegistry(inj.Container),
		cfg:       cfg,
	}

	ctx := context.Background()
	for _, p := range []inject.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{},
		&providers.MetricsServiceProvider{Config: cfg.Metrics},
		&providers.RoutingServiceProvider{},
	} {
		if err := a.Providers.Register(ctx, p); err != nil {
			a.detachObservers()
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(ctx context.Context, provider inject.ServiceProvider) error {
	return a.Providers.Register(ctx, provider)
}

// Boot runs the Boot phase on all providers.
func (a *Application) Boot(ctx context.Context) error {
	return a.Providers.Boot(ctx)
}

// Config returns the configuration the application was built with.
func (a *Application) Config() *config.Config { return a.cfg }

// Router returns the router, booting the providers first if needed.
func (a *Application) Router(ctx context.Context) (*routing.Router, error) {
	if a.closed.Load() {
		return nil, ErrServed
	}
	if !a.Providers.Booted() {
		if err := a.Boot(ctx); err != nil {
			a.detachObservers()
			return nil, err
		}
	}
	return inject.Resolve[*routing.Router](ctx, a, providers.RouterKey)
}

// Metrics returns the metrics recorder when metrics are enabled.
func (a *Application) Metrics(ctx context.Context) (*metrics.Recorder, bool) {
	rec, err := inject.Resolve[*metrics.Recorder](ctx, a, providers.MetricsKey)
	return rec, err == nil
}

// detachObservers releases the metrics recorder from the scope store after
// a failed setup.
func (a *Application) detachObservers() {
	if rec, ok := a.Metrics(context.Background()); ok {
		a.Unobserve(rec)
	}
}

// Run listens on the configured port and serves until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.cfg.App.Port)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve boots the application, registers its injector as the active one
// and serves HTTP on ln. When ctx is done the server is shut down within
// the configured timeout and the injector is unregistered. A second call
// fails with ErrServed.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if !a.served.CompareAndSwap(false, true) {
		_ = ln.Close()
		return ErrServed
	}
	router, err := a.Router(ctx)
	if err != nil {
		a.served.Store(false)
		_ = ln.Close()
		return err
	}
	if err := a.Injector.Register(); err != nil {
		a.served.Store(false)
		_ = ln.Close()
		return fmt.Errorf("app: %w", err)
	}
	defer func() {
		a.closed.Store(true)
		if err := a.Unregister(); err != nil {
			a.Logger().Warn("injector unregister failed", zap.Error(err))
		}
		_ = a.Logger().Sync()
	}()

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger().Info("server started",
			zap.String("app", a.cfg.App.Name),
			zap.String("env", a.cfg.App.Env),
			zap.String("addr", ln.Addr().String()),
		)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	a.Logger().Info("server shutting down", zap.Duration("timeout", a.cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return nil
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.cfg.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.cfg.App.Debug }
