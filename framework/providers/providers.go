// Package providers binds the framework services into an injector.
//
// Bound keys:
//
//	"config"   *config.Config (alias "configuration")
//	"logger"   *zap.Logger
//	"metrics"  *metrics.Recorder, when metrics are enabled
//	"router"   *routing.Router, bound at Boot
package providers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/inject"
	"github.com/km-arc/go-inject/framework/metrics"
	"github.com/km-arc/go-inject/framework/middleware"
	"github.com/km-arc/go-inject/framework/routing"
)

// Keys the framework providers bind.
const (
	ConfigKey  = "config"
	LoggerKey  = "logger"
	MetricsKey = "metrics"
	RouterKey  = "router"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the loaded configuration.
type ConfigServiceProvider struct {
	inject.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(c *inject.Container) {
	c.Instance(ConfigKey, p.Config)
	c.Alias(ConfigKey, "configuration")
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the container's own logger, so services log
// through the same sink as the injector.
type LoggingServiceProvider struct {
	inject.BaseProvider
}

func (p *LoggingServiceProvider) Register(c *inject.Container) {
	c.Instance(LoggerKey, c.Logger())
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider creates a Recorder and attaches it to the
// container as an observer. It binds nothing when disabled.
type MetricsServiceProvider struct {
	inject.BaseProvider
	Config config.MetricsConfig
}

func (p *MetricsServiceProvider) Register(c *inject.Container) {
	if !p.Config.Enabled {
		return
	}
	rec := metrics.New()
	c.Observe(rec)
	c.Instance(MetricsKey, rec)
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider builds the router once config, logger and metrics
// are bound. Every route runs inside a request scope of the container.
// The metrics endpoint is mounted when a Recorder is bound.
type RoutingServiceProvider struct {
	inject.BaseProvider
}

func (p *RoutingServiceProvider) Register(*inject.Container) {}

func (p *RoutingServiceProvider) Boot(ctx context.Context, c *inject.Container) error {
	cfg, err := inject.Resolve[*config.Config](ctx, c, ConfigKey)
	if err != nil {
		return fmt.Errorf("routing: %w", err)
	}
	logger, err := inject.Resolve[*zap.Logger](ctx, c, LoggerKey)
	if err != nil {
		return fmt.Errorf("routing: %w", err)
	}

	scope := []middleware.Option{
		middleware.WithLifecycle(c),
		middleware.WithLogger(logger),
	}
	var rec *metrics.Recorder
	if c.Bound(MetricsKey) {
		if rec, err = inject.Resolve[*metrics.Recorder](ctx, c, MetricsKey); err != nil {
			return fmt.Errorf("routing: %w", err)
		}
		scope = append(scope, middleware.WithErrorRecorder(rec))
	}

	router := routing.New(routing.WithLogger(logger), routing.WithScope(scope...))
	if rec != nil {
		router.Handle(cfg.Metrics.Path, rec.Handler())
	}
	c.Instance(RouterKey, router)
	return nil
}
