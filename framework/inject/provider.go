package inject

import (
	"context"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related bindings.
//
// Every provider must implement at minimum Register().
// Boot() is called after ALL providers have been registered, making it safe
// to resolve other bindings inside Boot().
//
//	type AppServiceProvider struct{ inject.BaseProvider }
//
//	func (p *AppServiceProvider) Register(c *inject.Container) {
//	    c.Scoped("uow", func(ctx context.Context, c *inject.Container) (any, error) {
//	        return NewUnitOfWork(), nil
//	    })
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	// Do NOT resolve other bindings here; use Boot() for that.
	Register(c *Container)

	// Boot is called after all providers are registered.
	Boot(ctx context.Context, c *Container) error

	// Provides returns the keys this provider registers. Only deferred
	// providers need it.
	Provides() []string

	// IsDeferred returns true if this provider should be loaded lazily:
	// only when one of its Provides() keys is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Container) error { return nil }
func (p *BaseProvider) Provides() []string                     { return nil }
func (p *BaseProvider) IsDeferred() bool                       { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers. Providers may be registered from
// several initializers concurrently.
type ProviderRegistry struct {
	c *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	loaded     map[ServiceProvider]bool
	loading    map[ServiceProvider]*sync.Once
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to c.
func NewProviderRegistry(c *Container) *ProviderRegistry {
	return &ProviderRegistry{
		c:          c,
		loaded:     make(map[ServiceProvider]bool),
		loading:    make(map[ServiceProvider]*sync.Once),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method (unless
// deferred). A provider registered after Boot is booted immediately.
func (r *ProviderRegistry) Register(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		r.mu.Unlock()
		r.interceptDeferred(provider)
		return nil
	}

	r.eager = append(r.eager, provider)
	r.loaded[provider] = true
	booted := r.booted
	r.mu.Unlock()

	provider.Register(r.c)
	if booted {
		return provider.Boot(ctx, r.c)
	}
	return nil
}

// interceptDeferred binds a placeholder for each deferred key. The first
// Make of any of them registers (and, once booted, boots) the provider for
// real, which replaces the placeholders.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) {
	for _, key := range provider.Provides() {
		r.c.bindDeferred(key, func(ctx context.Context) error {
			return r.load(ctx, provider)
		})
	}
}

// load registers a deferred provider exactly once. Concurrent first
// resolutions wait for the one doing the work.
func (r *ProviderRegistry) load(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	once, ok := r.loading[provider]
	if !ok {
		once = &sync.Once{}
		r.loading[provider] = once
	}
	r.mu.Unlock()

	var err error
	once.Do(func() {
		provider.Register(r.c)
		r.mu.Lock()
		r.loaded[provider] = true
		booted := r.booted
		r.mu.Unlock()
		if booted {
			err = provider.Boot(ctx, r.c)
		}
	})
	return err
}

// Boot calls Boot() on all eager providers, in registration order.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(ctx, r.c); err != nil {
			return err
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Loaded reports whether provider's Register has run.
func (r *ProviderRegistry) Loaded(provider ServiceProvider) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded[provider]
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
