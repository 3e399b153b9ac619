package inject_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/inject"
)

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	inject.BaseProvider
	registerCalled bool
	bootCalled     bool
}

func (p *eagerProvider) Register(c *inject.Container) {
	p.registerCalled = true
	c.Instance("eager-svc", "eager")
}

func (p *eagerProvider) Boot(context.Context, *inject.Container) error {
	p.bootCalled = true
	return nil
}

// deferredProvider is lazy: only registered when "deferred-svc" is first resolved.
type deferredProvider struct {
	inject.BaseProvider
	registerCalls int
	bootCalled    bool
}

func (p *deferredProvider) Register(c *inject.Container) {
	p.registerCalls++
	c.Scoped("deferred-svc", func(context.Context, *inject.Container) (any, error) {
		return &widget{name: "deferred-value"}, nil
	})
}

func (p *deferredProvider) Boot(context.Context, *inject.Container) error {
	p.bootCalled = true
	return nil
}

func (p *deferredProvider) IsDeferred() bool   { return true }
func (p *deferredProvider) Provides() []string { return []string{"deferred-svc"} }

// liarProvider claims a key it never binds.
type liarProvider struct{ inject.BaseProvider }

func (p *liarProvider) Register(*inject.Container) {}
func (p *liarProvider) IsDeferred() bool           { return true }
func (p *liarProvider) Provides() []string         { return []string{"ghost"} }

type failingBootProvider struct{ inject.BaseProvider }

func (p *failingBootProvider) Register(*inject.Container) {}
func (p *failingBootProvider) Boot(context.Context, *inject.Container) error {
	return errors.New("boot failed")
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_EagerProvider_RegisterCalled(t *testing.T) {
	reg := inject.NewProviderRegistry(inject.NewContainer())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))

	assert.True(t, p.registerCalled)
	assert.True(t, reg.Loaded(p))
}

func TestRegistry_EagerProvider_BootCalledAfterBoot(t *testing.T) {
	reg := inject.NewProviderRegistry(inject.NewContainer())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	assert.False(t, p.bootCalled, "Boot() should NOT be called before registry.Boot()")

	require.NoError(t, reg.Boot(context.Background()))
	assert.True(t, p.bootCalled)
	assert.True(t, reg.Booted())
}

func TestRegistry_Boot_PropagatesError(t *testing.T) {
	reg := inject.NewProviderRegistry(inject.NewContainer())
	require.NoError(t, reg.Register(context.Background(), &failingBootProvider{}))

	assert.EqualError(t, reg.Boot(context.Background()), "boot failed")
}

func TestRegistry_Boot_IdempotentCallsAreIgnored(t *testing.T) {
	reg := inject.NewProviderRegistry(inject.NewContainer())
	require.NoError(t, reg.Register(context.Background(), &eagerProvider{}))

	require.NoError(t, reg.Boot(context.Background()))
	require.NoError(t, reg.Boot(context.Background()))
	assert.True(t, reg.Booted())
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	reg := inject.NewProviderRegistry(inject.NewContainer())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	require.NoError(t, reg.Register(context.Background(), p))

	assert.Len(t, reg.Providers(), 1)
}

func TestRegistry_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	reg := inject.NewProviderRegistry(inject.NewContainer())
	require.NoError(t, reg.Boot(context.Background()))

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	assert.True(t, p.bootCalled)
}

// ── Deferred providers ────────────────────────────────────────────────────────

func TestRegistry_DeferredProvider_NotRegisteredEagerly(t *testing.T) {
	c := inject.NewContainer()
	reg := inject.NewProviderRegistry(c)

	p := &deferredProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	require.NoError(t, reg.Boot(context.Background()))

	assert.Zero(t, p.registerCalls)
	assert.False(t, reg.Loaded(p))
	assert.True(t, c.Bound("deferred-svc"))
	assert.Empty(t, reg.Providers(), "deferred providers are not listed as eager")
}

func TestRegistry_DeferredProvider_RegisteredOnFirstMake(t *testing.T) {
	c, store := newIsolated()
	reg := inject.NewProviderRegistry(c)

	p := &deferredProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	require.NoError(t, reg.Boot(context.Background()))

	ctx, err := store.Start(context.Background())
	require.NoError(t, err)

	a, err := inject.Resolve[*widget](ctx, c, "deferred-svc")
	require.NoError(t, err)
	b, err := inject.Resolve[*widget](ctx, c, "deferred-svc")
	require.NoError(t, err)

	assert.Equal(t, "deferred-value", a.name)
	assert.Same(t, a, b, "the real binding keeps its scoped lifetime")
	assert.Equal(t, 1, p.registerCalls)
	assert.True(t, p.bootCalled)
	require.NoError(t, store.End(ctx))
}

func TestRegistry_DeferredProvider_MissingBinding(t *testing.T) {
	c := inject.NewContainer()
	reg := inject.NewProviderRegistry(c)
	require.NoError(t, reg.Register(context.Background(), &liarProvider{}))

	_, err := c.Make(context.Background(), "ghost")
	assert.ErrorIs(t, err, inject.ErrBindingNotFound)
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p inject.BaseProvider

	assert.NoError(t, p.Boot(context.Background(), inject.NewContainer()))
	assert.False(t, p.IsDeferred())
	assert.Empty(t, p.Provides())
}
