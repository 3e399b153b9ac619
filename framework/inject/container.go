package inject

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Observer receives scope lifecycle events and instance construction events.
type Observer interface {
	ScopeObserver
	InstanceCreated(key string, lifetime Lifetime)
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for binding and resolution events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithScopeStore makes the container resolve scoped bindings from store
// instead of the process-wide default.
func WithScopeStore(store *ScopeStore) Option {
	return func(c *Container) {
		if store != nil {
			c.scopes = store
		}
	}
}

// WithObserver attaches o to the container and to its scope store.
func WithObserver(o Observer) Option {
	return func(c *Container) {
		c.observers = append(c.observers, o)
	}
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the binding registry and resolver.
//
// It supports:
//   - Bind / Scoped / Instance / Alias
//   - Make / Resolve (generic)
//   - Tags (group multiple keys under one tag)
//   - Extend (decorate freshly built instances)
//   - Resolved event callbacks
type Container struct {
	mu sync.RWMutex

	// key → binding
	bindings map[string]*Binding

	// alias → key (canonical)
	aliases map[string]string

	// key → decorators
	extenders map[string][]Decorator

	// tag → []key
	tags map[string][]string

	afterResolving []func(key string, instance any)

	scopes    *ScopeStore
	observers []Observer
	logger    *zap.Logger
}

// NewContainer creates an empty container.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		bindings:  make(map[string]*Binding),
		aliases:   make(map[string]string),
		extenders: make(map[string][]Decorator),
		tags:      make(map[string][]string),
		scopes:    defaultScopes,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, o := range c.observers {
		c.scopes.Observe(o)
	}
	return c
}

// Scopes returns the scope store the container resolves scoped bindings from.
func (c *Container) Scopes() *ScopeStore { return c.scopes }

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// Observe attaches o to the container and to its scope store.
func (c *Container) Observe(o Observer) {
	c.mu.Lock()
	if slices.Contains(c.observers, o) {
		c.mu.Unlock()
		return
	}
	c.observers = append(slices.Clip(c.observers), o)
	c.mu.Unlock()
	c.scopes.Observe(o)
}

// Unobserve detaches o from the container and from its scope store.
func (c *Container) Unobserve(o Observer) {
	c.mu.Lock()
	c.observers = slices.DeleteFunc(slices.Clone(c.observers), func(x Observer) bool { return x == o })
	c.mu.Unlock()
	c.scopes.Unobserve(o)
}

// StartScope begins a request scope on the container's scope store.
func (c *Container) StartScope(ctx context.Context) (context.Context, error) {
	return c.scopes.Start(ctx)
}

// EndScope ends the request scope bound to ctx on the container's scope
// store.
func (c *Container) EndScope(ctx context.Context) error {
	return c.scopes.End(ctx)
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient factory: every Make builds a new instance.
//
//	c.Bind("mailer", func(ctx context.Context, c *inject.Container) (any, error) {
//	    return mail.NewSMTP(), nil
//	})
func (c *Container) Bind(key string, factory Factory) {
	c.bind(&Binding{Key: key, Lifetime: Transient, Factory: factory})
}

// Scoped registers a factory whose result is cached for the lifetime of the
// current request scope. Concurrent resolutions of the same key share one
// build; a dependency cycle between scoped keys built on different
// goroutines of one request fails with CircularDependencyError.
//
//	c.Scoped("uow", func(ctx context.Context, c *inject.Container) (any, error) {
//	    return NewUnitOfWork(), nil
//	})
func (c *Container) Scoped(key string, factory Factory) {
	c.bind(&Binding{Key: key, Lifetime: Scoped, Factory: factory})
}

// Instance registers a pre-built value.
//
//	c.Instance("config", cfg)
func (c *Container) Instance(key string, value any) {
	c.bind(&Binding{Key: key, Lifetime: Constant, Value: value})
}

// bind stores b under its canonical key. Binding a key again replaces the
// previous binding.
func (c *Container) bind(b *Binding) {
	if b.Lifetime != Constant && b.Factory == nil {
		panic(fmt.Sprintf("inject: nil factory for [%s]", b.Key))
	}

	c.mu.Lock()
	key := c.canonical(b.Key)
	_, rebound := c.bindings[key]
	b.Key = key
	c.bindings[key] = b
	c.mu.Unlock()

	c.logger.Debug("binding registered",
		zap.String("key", key),
		zap.Stringer("lifetime", b.Lifetime),
		zap.Bool("rebound", rebound),
	)
}

// Alias registers an alternative name for a key.
//
//	c.Alias("cache", "cacheManager")
func (c *Container) Alias(key, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == alias {
		panic(fmt.Sprintf("inject: [%s] is aliased to itself", key))
	}
	c.aliases[alias] = c.canonical(key)
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates every instance built for key. A constant binding is
// decorated immediately.
//
//	c.Extend("logger", func(ctx context.Context, instance any, c *inject.Container) (any, error) {
//	    return &TimestampLogger{Inner: instance.(*Logger)}, nil
//	})
func (c *Container) Extend(key string, fn Decorator) error {
	c.mu.Lock()
	key = c.canonical(key)
	c.extenders[key] = append(c.extenders[key], fn)
	b, ok := c.bindings[key]
	c.mu.Unlock()

	if !ok || b.Lifetime != Constant {
		return nil
	}
	decorated, err := fn(context.Background(), b.Value, c)
	if err != nil {
		return &ResolutionError{Key: key, Cause: err}
	}
	c.bind(&Binding{Key: key, Lifetime: Constant, Value: decorated})
	return nil
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple keys under a named group.
//
//	c.Tag([]string{"cpuReport", "memReport"}, "reports")
func (c *Container) Tag(keys []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], keys...)
}

// Tagged resolves every key registered under tag, in tagging order.
func (c *Container) Tagged(ctx context.Context, tag string) ([]any, error) {
	c.mu.RLock()
	keys := slices.Clone(c.tags[tag])
	c.mu.RUnlock()

	result := make([]any, 0, len(keys))
	for _, key := range keys {
		instance, err := c.Make(ctx, key)
		if err != nil {
			return nil, err
		}
		result = append(result, instance)
	}
	return result, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Lookup returns the binding registered for key.
func (c *Container) Lookup(key string) (Binding, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[c.canonical(key)]
	if !ok {
		return Binding{}, &BindingNotFoundError{Key: key}
	}
	return *b, nil
}

// Make resolves key.
//
// Constant bindings return their value. Transient bindings build a new
// instance. Scoped bindings return the instance cached in the request scope
// bound to ctx, building it on first use, and fail with ErrNoRequestStarted
// when ctx carries no live scope.
func (c *Container) Make(ctx context.Context, key string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := c.Lookup(key)
	if err != nil {
		return nil, err
	}
	if path, cycle := buildingPath(ctx, b.Key); cycle {
		return nil, &CircularDependencyError{Path: path}
	}
	if b.loader != nil {
		return c.makeDeferred(ctx, b)
	}

	switch b.Lifetime {
	case Constant:
		return b.Value, nil

	case Transient:
		return c.build(ctx, b)

	case Scoped:
		scope, ok := c.scopes.Current(ctx)
		if !ok {
			return nil, fmt.Errorf("%w: [%s] is request-scoped", ErrNoRequestStarted, b.Key)
		}
		instance, _, err := scope.resolve(ctx, b.Key, func(ctx context.Context) (any, error) {
			return c.build(ctx, b)
		})
		if err != nil {
			return nil, err
		}
		return instance, nil

	default:
		return nil, fmt.Errorf("inject: unknown lifetime %d for [%s]", b.Lifetime, b.Key)
	}
}

// makeDeferred loads the provider behind a deferred key, then resolves the
// binding it registered.
func (c *Container) makeDeferred(ctx context.Context, b Binding) (any, error) {
	if err := b.loader(ctx); err != nil {
		return nil, &ResolutionError{Key: b.Key, Cause: err}
	}
	next, err := c.Lookup(b.Key)
	if err != nil {
		return nil, err
	}
	if next.loader != nil {
		return nil, &BindingNotFoundError{Key: b.Key}
	}
	return c.Make(ctx, b.Key)
}

// bindDeferred binds a placeholder for key that runs loader on first use.
func (c *Container) bindDeferred(key string, loader func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key = c.canonical(key)
	c.bindings[key] = &Binding{Key: key, Lifetime: Transient, loader: loader}
}

// build runs the factory and decorators for b.
func (c *Container) build(ctx context.Context, b Binding) (any, error) {
	instance, err := b.Factory(withBuilding(ctx, b.Key), c)
	if err != nil {
		return nil, &ResolutionError{Key: b.Key, Cause: err}
	}

	c.mu.RLock()
	exts := slices.Clone(c.extenders[b.Key])
	cbs := slices.Clone(c.afterResolving)
	observers := c.observers
	c.mu.RUnlock()

	for _, ext := range exts {
		if instance, err = ext(ctx, instance, c); err != nil {
			return nil, &ResolutionError{Key: b.Key, Cause: err}
		}
	}

	for _, o := range observers {
		o.InstanceCreated(b.Key, b.Lifetime)
	}
	for _, cb := range cbs {
		cb(b.Key, instance)
	}
	return instance, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound returns true if key has been registered.
func (c *Container) Bound(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bindings[c.canonical(key)]
	return ok
}

// Forget removes the binding for key.
func (c *Container) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key = c.canonical(key)
	delete(c.bindings, key)
	delete(c.extenders, key)
}

// Flush resets the entire container. Live scopes are left alone: instances
// they already cache stay reachable until their scope ends.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = make(map[string]*Binding)
	c.aliases = make(map[string]string)
	c.extenders = make(map[string][]Decorator)
	c.tags = make(map[string][]string)
	c.afterResolving = nil
}

// Bindings returns all registered keys, sorted.
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings))
	for k := range c.bindings {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// canonical resolves an alias to its canonical key (caller holds mu).
func (c *Container) canonical(key string) string {
	if target, ok := c.aliases[key]; ok {
		return target
	}
	return key
}

// AfterResolving registers a callback fired after every instance is built.
// Cache hits on a scope do not fire it.
func (c *Container) AfterResolving(cb func(key string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

// ── Build stack ───────────────────────────────────────────────────────────────

type buildingKey struct{}

// withBuilding returns ctx with key pushed on the stack of keys under
// construction.
func withBuilding(ctx context.Context, key string) context.Context {
	stack, _ := ctx.Value(buildingKey{}).([]string)
	next := make([]string, len(stack)+1)
	copy(next, stack)
	next[len(stack)] = key
	return context.WithValue(ctx, buildingKey{}, next)
}

// buildingPath reports whether key is already under construction on ctx and
// returns the cycle path when it is.
func buildingPath(ctx context.Context, key string) ([]string, bool) {
	stack, _ := ctx.Value(buildingKey{}).([]string)
	i := slices.Index(stack, key)
	if i < 0 {
		return nil, false
	}
	return append(slices.Clone(stack[i:]), key), true
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Maker is anything that resolves keys: *Container and *Injector.
type Maker interface {
	Make(ctx context.Context, key string) (any, error)
}

// Resolve calls Make and type-asserts the result.
//
//	repo, err := inject.Resolve[*UserRepository](ctx, c, "users")
func Resolve[T any](ctx context.Context, m Maker, key string) (T, error) {
	var zero T
	instance, err := m.Make(ctx, key)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("inject: [%s] resolved to %T, not %v", key, instance, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](ctx context.Context, m Maker, key string) T {
	typed, err := Resolve[T](ctx, m, key)
	if err != nil {
		panic(err)
	}
	return typed
}
