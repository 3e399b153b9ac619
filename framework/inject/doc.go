// Package inject provides a dependency-injection container with a request
// scope: one instance per scoped key is built lazily and shared for the
// duration of one request, isolated from concurrent requests and released
// when the request ends.
//
// # Lifecycle
//
//  1. Create: inj := inject.New(inject.WithLogger(logger))
//  2. Bind:   inj.Scoped(...), inj.Bind(...), inj.Instance(...)
//  3. Install: inj.Register(), parameter injection resolves through it
//  4. Serve requests: StartScope → resolve → EndScope
//  5. Tear down: inj.Unregister()
//
// Only one injector may be registered at a time. Register fails with
// ErrAlreadyRegistered while another one is active; it never replaces it.
//
// # Bindings
//
//	// Transient: new instance every Make
//	c.Bind("mailer", func(ctx context.Context, c *inject.Container) (any, error) {
//	    return &Mailer{}, nil
//	})
//
//	// Scoped: one instance per request scope
//	c.Scoped("uow", func(ctx context.Context, c *inject.Container) (any, error) {
//	    db, err := inject.Resolve[*sql.DB](ctx, c, "db")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewUnitOfWork(db), nil
//	})
//
//	// Constant
//	c.Instance("config", cfg)
//
// Binding the same key twice replaces the earlier binding.
//
// # Request scope
//
// Go has no goroutine-local storage, so a request is identified by its
// context. StartScope returns a context carrying the new scope; resolve
// scoped keys with that context (or one derived from it) and end the scope
// with it:
//
//	ctx, err := inject.StartScope(r.Context())
//	if err != nil {
//	    return err
//	}
//	defer inject.EndScope(ctx)
//
//	uow, err := inject.Resolve[*UnitOfWork](ctx, c, "uow")
//
// Starting a scope on a context that already has a live one fails with
// ErrScopeAlreadyActive; ending a scope that is not live fails with
// ErrNoActiveScope. Resolving a scoped key with no live scope fails with
// ErrNoRequestStarted.
//
// Scoped instances implementing Disposable are disposed when their scope
// ends, newest first.
//
// # Parameter injection
//
//	handle := inject.Inject(func(ctx context.Context, args inject.Args) (string, error) {
//	    counter, err := inject.Arg[*Counter](args, "counter")
//	    ...
//	}, inject.Param("counter", "counter"))
//
//	out, err := handle(ctx, nil)                              // counter injected
//	out, err = handle(ctx, inject.Args{"counter": myCounter}) // explicit wins
//
// # Service Providers
//
//	type AppServiceProvider struct{ inject.BaseProvider }
//
//	func (p *AppServiceProvider) Register(c *inject.Container) {
//	    c.Scoped("uow", newUnitOfWork)
//	}
//
//	registry := inject.NewProviderRegistry(inj.Container)
//	registry.Register(ctx, &AppServiceProvider{})
//	registry.Boot(ctx)
package inject
