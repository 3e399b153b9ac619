package inject

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Disposable is implemented by scoped instances that hold resources.
// Dispose is called when their scope ends, newest instance first.
type Disposable interface {
	Dispose() error
}

// ScopeObserver receives scope lifecycle events.
type ScopeObserver interface {
	ScopeStarted(id uuid.UUID)
	ScopeEnded(id uuid.UUID, instances int)
}

// Scope is the lifetime of one request. It caches one instance per scoped
// key and is owned by the context it was started on.
type Scope struct {
	id uuid.UUID

	mu      sync.Mutex
	entries map[string]*scopedEntry
	order   []any
	closed  bool
}

type scopedEntry struct {
	key string
	mu  sync.Mutex

	// owner is the build chain currently constructing the entry. Guarded
	// by Scope.mu.
	owner *buildChain

	built bool
	value any
}

// buildChain identifies one chain of nested scoped builds. Goroutines
// started by a factory inherit the chain through the context. waiting is
// the entry the chain is blocked on, guarded by Scope.mu.
type buildChain struct {
	waiting *scopedEntry
}

type chainKey struct {
	scope *Scope
}

// chain returns the build chain ctx belongs to in s, starting a new one if
// ctx has none.
func (s *Scope) chain(ctx context.Context) (context.Context, *buildChain) {
	if ch, ok := ctx.Value(chainKey{scope: s}).(*buildChain); ok {
		return ctx, ch
	}
	ch := &buildChain{}
	return context.WithValue(ctx, chainKey{scope: s}, ch), ch
}

// waitCycle reports whether blocking on e would deadlock ch: following the
// owner of e, the entry that owner waits on, and so on, leads back to ch.
// It returns the keys visited. Caller holds s.mu.
func (s *Scope) waitCycle(ch *buildChain, e *scopedEntry) ([]string, bool) {
	var keys []string
	for cur := e; cur != nil && cur.owner != nil && len(keys) <= len(s.entries); cur = cur.owner.waiting {
		keys = append(keys, cur.key)
		if cur.owner == ch {
			return keys, true
		}
	}
	return nil, false
}

func newScope() *Scope {
	return &Scope{
		id:      uuid.New(),
		entries: make(map[string]*scopedEntry),
	}
}

// ID returns the scope identifier.
func (s *Scope) ID() uuid.UUID { return s.id }

// Len returns the number of instances cached so far.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Has reports whether key already has a cached instance.
func (s *Scope) Has(key string) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.built
}

// resolve returns the cached instance for key, building it with build on
// first use. build runs at most once successfully per key; a failed build
// is not cached. Waiting on an entry whose builder in turn waits on this
// chain fails with CircularDependencyError instead of blocking.
func (s *Scope) resolve(ctx context.Context, key string, build func(ctx context.Context) (any, error)) (any, bool, error) {
	ctx, ch := s.chain(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false, ErrNoRequestStarted
	}
	e, ok := s.entries[key]
	if !ok {
		e = &scopedEntry{key: key}
		s.entries[key] = e
	}
	if keys, cycle := s.waitCycle(ch, e); cycle {
		s.mu.Unlock()
		stack, _ := ctx.Value(buildingKey{}).([]string)
		return nil, false, &CircularDependencyError{Path: append(slices.Clone(stack), keys...)}
	}
	ch.waiting = e
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	ch.waiting = nil
	if e.built {
		s.mu.Unlock()
		return e.value, false, nil
	}
	e.owner = ch
	s.mu.Unlock()

	instance, err := build(ctx)

	s.mu.Lock()
	e.owner = nil
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	if s.closed {
		s.mu.Unlock()
		// The request ended while we were building; nobody owns this instance.
		if d, ok := instance.(Disposable); ok {
			_ = d.Dispose()
		}
		return nil, false, ErrNoRequestStarted
	}
	s.order = append(s.order, instance)
	s.mu.Unlock()

	e.value, e.built = instance, true
	return instance, true, nil
}

// close drops every cached instance and disposes the Disposable ones in
// reverse creation order.
func (s *Scope) close() (int, error) {
	s.mu.Lock()
	order := s.order
	s.order = nil
	s.entries = nil
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if d, ok := order[i].(Disposable); ok {
			if err := d.Dispose(); err != nil {
				errs = append(errs, fmt.Errorf("dispose %T: %w", order[i], err))
			}
		}
	}
	return len(order), errors.Join(errs...)
}

// ── ScopeStore ────────────────────────────────────────────────────────────────

// scopeKey carries the scope id in a context. The store pointer keeps ids
// from independent stores apart on the same context.
type scopeKey struct {
	store *ScopeStore
}

// ScopeStore maps request contexts to their live Scope.
//
// A context is bound to a scope by Start, which returns a derived context
// carrying the scope id. Lookups on that context (or any context derived
// from it) see the scope until End is called; after that the id is stale
// and lookups report no scope.
type ScopeStore struct {
	mu        sync.Mutex
	scopes    map[uuid.UUID]*Scope
	observers []ScopeObserver
}

// NewScopeStore creates an empty store.
func NewScopeStore() *ScopeStore {
	return &ScopeStore{scopes: make(map[uuid.UUID]*Scope)}
}

// Observe adds o to the observers notified on Start and End. Adding the same
// observer twice is a no-op.
func (s *ScopeStore) Observe(o ScopeObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.observers {
		if existing == o {
			return
		}
	}
	s.observers = append(s.observers, o)
}

// Unobserve removes o.
func (s *ScopeStore) Unobserve(o ScopeObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]ScopeObserver, 0, len(s.observers))
	for _, existing := range s.observers {
		if existing != o {
			kept = append(kept, existing)
		}
	}
	s.observers = kept
}

// Current returns the live scope bound to ctx.
func (s *ScopeStore) Current(ctx context.Context) (*Scope, bool) {
	id, ok := ctx.Value(scopeKey{store: s}).(uuid.UUID)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	scope, ok := s.scopes[id]
	return scope, ok
}

// Start creates an empty scope and binds it to the returned context.
// It fails with ErrScopeAlreadyActive if ctx already has a live scope.
func (s *ScopeStore) Start(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	key := scopeKey{store: s}

	s.mu.Lock()
	if id, ok := ctx.Value(key).(uuid.UUID); ok {
		if _, live := s.scopes[id]; live {
			s.mu.Unlock()
			return ctx, fmt.Errorf("%w: %s", ErrScopeAlreadyActive, id)
		}
	}
	scope := newScope()
	s.scopes[scope.id] = scope
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.ScopeStarted(scope.id)
	}
	return context.WithValue(ctx, key, scope.id), nil
}

// End detaches the scope bound to ctx and releases its instances. The scope
// is detached even when disposing an instance fails; the disposal errors are
// returned joined. It fails with ErrNoActiveScope if ctx has no live scope.
func (s *ScopeStore) End(ctx context.Context) error {
	if ctx == nil {
		return ErrNoActiveScope
	}
	id, ok := ctx.Value(scopeKey{store: s}).(uuid.UUID)
	if !ok {
		return ErrNoActiveScope
	}

	s.mu.Lock()
	scope, ok := s.scopes[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s already ended", ErrNoActiveScope, id)
	}
	delete(s.scopes, id)
	observers := s.observers
	s.mu.Unlock()

	n, err := scope.close()
	for _, o := range observers {
		o.ScopeEnded(id, n)
	}
	return err
}

// Len returns the number of live scopes.
func (s *ScopeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scopes)
}
