package inject

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// The process-wide injector slot. Only one injector may be active at a time.
var (
	activeMu sync.RWMutex
	active   *Injector
)

// Injector ties a Container to the process-wide slot used by parameter
// injection and by the package-level Make.
//
// Registering while another injector is active fails with
// ErrAlreadyRegistered: the slot is never replaced implicitly, callers must
// Unregister first.
type Injector struct {
	*Container
}

// New creates an injector with an empty container.
func New(opts ...Option) *Injector {
	return &Injector{Container: NewContainer(opts...)}
}

// Register installs i as the active injector.
func (i *Injector) Register() error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil {
		return ErrAlreadyRegistered
	}
	active = i
	i.logger.Debug("injector registered", zap.Int("bindings", len(i.Bindings())))
	return nil
}

// Unregister removes i from the active slot and releases all of its
// bindings. In-flight scopes are untouched.
func (i *Injector) Unregister() error {
	activeMu.Lock()
	if active != i {
		activeMu.Unlock()
		return ErrNotRegistered
	}
	active = nil
	activeMu.Unlock()

	i.Flush()
	i.mu.RLock()
	observers := i.observers
	i.mu.RUnlock()
	for _, o := range observers {
		i.scopes.Unobserve(o)
	}
	i.logger.Debug("injector unregistered")
	return nil
}

// Registered reports whether i is the active injector.
func (i *Injector) Registered() bool {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active == i
}

// Active returns the registered injector.
func Active() (*Injector, error) {
	activeMu.RLock()
	defer activeMu.RUnlock()
	if active == nil {
		return nil, ErrNoInjector
	}
	return active, nil
}

// Make resolves key through the registered injector.
func Make(ctx context.Context, key string) (any, error) {
	inj, err := Active()
	if err != nil {
		return nil, err
	}
	return inj.Make(ctx, key)
}
