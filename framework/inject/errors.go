package inject

import (
	"errors"
	"fmt"
	"strings"
)

// Lifecycle and setup misuse. These never indicate a transient condition:
// each one is a bug in the adapter or the bootstrap code.
var (
	// ErrBindingNotFound is matched by every *BindingNotFoundError.
	ErrBindingNotFound = errors.New("inject: binding not found")

	// ErrNoRequestStarted is returned when a scoped binding is resolved
	// outside of any request scope.
	ErrNoRequestStarted = errors.New("inject: no request started")

	// ErrScopeAlreadyActive is returned by StartScope when the context
	// already carries a live scope.
	ErrScopeAlreadyActive = errors.New("inject: scope already active")

	// ErrNoActiveScope is returned by EndScope when there is nothing to end.
	ErrNoActiveScope = errors.New("inject: no active scope")

	ErrAlreadyRegistered = errors.New("inject: an injector is already registered")
	ErrNotRegistered     = errors.New("inject: injector is not registered")
	ErrNoInjector        = errors.New("inject: no injector registered")
)

// BindingNotFoundError is returned when a requested key was never bound.
type BindingNotFoundError struct {
	Key string
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("inject: no binding registered for [%s]", e.Key)
}

// Is lets errors.Is(err, ErrBindingNotFound) match.
func (e *BindingNotFoundError) Is(target error) bool {
	return target == ErrBindingNotFound
}

// ResolutionError wraps a failure raised by a factory or a decorator.
type ResolutionError struct {
	Key   string
	Cause error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("inject: failed to resolve [%s]: %v", e.Key, e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// CircularDependencyError reports a key that is requested while it is
// still being built on the same context.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return "inject: circular dependency detected: " + strings.Join(e.Path, " -> ")
}
