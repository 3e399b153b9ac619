package inject

import (
	"context"
	"reflect"
)

// Lifetime is the strategy a binding uses to satisfy a key.
type Lifetime int

const (
	// Transient builds a new instance on every resolution.
	Transient Lifetime = iota
	// Scoped builds at most one instance per request scope.
	Scoped
	// Constant always returns the bound value and never touches a scope.
	Constant
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Constant:
		return "constant"
	default:
		return "unknown"
	}
}

// Factory builds a value for a key. ctx is the resolving context: pass it
// on to any nested Make so scoped dependencies land in the same request.
type Factory func(ctx context.Context, c *Container) (any, error)

// Decorator wraps a freshly built instance.
type Decorator func(ctx context.Context, instance any, c *Container) (any, error)

// Binding describes how a key is satisfied.
type Binding struct {
	Key      string
	Lifetime Lifetime
	Factory  Factory
	Value    any

	// loader registers the real binding of a deferred provider.
	loader func(ctx context.Context) error
}

// TypeKey returns the package-qualified name of T, useful as a stable key
// when binding interfaces or struct types. Each pointer level adds a
// leading "*", so T and *T get distinct keys.
//
//	key := inject.TypeKey[UserRepository]()  // "example.com/app.UserRepository"
//	key = inject.TypeKey[*Store]()           // "*example.com/app.Store"
//	c.Scoped(key, factory)
func TypeKey[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	prefix := ""
	for t.Kind() == reflect.Pointer {
		prefix += "*"
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return prefix + t.String()
	}
	return prefix + t.PkgPath() + "." + t.Name()
}
