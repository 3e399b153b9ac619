package inject

import (
	"context"
	"fmt"
	"maps"
	"reflect"
)

// Args holds the named arguments passed to an injected function.
type Args map[string]any

// Dependency declares that the parameter Name is satisfied by resolving Key.
type Dependency struct {
	Name string
	Key  string
}

// Param declares one injected parameter.
func Param(name, key string) Dependency {
	return Dependency{Name: name, Key: key}
}

// Inject wraps fn so that, on every call, each declared dependency is
// resolved through the registered injector and passed to fn in args.
// Arguments supplied explicitly by the caller win over injected ones.
//
//	render := inject.Inject(func(ctx context.Context, args inject.Args) (string, error) {
//	    counter, err := inject.Arg[*Counter](args, "counter")
//	    if err != nil {
//	        return "", err
//	    }
//	    return counter.String(), nil
//	}, inject.Param("counter", "counter"))
//
//	out, err := render(ctx, nil)
func Inject[T any](fn func(ctx context.Context, args Args) (T, error), deps ...Dependency) func(ctx context.Context, explicit Args) (T, error) {
	declared := append([]Dependency(nil), deps...)

	return func(ctx context.Context, explicit Args) (T, error) {
		var zero T
		args := make(Args, len(declared)+len(explicit))

		var inj *Injector
		for _, dep := range declared {
			if _, ok := explicit[dep.Name]; ok {
				continue
			}
			if inj == nil {
				var err error
				if inj, err = Active(); err != nil {
					return zero, err
				}
			}
			instance, err := inj.Make(ctx, dep.Key)
			if err != nil {
				return zero, fmt.Errorf("inject: parameter %q: %w", dep.Name, err)
			}
			args[dep.Name] = instance
		}
		maps.Copy(args, explicit)

		return fn(ctx, args)
	}
}

// Arg returns the argument called name as a T.
func Arg[T any](args Args, name string) (T, error) {
	var zero T
	v, ok := args[name]
	if !ok {
		return zero, fmt.Errorf("inject: missing argument %q", name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("inject: argument %q is %T, not %v", name, v, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}
