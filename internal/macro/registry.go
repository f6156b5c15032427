package macro

import (
	"fmt"

	"go.starlark.net/starlark"
)

// Registry holds the set of macro functions a query's "::eval" calls may
// invoke, keyed by their Starlark function name.
type Registry struct {
	funcs starlark.StringDict
}

// NewRegistry wraps an already-loaded set of Starlark globals as a
// Registry. A nil map produces a registry with no callable functions.
func NewRegistry(funcs starlark.StringDict) *Registry {
	if funcs == nil {
		funcs = starlark.StringDict{}
	}
	return &Registry{funcs: funcs}
}

// Call converts args from Go to Starlark values, invokes the named macro
// with them, and returns its single return value converted back to Go.
func (r *Registry) Call(name string, args []any) (any, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("macro: unknown function %q", name)
	}
	callable, ok := fn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("macro: %q is not callable", name)
	}

	sargs := make(starlark.Tuple, len(args))
	for i, a := range args {
		sv, err := goToStarlark(a)
		if err != nil {
			return nil, fmt.Errorf("macro: argument %d to %q: %w", i, name, err)
		}
		sargs[i] = sv
	}

	thread := &starlark.Thread{
		Name: "macro:" + name,
		Print: func(_ *starlark.Thread, _ string) {
		},
	}
	result, err := starlark.Call(thread, callable, sargs, nil)
	if err != nil {
		return nil, fmt.Errorf("macro: call %q: %w", name, err)
	}
	return starlarkToGo(result)
}

// Has reports whether name is a registered macro function.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}
