package store

import "fmt"

// Factory constructs a Backend from a driver-specific DSN/connection
// string. Concrete backend packages register themselves in their init().
type Factory func(dsn string) (Backend, error)

var factories = map[string]Factory{}

// Register adds a named backend factory. Called from the init() of each
// backend subpackage (memory, duckdb, postgres), mirroring the teacher's
// adapter-registry pattern of dynamic, import-side-effect registration.
func Register(name string, f Factory) {
	factories[name] = f
}

// New constructs the backend registered under name, or an
// UnknownBackendError if no such backend was registered (i.e. its package
// was never imported).
func New(name, dsn string) (Backend, error) {
	f, ok := factories[name]
	if !ok {
		return nil, UnknownBackendError{Name: name}
	}
	return f(dsn)
}

// ListBackends returns the names of every registered backend.
func ListBackends() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// UnknownBackendError is returned by New for an unregistered backend name.
type UnknownBackendError struct {
	Name string
}

func (e UnknownBackendError) Error() string {
	return fmt.Sprintf("store: unknown backend %q (forgot to import its package?)", e.Name)
}
