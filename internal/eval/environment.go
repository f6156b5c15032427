// Package eval implements the resource manager (C5) and statement
// evaluators (C6): the runtime that walks a parsed statement tree,
// maintains the named-set environment, enforces the per-query cost
// budget, and asks a store.Backend for the underlying map data.
package eval

import "github.com/geoql-project/geoql/pkg/object"

// Environment is the named-set container a single query evaluation owns,
// addressed by short identifiers with "_" as the implicit default.
type Environment struct {
	sets map[string]*object.Set
}

// NewEnvironment returns an Environment with an empty implicit set.
func NewEnvironment() *Environment {
	return &Environment{sets: map[string]*object.Set{"_": object.NewSet()}}
}

// Get returns the named set, or an empty set if it was never written.
func (e *Environment) Get(name string) *object.Set {
	if s, ok := e.sets[name]; ok {
		return s
	}
	return object.NewSet()
}

// Put stores s under name, replacing whatever was there.
func (e *Environment) Put(name string, s *object.Set) {
	e.sets[name] = s
}

// Names returns every set name currently bound, for introspection (docs,
// REPL completion).
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.sets))
	for name := range e.sets {
		names = append(names, name)
	}
	return names
}
