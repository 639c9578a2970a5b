// Package stdlib provides the Tumble intrinsic registry and the `std`
// introspection module.
package stdlib

import (
	"sort"

	"github.com/tumblelang/tumble/pkg/evaluator"
)

// Registry holds registered intrinsics. It is mutable only while a host is
// assembling it; sessions receive the table and treat it as immutable.
type Registry struct {
	defs map[string]*evaluator.IntrinsicDef
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]*evaluator.IntrinsicDef),
	}
}

// Register adds an intrinsic to the registry.
func (r *Registry) Register(def evaluator.IntrinsicDef) {
	r.defs[def.Name] = &def
}

// Get retrieves an intrinsic by name.
func (r *Registry) Get(name string) *evaluator.IntrinsicDef {
	return r.defs[name]
}

// Table returns the name-to-definition map handed to evaluator.Options.
func (r *Registry) Table() map[string]*evaluator.IntrinsicDef {
	return r.defs
}

// Names returns all registered intrinsic names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults registers the full intrinsic set of the language.
func RegisterDefaults(r *Registry) {
	registerVariadics(r)
	registerConversions(r)
	registerJSON(r)
	registerRNG(r)
	registerIO(r)
}
