package view

import (
	"fmt"
	"sort"
)

// Registry holds the declared view descriptors for a process, keyed by table
// name. Populate it once at startup via Register; it replaces the implicit
// global registry pattern where declaring a model type registered it as a
// side effect.
type Registry struct {
	views map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]Descriptor)}
}

// Register adds a descriptor to the registry. It rejects duplicate table
// names, descriptors without a table or definition, and materialized views
// requesting replace migrations.
func (r *Registry) Register(d Descriptor) error {
	if d.Table == "" {
		return fmt.Errorf("%w: empty table name", ErrInvalidDescriptor)
	}
	if d.Definition == nil {
		return fmt.Errorf("%w: view %q has no definition", ErrInvalidDescriptor, d.Table)
	}
	if d.Kind == KindMaterialized && d.UseReplace {
		return fmt.Errorf("%w: view %q", ErrMaterializedReplace, d.Table)
	}
	if _, exists := r.views[d.Table]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateView, d.Table)
	}
	r.views[d.Table] = d
	return nil
}

// MustRegister is Register that panics on error. Intended for package-level
// startup wiring where a bad declaration should abort the process.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for a table name.
func (r *Registry) Lookup(table string) (Descriptor, bool) {
	d, ok := r.views[table]
	return d, ok
}

// Len returns the number of registered views.
func (r *Registry) Len() int {
	return len(r.views)
}

// Tables returns all registered table names in application order:
// dependencies before dependents, name-sorted within ties. Dependencies that
// are not themselves registered views (ordinary tables) are ignored for
// ordering purposes. Cyclic declarations fall back to name order for the
// remainder rather than failing; cycles between views are a declaration
// bug the database will reject on its own.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	sort.Strings(names)

	// Kahn's algorithm over the dependency edges between registered views,
	// always picking the lexicographically smallest ready node so the
	// result is deterministic.
	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names))
	for _, name := range names {
		indegree[name] = 0
	}
	for _, name := range names {
		for _, dep := range r.views[name].Dependencies {
			if _, ok := r.views[dep]; !ok {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for _, name := range names {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	ordered := make([]string, 0, len(names))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)

		var unlocked []string
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	// Anything left participates in a cycle; append in name order.
	if len(ordered) < len(names) {
		seen := make(map[string]bool, len(ordered))
		for _, name := range ordered {
			seen[name] = true
		}
		for _, name := range names {
			if !seen[name] {
				ordered = append(ordered, name)
			}
		}
	}

	return ordered
}

// Descriptors returns all registered descriptors in Tables order.
func (r *Registry) Descriptors() []Descriptor {
	tables := r.Tables()
	out := make([]Descriptor, 0, len(tables))
	for _, name := range tables {
		out = append(out, r.views[name])
	}
	return out
}
