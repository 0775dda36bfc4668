// Package manifest loads declarative view manifests from YAML.
//
// A manifest declares the set of views a project manages. Each entry maps to
// a view.Descriptor; loading a manifest populates a view.Registry that the
// migrator diffs against recorded database state.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/dbviews/dbviews/pkg/view"
)

// Manifest is the root document of a views YAML file.
type Manifest struct {
	Views []Entry `json:"views"`
}

// Entry declares a single managed view.
//
// Exactly one of SQL or Engines must be set. Kind defaults to "view";
// UseReplace defaults to true for plain views and must not be set for
// materialized views.
type Entry struct {
	Name         string                    `json:"name"`
	Kind         string                    `json:"kind,omitempty"`
	UseReplace   *bool                     `json:"use_replace,omitempty"`
	SQL          string                    `json:"sql,omitempty"`
	Engines      map[string]string         `json:"engines,omitempty"`
	Dependencies []string                  `json:"dependencies,omitempty"`
	Indexes      map[string]view.IndexSpec `json:"indexes,omitempty"`
}

// Parse decodes a manifest document and validates every entry.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Views) == 0 {
		return nil, fmt.Errorf("parsing manifest: no views declared")
	}
	for i, e := range m.Views {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("view %d (%q): %w", i, e.Name, err)
		}
	}
	return &m, nil
}

func validateEntry(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch e.Kind {
	case "", "view", "materialized":
	default:
		return fmt.Errorf("unknown kind %q (want view or materialized)", e.Kind)
	}
	if e.SQL == "" && len(e.Engines) == 0 {
		return fmt.Errorf("either sql or engines is required")
	}
	if e.SQL != "" && len(e.Engines) > 0 {
		return fmt.Errorf("sql and engines are mutually exclusive")
	}
	if e.Kind == "materialized" && e.UseReplace != nil && *e.UseReplace {
		return fmt.Errorf("use_replace is not valid for materialized views")
	}
	if len(e.Indexes) > 0 && e.Kind != "materialized" {
		return fmt.Errorf("indexes are only valid for materialized views")
	}
	for name, spec := range e.Indexes {
		if name == "" {
			return fmt.Errorf("index name is required")
		}
		if spec.Columns == "" {
			return fmt.Errorf("index %q: columns is required", name)
		}
	}
	return nil
}

// Descriptor converts a validated entry into a view descriptor.
func (e Entry) Descriptor() view.Descriptor {
	var def view.Definition
	if e.SQL != "" {
		def = view.Static(e.SQL)
	} else {
		def = view.PerEngine(e.Engines)
	}

	kind := view.KindFromString(e.Kind)

	useReplace := kind == view.KindView
	if e.UseReplace != nil {
		useReplace = *e.UseReplace
	}

	return view.Descriptor{
		Table:        e.Name,
		Definition:   def,
		Kind:         kind,
		UseReplace:   useReplace,
		Dependencies: append([]string(nil), e.Dependencies...),
		Indexes:      e.Indexes,
	}
}

// Registry builds a registry from the manifest's entries.
func (m *Manifest) Registry() (*view.Registry, error) {
	reg := view.NewRegistry()
	for _, e := range m.Views {
		if err := reg.Register(e.Descriptor()); err != nil {
			return nil, fmt.Errorf("registering view %q: %w", e.Name, err)
		}
	}
	return reg, nil
}

// Load reads a manifest file and returns the registry it declares.
func Load(path string) (*view.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	reg, err := m.Registry()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// LoadDir loads every *.yaml and *.yml manifest in dir into one registry.
// Files merge; a view declared twice across files is a duplicate error.
func LoadDir(dir string) (*view.Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}

	var paths []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		switch filepath.Ext(ent.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, ent.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no manifest files in %s", dir)
	}
	sort.Strings(paths)

	reg := view.NewRegistry()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		m, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, e := range m.Views {
			if err := reg.Register(e.Descriptor()); err != nil {
				return nil, fmt.Errorf("%s: registering view %q: %w", path, e.Name, err)
			}
		}
	}
	return reg, nil
}
