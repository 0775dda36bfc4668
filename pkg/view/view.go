// Package view provides the declarative data model for database views and
// materialized views managed by dbviews.
//
// Applications describe each view as a Descriptor: a table name, a SQL
// definition (optionally varying per database engine), a kind, and - for
// materialized views - the set of indexes that should exist on the backing
// table. Descriptors are collected in a Registry at process start and
// consumed by the migrator package, which diffs them against recorded state
// and produces migration operations.
//
// # Definitions
//
// A view body is declared through one of three Definition variants:
//
//	view.Static("SELECT 1 AS id")                  // same SQL on every engine
//	view.PerEngine{"postgres": "...", "sqlite3": "..."}
//	view.Computed(func(engine string) string { ... })
//
// Resolve returns ok=false for an engine with no matching body. That is not
// an error: the migrator skips the view on that engine entirely.
//
// # Registry
//
// The Registry replaces implicit registration-by-declaration with explicit
// calls:
//
//	reg := view.NewRegistry()
//	err := reg.Register(view.NewView("balance_view", view.Static("SELECT ...")))
//
// Registration is expected to happen once at startup; the registry is not
// safe for concurrent mutation.
package view

// Kind discriminates plain views from materialized views. The distinction
// drives the migration strategy: plain views may be swapped atomically with
// CREATE OR REPLACE, materialized views never can.
type Kind int

const (
	// KindView is a plain (non-materialized) view.
	KindView Kind = iota

	// KindMaterialized is a materialized view. Materialized views have no
	// REPLACE statement form and carry a desired index set.
	KindMaterialized
)

// String returns the kind name used in recorded state and CLI output.
func (k Kind) String() string {
	switch k {
	case KindMaterialized:
		return "materialized"
	default:
		return "view"
	}
}

// KindFromString parses a kind name produced by Kind.String.
// Unknown values map to KindView.
func KindFromString(s string) Kind {
	if s == "materialized" {
		return KindMaterialized
	}
	return KindView
}

// Definition resolves a declared view body for a target engine.
// Implementations are Static, PerEngine, and Computed.
type Definition interface {
	// Resolve returns the SQL body for the given engine. ok is false when
	// the definition has no body for that engine; callers treat that as
	// "skip this view on this engine", never as an error.
	Resolve(engine string) (sql string, ok bool)
}

// Static is a fixed SQL body that applies to every engine.
type Static string

// Resolve returns the body unconditionally; an empty body resolves to ok=false.
func (s Static) Resolve(string) (string, bool) {
	if s == "" {
		return "", false
	}
	return string(s), true
}

// PerEngine maps engine identifiers to SQL bodies. Engines without an entry
// are skipped.
type PerEngine map[string]string

// Resolve looks up the body for the exact engine identifier.
func (m PerEngine) Resolve(engine string) (string, bool) {
	sql, ok := m[engine]
	if !ok || sql == "" {
		return "", false
	}
	return sql, true
}

// Computed derives the SQL body from the engine identifier at resolution
// time. Returning an empty string skips the engine.
type Computed func(engine string) string

// Resolve invokes the function; an empty result resolves to ok=false.
func (f Computed) Resolve(engine string) (string, bool) {
	sql := f(engine)
	if sql == "" {
		return "", false
	}
	return sql, true
}

// IndexSpec describes one desired index on a materialized view's backing
// table. The same shape is produced by catalog introspection, so desired and
// live state diff directly against each other.
type IndexSpec struct {
	// Columns is the raw column or expression list, e.g. "col1, col2".
	// When introspection cannot parse an index definition it degrades to
	// the full definition text here.
	Columns string `json:"columns"`

	// Unique marks a unique index.
	Unique bool `json:"unique,omitempty"`

	// Method is the index access method (btree, gin, gist, hash, ...).
	// Empty means the engine default.
	Method string `json:"method,omitempty"`

	// Where is the partial-index predicate, without the WHERE keyword.
	// Empty means the index is not partial.
	Where string `json:"where,omitempty"`
}

// Descriptor declares one managed view. Descriptors are immutable after
// registration; mutate copies in tests to simulate definition changes.
type Descriptor struct {
	// Table is the view's relation name, unique within a registry.
	Table string

	// Definition supplies the SQL body, possibly per engine.
	Definition Definition

	// Kind selects view or materialized view semantics.
	Kind Kind

	// UseReplace requests CREATE OR REPLACE for definition changes where the
	// engine supports it. Must be false for materialized views.
	UseReplace bool

	// Dependencies lists tables this view selects from. The planner uses
	// them to order operations; they are not otherwise enforced.
	Dependencies []string

	// Indexes is the desired index set for a materialized view's backing
	// table, keyed by index name. Ignored for plain views.
	Indexes map[string]IndexSpec
}

// NewView returns a plain view descriptor with replace migrations enabled,
// the default for views.
func NewView(table string, def Definition) Descriptor {
	return Descriptor{
		Table:      table,
		Definition: def,
		Kind:       KindView,
		UseReplace: true,
	}
}

// NewMaterializedView returns a materialized view descriptor. Replace
// migrations are unconditionally disabled for this kind.
func NewMaterializedView(table string, def Definition) Descriptor {
	return Descriptor{
		Table:      table,
		Definition: def,
		Kind:       KindMaterialized,
		UseReplace: false,
	}
}
