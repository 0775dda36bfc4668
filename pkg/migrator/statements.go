package migrator

import (
	"fmt"
	"strings"

	"github.com/dbviews/dbviews/pkg/view"
)

// Statement builders for each (kind, verb) pair. Every builder takes the
// object name unquoted and runs it through the injected Quoter; view bodies
// are declared SQL and pass through verbatim.

// KindHasReplace reports whether the kind has a REPLACE statement form.
// Materialized views do not, on any engine.
func KindHasReplace(kind view.Kind) bool {
	return kind != view.KindMaterialized
}

// DropViewSQL builds the idempotent drop statement for a view kind.
func DropViewSQL(q Quoter, kind view.Kind, table string) string {
	if kind == view.KindMaterialized {
		return fmt.Sprintf("DROP MATERIALIZED VIEW IF EXISTS %s;", q.QuoteName(table))
	}
	return fmt.Sprintf("DROP VIEW IF EXISTS %s;", q.QuoteName(table))
}

// CreateViewSQL builds the plain create statement for a view kind.
func CreateViewSQL(q Quoter, kind view.Kind, table, body string) string {
	if kind == view.KindMaterialized {
		return fmt.Sprintf("CREATE MATERIALIZED VIEW %s AS %s;", q.QuoteName(table), body)
	}
	return fmt.Sprintf("CREATE VIEW %s AS %s;", q.QuoteName(table), body)
}

// ReplaceViewSQL builds the atomic create-or-replace statement. Only valid
// for kinds where KindHasReplace is true.
func ReplaceViewSQL(q Quoter, table, body string) string {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s;", q.QuoteName(table), body)
}

// CreateIndexSQL builds a create statement from a desired index spec.
// Columns and Where are declared expression text and pass through verbatim.
func CreateIndexSQL(q Quoter, table, name string, spec IndexSpec) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if spec.Unique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s", q.QuoteName(name), q.QuoteName(table))
	if spec.Method != "" {
		fmt.Fprintf(&b, " USING %s", spec.Method)
	}
	fmt.Fprintf(&b, " (%s)", spec.Columns)
	if spec.Where != "" {
		fmt.Fprintf(&b, " WHERE %s", spec.Where)
	}
	b.WriteString(";")
	return b.String()
}

// DropIndexSQL builds the idempotent index drop statement.
func DropIndexSQL(q Quoter, name string) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s;", q.QuoteName(name))
}

// RefreshSQL builds the refresh statement for a materialized view.
// Concurrent refresh requires a unique index on the view; the engine rejects
// it otherwise and the error propagates to the caller.
func RefreshSQL(q Quoter, table string, concurrently bool) string {
	if concurrently {
		return fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s;", q.QuoteName(table))
	}
	return fmt.Sprintf("REFRESH MATERIALIZED VIEW %s;", q.QuoteName(table))
}
