package migrator

import (
	"regexp"
	"sort"

	"github.com/dbviews/dbviews/pkg/view"
)

// IndexSpec is re-exported from pkg/view so callers working with the
// migrator alone see one coherent API surface.
type IndexSpec = view.IndexSpec

// indexDefPattern extracts the parenthesized column list following the
// access-method clause and an optional trailing partial-index predicate from
// a catalog index definition, e.g.
//
//	CREATE UNIQUE INDEX idx ON t USING btree (col1, col2) WHERE active = true
//
// The column capture stops at the first closing parenthesis, so expression
// indexes with nested parentheses do not match and take the fallback path.
var indexDefPattern = regexp.MustCompile(`USING\s+\w+\s+\(([^)]+)\)(?:\s+WHERE\s+(.*))?$`)

// ParseIndexDefinition extracts the column list and partial-index predicate
// from an index definition as reported by the engine's catalog. Definitions
// that do not match the expected shape degrade to columns = the full
// definition text with no predicate; parsing never fails. A degraded record
// still diffs correctly by name, it just cannot be reproduced verbatim.
func ParseIndexDefinition(def string) (columns, where string) {
	m := indexDefPattern.FindStringSubmatch(def)
	if m == nil {
		return def, ""
	}
	return m[1], m[2]
}

// IndexChange names one index to create together with its desired spec.
type IndexChange struct {
	Name string
	Spec IndexSpec
}

// ReconcilePlan is the outcome of diffing live index state against desired
// state: the named indexes to drop and the indexes to create. All drops are
// ordered before all creates so a name being reused for a structurally new
// index never collides with its predecessor.
type ReconcilePlan struct {
	Drops   []string
	Creates []IndexChange
}

// Empty reports whether the plan changes nothing.
func (p ReconcilePlan) Empty() bool {
	return len(p.Drops) == 0 && len(p.Creates) == 0
}

// Operations converts the plan into executable operations for a table,
// drops first.
func (p ReconcilePlan) Operations(table string) []Operation {
	ops := make([]Operation, 0, len(p.Drops)+len(p.Creates))
	for _, name := range p.Drops {
		ops = append(ops, &DropIndexOperation{Table: table, Name: name})
	}
	for _, c := range p.Creates {
		ops = append(ops, &CreateIndexOperation{Table: table, Name: c.Name, Spec: c.Spec})
	}
	return ops
}

// ReconcileIndexes diffs live indexes against desired indexes by name.
// Indexes present live but not desired are dropped; desired but not live are
// created; names present in both are left untouched. There is no
// update-in-place: a changed index is expressed by renaming it, which
// naturally yields a drop+create pair. Output order is name-sorted within
// each group for deterministic plans.
func ReconcileIndexes(live, desired map[string]IndexSpec) ReconcilePlan {
	var plan ReconcilePlan
	for name := range live {
		if _, ok := desired[name]; !ok {
			plan.Drops = append(plan.Drops, name)
		}
	}
	for name, spec := range desired {
		if _, ok := live[name]; !ok {
			plan.Creates = append(plan.Creates, IndexChange{Name: name, Spec: spec})
		}
	}
	sort.Strings(plan.Drops)
	sort.Slice(plan.Creates, func(i, j int) bool { return plan.Creates[i].Name < plan.Creates[j].Name })
	return plan
}
