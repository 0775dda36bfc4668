package migrator

import (
	"strings"

	"github.com/dbviews/dbviews/pkg/view"
)

// ShouldReplace decides whether a view transition uses a single atomic
// CREATE OR REPLACE statement or a DROP followed by CREATE. It is the single
// source of truth consulted by both forward and backward operations, which
// is what makes rolling forward and backward across the same engine
// symmetric.
//
// The rules, in order:
//
//  1. Materialized views have no REPLACE statement form; always false.
//  2. The caller explicitly opted out via useReplace=false; false.
//  3. SQLite does not support CREATE OR REPLACE VIEW; false for any engine
//     identifier containing "sqlite".
//  4. Every other engine is trusted to support it. If an exotic engine does
//     not, the caller opts out with useReplace=false.
//
// The function is total and side-effect-free.
func ShouldReplace(kind view.Kind, useReplace bool, engine string) bool {
	if kind == view.KindMaterialized {
		return false
	}
	if !useReplace {
		return false
	}
	if strings.Contains(engine, "sqlite") {
		return false
	}
	return true
}
