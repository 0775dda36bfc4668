package migrator

import (
	"strings"

	"github.com/lib/pq"
)

// Quoter quotes identifiers (table and index names) for a target engine.
// Quoting is injected rather than concatenated inline so a hostile or merely
// unusual object name can never change the shape of a generated statement.
type Quoter interface {
	QuoteName(name string) string
}

// QuoterFunc adapts a function to the Quoter interface.
type QuoterFunc func(name string) string

// QuoteName calls f.
func (f QuoterFunc) QuoteName(name string) string { return f(name) }

// PostgresQuoter quotes identifiers using lib/pq's quoting rules.
var PostgresQuoter Quoter = QuoterFunc(pq.QuoteIdentifier)

// AnsiQuoter double-quotes identifiers, escaping embedded quotes. SQLite and
// most other engines accept ANSI double-quoted identifiers.
var AnsiQuoter Quoter = QuoterFunc(func(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
})

// QuoterFor returns the quoter for an engine identifier.
func QuoterFor(engine string) Quoter {
	if strings.Contains(engine, "postgres") {
		return PostgresQuoter
	}
	return AnsiQuoter
}
