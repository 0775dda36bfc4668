package migrator

import (
	"context"
	"fmt"
)

// IndexIntrospector reports the live indexes on a table. The migrator ships
// a PostgreSQL implementation; any engine-specific adapter that produces the
// same name -> spec mapping plugs into index reconciliation unchanged.
type IndexIntrospector interface {
	TableIndexes(ctx context.Context, table string) (map[string]IndexSpec, error)
}

// PostgresIntrospector reads index state from the PostgreSQL system
// catalogs.
type PostgresIntrospector struct {
	db Execer
}

// NewPostgresIntrospector returns an introspector over db.
func NewPostgresIntrospector(db Execer) *PostgresIntrospector {
	return &PostgresIntrospector{db: db}
}

// TableIndexes returns every index on the named table in the current schema,
// keyed by index name. Column lists and partial-index predicates are parsed
// out of pg_get_indexdef output; unparseable definitions degrade per
// ParseIndexDefinition rather than failing the introspection.
func (p *PostgresIntrospector) TableIndexes(ctx context.Context, table string) (map[string]IndexSpec, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT
			i.indexname AS index_name,
			pg_get_indexdef(idx.indexrelid) AS index_definition,
			idx.indisunique AS is_unique,
			am.amname AS index_method
		FROM
			pg_indexes i
			JOIN pg_class c ON c.relname = i.tablename
			JOIN pg_index idx ON idx.indrelid = c.oid
			JOIN pg_class ic ON ic.oid = idx.indexrelid AND ic.relname = i.indexname
			JOIN pg_am am ON am.oid = ic.relam
		WHERE
			i.schemaname = current_schema()
			AND i.tablename = $1
		ORDER BY
			i.indexname
	`, table)
	if err != nil {
		return nil, fmt.Errorf("introspecting indexes on %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	indexes := make(map[string]IndexSpec)
	for rows.Next() {
		var (
			name, def, method string
			unique            bool
		)
		if err := rows.Scan(&name, &def, &unique, &method); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		columns, where := ParseIndexDefinition(def)
		indexes[name] = IndexSpec{
			Columns: columns,
			Unique:  unique,
			Method:  method,
			Where:   where,
		}
	}
	return indexes, rows.Err()
}
