package migrator

import "strings"

// The dbviews_migrations table records the last applied definition per view.
// Each row is one applied transition; the newest row per table_name is the
// recorded state the planner diffs against.
//
// Two dialect variants exist because the tracker itself must work on every
// engine migrations run against: PostgreSQL gets native arrays and
// timestamptz, everything else (SQLite included) gets portable column types
// with index names joined into a single text column.

var migrationsDDLPostgres = []string{
	`CREATE TABLE IF NOT EXISTS dbviews_migrations (
    id SERIAL PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    table_name TEXT NOT NULL,
    kind VARCHAR(16) NOT NULL,
    definition TEXT NOT NULL,
    definition_checksum VARCHAR(64) NOT NULL,
    index_names TEXT[] NOT NULL DEFAULT '{}'
);`,
	`CREATE INDEX IF NOT EXISTS dbviews_migrations_table_name_idx
    ON dbviews_migrations (table_name, id DESC);`,
}

var migrationsDDLGeneric = []string{
	`CREATE TABLE IF NOT EXISTS dbviews_migrations (
    id INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    table_name TEXT NOT NULL,
    kind TEXT NOT NULL,
    definition TEXT NOT NULL,
    definition_checksum TEXT NOT NULL,
    index_names TEXT NOT NULL DEFAULT ''
);`,
	`CREATE INDEX IF NOT EXISTS dbviews_migrations_table_name_idx
    ON dbviews_migrations (table_name, id);`,
}

// migrationsDDL returns the tracking-table DDL statements for an engine,
// one statement per element so drivers that reject multi-statement strings
// can execute them individually.
func migrationsDDL(engine string) []string {
	if isPostgres(engine) {
		return migrationsDDLPostgres
	}
	return migrationsDDLGeneric
}

func isPostgres(engine string) bool {
	return strings.Contains(engine, "postgres")
}
