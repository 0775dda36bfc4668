// Package main provides a CLI for managing database views declaratively.
//
// The CLI supports:
//   - validate: Check view manifest syntax without touching a database
//   - plan: Print the SQL a migration would run
//   - migrate: Apply declared views to the database
//   - status: Check current migration state
//   - refresh: Refresh a materialized view
//
// This tool is typically run during development and deployment to keep
// database views synchronized with the view manifest.
//
// Usage:
//
//	dbviews [flags] <command>
//
// Commands that require database access (migrate, plan, status, refresh)
// need --db or a configured database. Commands that only work with files
// (validate, config) do not need database access.
package main

func main() {
	Execute()
}
