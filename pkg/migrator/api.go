package migrator

import (
	"context"

	"github.com/dbviews/dbviews/pkg/view"
)

// Migrate applies the declared registry to the database in one call.
// This is the recommended high-level API for most applications.
//
// The call is idempotent - safe on every application startup. It loads the
// recorded state from the dbviews_migrations tracking table (creating it if
// needed), plans the forward operations required to converge, applies them -
// atomically, inside a transaction, when db supports BeginTx - and records
// the new state. Materialized view indexes are reconciled against live
// catalog state on engines with an introspector (PostgreSQL out of the box).
//
// Example usage on application startup:
//
//	reg := view.NewRegistry()
//	reg.MustRegister(view.NewView("balance_view", view.Static("SELECT ...")))
//	if err := migrator.Migrate(ctx, db, "postgres", reg); err != nil {
//	    log.Fatalf("view migration failed: %v", err)
//	}
//
// For dry-run scripts, force re-application, or rollback, use Migrator
// directly via NewMigrator.
func Migrate(ctx context.Context, db Execer, engine string, reg *view.Registry) error {
	_, err := NewMigrator(db, engine).Migrate(ctx, reg)
	return err
}

// Plan returns the pending changes for a registry without applying them.
// Useful for change previews and drift checks in CI.
func Plan(ctx context.Context, db Execer, engine string, reg *view.Registry) ([]Change, error) {
	return NewMigrator(db, engine).Plan(ctx, reg)
}
