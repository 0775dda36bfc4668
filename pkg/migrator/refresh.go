package migrator

import (
	"context"
	"fmt"
)

// Refresh re-populates a materialized view. With concurrently=true the
// refresh runs without locking out readers, which requires a unique index
// covering all rows; this function does not verify that precondition, the
// engine rejects the statement if it does not hold and the error propagates.
func Refresh(ctx context.Context, db Execer, t Target, table string, concurrently bool) error {
	if _, err := db.ExecContext(ctx, RefreshSQL(t.Quoter, table, concurrently)); err != nil {
		return fmt.Errorf("refreshing materialized view %s: %w", table, err)
	}
	return nil
}
