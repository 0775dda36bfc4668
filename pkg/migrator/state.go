package migrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/dbviews/dbviews/pkg/view"
)

// ComputeDefinitionChecksum returns the SHA-256 hash of a resolved view
// body. Stored alongside the body for cheap change inspection in status
// output; the planner compares full text, not hashes.
func ComputeDefinitionChecksum(definition string) string {
	h := sha256.Sum256([]byte(definition))
	return hex.EncodeToString(h[:])
}

// migrationsTableExists checks for the tracking table without creating it,
// so read-only paths (status, plan) work against untouched databases.
func migrationsTableExists(ctx context.Context, db Execer, engine string) (bool, error) {
	var exists bool
	var err error
	if isPostgres(engine) {
		err = db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM pg_class c
				JOIN pg_namespace n ON n.oid = c.relnamespace
				WHERE c.relname = 'dbviews_migrations'
				AND n.nspname = current_schema()
			)
		`).Scan(&exists)
	} else {
		err = db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM sqlite_master
				WHERE type = 'table' AND name = 'dbviews_migrations'
			)
		`).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("checking dbviews_migrations table: %w", err)
	}
	return exists, nil
}

// loadRecordedState returns the newest recorded row per view table. An
// absent tracking table reads as empty state: every declared view is new.
func loadRecordedState(ctx context.Context, db Execer, engine string) (map[string]RecordedView, error) {
	exists, err := migrationsTableExists(ctx, db, engine)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]RecordedView{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT m.table_name, m.kind, m.definition, m.definition_checksum, m.index_names
		FROM dbviews_migrations m
		WHERE m.id = (
			SELECT MAX(id) FROM dbviews_migrations WHERE table_name = m.table_name
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("querying recorded view state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	state := make(map[string]RecordedView)
	for rows.Next() {
		var (
			rec  RecordedView
			kind string
		)
		if isPostgres(engine) {
			err = rows.Scan(&rec.Table, &kind, &rec.Definition, &rec.Checksum, pq.Array(&rec.IndexNames))
		} else {
			var joined string
			err = rows.Scan(&rec.Table, &kind, &rec.Definition, &rec.Checksum, &joined)
			if joined != "" {
				rec.IndexNames = strings.Split(joined, ",")
			}
		}
		if err != nil {
			return nil, fmt.Errorf("scanning recorded view state: %w", err)
		}
		rec.Kind = view.KindFromString(kind)
		state[rec.Table] = rec
	}
	return state, rows.Err()
}

// recordViewState appends a state row for a view after a successful forward
// application.
func recordViewState(ctx context.Context, db Execer, engine string, rec RecordedView) error {
	var names any
	if isPostgres(engine) {
		names = pq.Array(rec.IndexNames)
	} else {
		names = strings.Join(rec.IndexNames, ",")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO dbviews_migrations (table_name, kind, definition, definition_checksum, index_names)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.Table, rec.Kind.String(), rec.Definition, rec.Checksum, names)
	if err != nil {
		return fmt.Errorf("recording state for view %s: %w", rec.Table, err)
	}
	return nil
}

// deleteViewState removes all state rows for a view, used when a declared
// view disappears and its drop has been applied. Without the delete the
// planner would re-emit the drop forever.
func deleteViewState(ctx context.Context, db Execer, table string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM dbviews_migrations WHERE table_name = $1`, table); err != nil {
		return fmt.Errorf("deleting state for view %s: %w", table, err)
	}
	return nil
}
