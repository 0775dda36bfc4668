package migrator_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbviews/dbviews/pkg/migrator"
	"github.com/dbviews/dbviews/pkg/view"
)

// fakeExecer records executed statements. Operations only use ExecContext;
// the query methods exist to satisfy the interface.
type fakeExecer struct {
	executed []string
	failOn   string
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 0, nil }

var errBoom = errors.New("boom")

func (f *fakeExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	if f.failOn != "" && query == f.failOn {
		return nil, errBoom
	}
	f.executed = append(f.executed, query)
	return fakeResult{}, nil
}

func (f *fakeExecer) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("fakeExecer: queries not supported")
}

func (f *fakeExecer) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func TestForwardUsesReplaceOnPostgres(t *testing.T) {
	op, err := migrator.NewForwardOperation("v", "SELECT 2 as id", view.KindView, true, "")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("postgres")))

	require.Len(t, db.executed, 1, "replace path must execute exactly one statement")
	assert.Equal(t, `CREATE OR REPLACE VIEW "v" AS SELECT 2 as id;`, db.executed[0])
}

func TestForwardUsesDropCreateOnSQLite(t *testing.T) {
	op, err := migrator.NewForwardOperation("v", "SELECT 2 as id", view.KindView, true, "")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("sqlite3")))

	require.Len(t, db.executed, 2)
	assert.Equal(t, `DROP VIEW IF EXISTS "v";`, db.executed[0])
	assert.Equal(t, `CREATE VIEW "v" AS SELECT 2 as id;`, db.executed[1])
}

func TestForwardUsesDropCreateWhenReplaceDisabled(t *testing.T) {
	op, err := migrator.NewForwardOperation("v", "SELECT 1", view.KindView, false, "")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("postgres")))

	require.Len(t, db.executed, 2)
	assert.Equal(t, `DROP VIEW IF EXISTS "v";`, db.executed[0])
}

func TestForwardMaterializedNeverReplaces(t *testing.T) {
	op, err := migrator.NewForwardOperation("mv", "SELECT 1", view.KindMaterialized, false, "")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("postgres")))

	require.Len(t, db.executed, 2)
	assert.Equal(t, `DROP MATERIALIZED VIEW IF EXISTS "mv";`, db.executed[0])
	assert.Equal(t, `CREATE MATERIALIZED VIEW "mv" AS SELECT 1;`, db.executed[1])
}

func TestForwardEmptyDefinitionIsNoop(t *testing.T) {
	op, err := migrator.NewForwardOperation("v", "", view.KindView, true, "")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("postgres")))
	assert.Empty(t, db.executed)
}

func TestEngineFilterSkipsOtherEngines(t *testing.T) {
	op, err := migrator.NewForwardOperation("v", "SELECT 1", view.KindView, true, "postgres")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("sqlite3")))
	assert.Empty(t, db.executed, "operation pinned to postgres must not run on sqlite")

	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("postgres")))
	assert.NotEmpty(t, db.executed)
}

func TestBackwardRestoresPreviousDefinition(t *testing.T) {
	op, err := migrator.NewBackwardOperation("v", "SELECT 1 as id", view.KindView, true, "")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("postgres")))

	require.Len(t, db.executed, 1)
	assert.Equal(t, `CREATE OR REPLACE VIEW "v" AS SELECT 1 as id;`, db.executed[0])
}

func TestBackwardWithoutPreviousDropsOnly(t *testing.T) {
	op, err := migrator.NewBackwardOperation("v", "", view.KindView, true, "")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("postgres")))

	require.Len(t, db.executed, 1)
	assert.Equal(t, `DROP VIEW IF EXISTS "v";`, db.executed[0])
}

func TestBackwardHonorsEngineFilter(t *testing.T) {
	op, err := migrator.NewBackwardOperation("v", "", view.KindView, true, "postgres")
	require.NoError(t, err)

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("sqlite3")))
	assert.Empty(t, db.executed)
}

func TestConstructorsRejectMaterializedReplace(t *testing.T) {
	_, err := migrator.NewForwardOperation("mv", "SELECT 1", view.KindMaterialized, true, "")
	require.Error(t, err)
	assert.True(t, view.IsMaterializedReplaceErr(err))

	_, err = migrator.NewBackwardOperation("mv", "SELECT 1", view.KindMaterialized, true, "")
	require.Error(t, err)
	assert.True(t, view.IsMaterializedReplaceErr(err))
}

func TestForwardBackwardRoundTrip(t *testing.T) {
	// Applying forward then backward must land on the previous definition
	// verbatim, on both the replace path and the drop+create path.
	const prev = "SELECT 1 as id"
	const next = "SELECT 2 as id"

	for _, engine := range []string{"postgres", "sqlite3"} {
		t.Run(engine, func(t *testing.T) {
			target := migrator.TargetFor(engine)

			fwd, err := migrator.NewForwardOperation("v", next, view.KindView, true, "")
			require.NoError(t, err)
			bwd, err := migrator.NewBackwardOperation("v", prev, view.KindView, true, "")
			require.NoError(t, err)

			db := &fakeExecer{}
			require.NoError(t, fwd.Apply(context.Background(), db, target))
			require.NoError(t, bwd.Apply(context.Background(), db, target))

			last := db.executed[len(db.executed)-1]
			assert.Contains(t, last, prev, "final statement must restore the previous body")
			assert.NotContains(t, last, next)
		})
	}
}

func TestDropOperation(t *testing.T) {
	op := &migrator.DropOperation{Table: "mv", Kind: view.KindMaterialized}

	db := &fakeExecer{}
	require.NoError(t, op.Apply(context.Background(), db, migrator.TargetFor("postgres")))

	require.Len(t, db.executed, 1)
	assert.Equal(t, `DROP MATERIALIZED VIEW IF EXISTS "mv";`, db.executed[0])
}

func TestIndexOperations(t *testing.T) {
	target := migrator.TargetFor("postgres")
	db := &fakeExecer{}

	drop := &migrator.DropIndexOperation{Table: "mv", Name: "old_idx"}
	require.NoError(t, drop.Apply(context.Background(), db, target))

	create := &migrator.CreateIndexOperation{
		Table: "mv",
		Name:  "mv_id_uniq",
		Spec:  migrator.IndexSpec{Columns: "id", Unique: true, Method: "btree"},
	}
	require.NoError(t, create.Apply(context.Background(), db, target))

	require.Len(t, db.executed, 2)
	assert.Equal(t, `DROP INDEX IF EXISTS "old_idx";`, db.executed[0])
	assert.Equal(t, `CREATE UNIQUE INDEX "mv_id_uniq" ON "mv" USING btree (id);`, db.executed[1])
}

func TestExecutionErrorsPropagate(t *testing.T) {
	op, err := migrator.NewForwardOperation("v", "SELECT 1", view.KindView, true, "")
	require.NoError(t, err)

	db := &fakeExecer{failOn: `CREATE OR REPLACE VIEW "v" AS SELECT 1;`}
	err = op.Apply(context.Background(), db, migrator.TargetFor("postgres"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom), "underlying execution error must stay reachable")
}
