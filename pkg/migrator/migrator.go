package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/dbviews/dbviews/pkg/view"
)

// Migrator applies declared view state to one database. It diffs the
// registry against the dbviews_migrations tracking table, executes the
// resulting forward operations, reconciles materialized view indexes against
// live catalog state, and records the new state.
//
// The migrator is idempotent - running it repeatedly with an unchanged
// registry applies nothing.
//
// # Usage
//
// Use the convenience functions in this package for most cases:
//
//	err := migrator.Migrate(ctx, db, "postgres", registry)
//
// Use the Migrator directly for plans, rollbacks, dry runs, or status:
//
//	m := migrator.NewMigrator(db, "postgres")
//	changes, err := m.MigrateWithOptions(ctx, registry, migrator.Options{Force: true})
type Migrator struct {
	db           Execer
	engine       string
	target       Target
	introspector IndexIntrospector
}

// NewMigrator creates a migrator for one engine connection. The Execer is
// typically *sql.DB but can be *sql.Tx when the caller manages the
// transaction. PostgreSQL engines get catalog index introspection wired in
// automatically; other engines skip index reconciliation unless an
// introspector is supplied via NewMigratorWithIntrospector.
func NewMigrator(db Execer, engine string) *Migrator {
	m := &Migrator{db: db, engine: engine, target: TargetFor(engine)}
	if isPostgres(engine) {
		m.introspector = NewPostgresIntrospector(db)
	}
	return m
}

// NewMigratorWithIntrospector creates a migrator with a custom catalog
// adapter. Any adapter producing the name -> IndexSpec shape works.
func NewMigratorWithIntrospector(db Execer, engine string, in IndexIntrospector) *Migrator {
	return &Migrator{db: db, engine: engine, target: TargetFor(engine), introspector: in}
}

// Engine returns the engine identifier the migrator plans for.
func (m *Migrator) Engine() string { return m.engine }

// Target returns the execution target (engine + quoter).
func (m *Migrator) Target() Target { return m.target }

// Options controls migration behavior.
type Options struct {
	// DryRun writes the migration SQL to the provided writer without
	// applying anything. Use for previewing or generating migration scripts.
	DryRun io.Writer

	// Force re-applies every declared view even when its recorded definition
	// is unchanged. Use when live objects were modified out of band.
	Force bool
}

// Plan returns the changes needed to converge the database on the declared
// registry, without applying anything.
func (m *Migrator) Plan(ctx context.Context, reg *view.Registry) ([]Change, error) {
	previous, err := loadRecordedState(ctx, m.db, m.engine)
	if err != nil {
		return nil, err
	}
	return PlanChanges(previous, reg, m.engine)
}

// Migrate plans and applies all pending changes. Returns the changes that
// were applied; nil means the database was already in sync.
func (m *Migrator) Migrate(ctx context.Context, reg *view.Registry) ([]Change, error) {
	return m.MigrateWithOptions(ctx, reg, Options{})
}

// MigrateWithOptions plans and applies pending changes with dry-run and
// force control. When the Execer supports BeginTx the whole run - DDL,
// view operations, index reconciliation, and state recording - commits
// atomically; otherwise operations apply directly and a failure leaves
// whatever partial state the failing statement produced.
func (m *Migrator) MigrateWithOptions(ctx context.Context, reg *view.Registry, opts Options) ([]Change, error) {
	previous, err := loadRecordedState(ctx, m.db, m.engine)
	if err != nil {
		return nil, err
	}
	changes, err := planChanges(previous, reg, m.engine, opts.Force)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}

	if opts.DryRun != nil {
		if err := m.outputDryRun(ctx, opts.DryRun, changes); err != nil {
			return nil, err
		}
		return changes, nil
	}

	if txer, ok := m.db.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	}); ok {
		tx, err := txer.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("starting transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := m.applyForward(ctx, tx, changes); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing migration: %w", err)
		}
		return changes, nil
	}

	// Fall back to non-transactional (for *sql.Conn).
	if err := m.applyForward(ctx, m.db, changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// Rollback applies the backward operations of previously planned changes in
// reverse order and restores the recorded state they superseded. Pair it
// with the change list returned by Migrate to undo a run.
func (m *Migrator) Rollback(ctx context.Context, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	if txer, ok := m.db.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	}); ok {
		tx, err := txer.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := m.applyBackward(ctx, tx, changes); err != nil {
			return err
		}
		return tx.Commit()
	}

	return m.applyBackward(ctx, m.db, changes)
}

// Refresh re-populates a materialized view through the migrator's target.
func (m *Migrator) Refresh(ctx context.Context, table string, concurrently bool) error {
	return Refresh(ctx, m.db, m.target, table, concurrently)
}

// applyForward runs all changes in order against db: index drops, then the
// view's own operations, then index creates, then the state row.
func (m *Migrator) applyForward(ctx context.Context, db Execer, changes []Change) error {
	for _, stmt := range migrationsDDL(m.engine) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying migrations DDL: %w", err)
		}
	}

	for _, change := range changes {
		plan, err := m.reconcilePlan(ctx, db, change)
		if err != nil {
			return err
		}

		for _, name := range plan.Drops {
			op := &DropIndexOperation{Table: change.Table, Name: name}
			if err := op.Apply(ctx, db, m.target); err != nil {
				return err
			}
		}
		for _, op := range change.Forward {
			if err := op.Apply(ctx, db, m.target); err != nil {
				return err
			}
		}
		for _, c := range plan.Creates {
			op := &CreateIndexOperation{Table: change.Table, Name: c.Name, Spec: c.Spec}
			if err := op.Apply(ctx, db, m.target); err != nil {
				return err
			}
		}

		if change.Removed {
			if err := deleteViewState(ctx, db, change.Table); err != nil {
				return err
			}
			continue
		}
		rec := RecordedView{
			Table:      change.Table,
			Kind:       change.Kind,
			Definition: change.NewDefinition,
			Checksum:   ComputeDefinitionChecksum(change.NewDefinition),
			IndexNames: desiredNames(change.DesiredIndexes),
		}
		if err := recordViewState(ctx, db, m.engine, rec); err != nil {
			return err
		}
	}
	return nil
}

// applyBackward undoes changes newest-first and rewrites state to what each
// change superseded. Index state is not rebuilt here; recreating a dropped
// materialized view leaves index convergence to the next forward run.
func (m *Migrator) applyBackward(ctx context.Context, db Execer, changes []Change) error {
	for i := len(changes) - 1; i >= 0; i-- {
		change := changes[i]
		for _, op := range change.Backward {
			if err := op.Apply(ctx, db, m.target); err != nil {
				return err
			}
		}

		if err := deleteViewState(ctx, db, change.Table); err != nil {
			return err
		}
		if change.Previous != nil {
			if err := recordViewState(ctx, db, m.engine, *change.Previous); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcilePlan computes the index drop/create plan for a change. Only
// materialized view changes with a desired index set and an available
// introspector reconcile; everything else gets an empty plan. A view that
// does not exist yet introspects to an empty live set, so creation and
// reconciliation share one code path.
func (m *Migrator) reconcilePlan(ctx context.Context, db Execer, change Change) (ReconcilePlan, error) {
	if change.DesiredIndexes == nil || m.introspector == nil {
		return ReconcilePlan{}, nil
	}
	live, err := m.introspector.TableIndexes(ctx, change.Table)
	if err != nil {
		return ReconcilePlan{}, err
	}
	plan := ReconcileIndexes(live, change.DesiredIndexes)
	if len(change.Forward) > 0 {
		// Materialized views never replace, so a non-empty Forward drops and
		// recreates the view, taking every live index with it. The full
		// desired set must be rebuilt afterwards, not just the live diff.
		plan.Creates = plan.Creates[:0]
		for _, name := range desiredNames(change.DesiredIndexes) {
			plan.Creates = append(plan.Creates, IndexChange{Name: name, Spec: change.DesiredIndexes[name]})
		}
	}
	return plan, nil
}

// outputDryRun writes the full migration script to w without executing
// anything. Index reconciliation still reads live catalog state, so the
// script matches what an apply would do right now.
func (m *Migrator) outputDryRun(ctx context.Context, w io.Writer, changes []Change) error {
	fmt.Fprintf(w, "-- dbviews migration plan (dry-run)\n")
	fmt.Fprintf(w, "-- Engine: %s\n\n", m.engine)
	for _, stmt := range migrationsDDL(m.engine) {
		fmt.Fprintf(w, "%s\n", stmt)
	}
	fmt.Fprintf(w, "\n")

	for _, change := range changes {
		fmt.Fprintf(w, "-- %s %s\n", change.Kind, change.Table)

		plan, err := m.reconcilePlan(ctx, m.db, change)
		if err != nil {
			return err
		}
		for _, name := range plan.Drops {
			fmt.Fprintf(w, "%s\n", DropIndexSQL(m.target.Quoter, name))
		}
		for _, op := range change.Forward {
			for _, stmt := range op.Statements(m.target) {
				fmt.Fprintf(w, "%s\n", stmt)
			}
		}
		for _, c := range plan.Creates {
			fmt.Fprintf(w, "%s\n", CreateIndexSQL(m.target.Quoter, change.Table, c.Name, c.Spec))
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

// ViewStatus is the sync state of one declared or recorded view.
type ViewStatus struct {
	Table string
	Kind  view.Kind
	State string
}

// View sync states reported by Status.
const (
	StateInSync         = "in sync"
	StatePendingCreate  = "pending create"
	StatePendingUpdate  = "pending update"
	StatePendingIndexes = "pending indexes"
	StatePendingDrop    = "pending drop"
	StateNotApplicable  = "not applicable"
)

// Status is the migration state of a database against a registry.
type Status struct {
	// TrackerExists indicates whether dbviews_migrations exists yet.
	TrackerExists bool

	// Views lists each declared or recorded view with its sync state, in
	// registry order followed by pending drops.
	Views []ViewStatus
}

// InSync reports whether nothing is pending.
func (s *Status) InSync() bool {
	for _, v := range s.Views {
		if v.State != StateInSync && v.State != StateNotApplicable {
			return false
		}
	}
	return true
}

// GetStatus computes the sync state without modifying the database.
func (m *Migrator) GetStatus(ctx context.Context, reg *view.Registry) (*Status, error) {
	exists, err := migrationsTableExists(ctx, m.db, m.engine)
	if err != nil {
		return nil, err
	}
	status := &Status{TrackerExists: exists}

	previous, err := loadRecordedState(ctx, m.db, m.engine)
	if err != nil {
		return nil, err
	}
	changes, err := PlanChanges(previous, reg, m.engine)
	if err != nil {
		return nil, err
	}

	pending := make(map[string]string, len(changes))
	for _, change := range changes {
		switch {
		case change.Removed:
			pending[change.Table] = StatePendingDrop
		case change.Previous == nil:
			pending[change.Table] = StatePendingCreate
		case len(change.Forward) == 0:
			pending[change.Table] = StatePendingIndexes
		default:
			pending[change.Table] = StatePendingUpdate
		}
	}

	for _, d := range reg.Descriptors() {
		state := StateInSync
		if _, ok := d.Definition.Resolve(m.engine); !ok {
			state = StateNotApplicable
		} else if s, ok := pending[d.Table]; ok {
			state = s
		}
		status.Views = append(status.Views, ViewStatus{Table: d.Table, Kind: d.Kind, State: state})
	}
	for _, change := range changes {
		if change.Removed {
			status.Views = append(status.Views, ViewStatus{Table: change.Table, Kind: change.Kind, State: StatePendingDrop})
		}
	}
	return status, nil
}
