package migrator

import (
	"context"
	"fmt"

	"github.com/dbviews/dbviews/pkg/view"
)

// Target identifies where operations execute: the engine string drives the
// replace policy and engine filters, the quoter drives identifier quoting.
type Target struct {
	Engine string
	Quoter Quoter
}

// TargetFor builds a Target with the default quoter for the engine.
func TargetFor(engine string) Target {
	return Target{Engine: engine, Quoter: QuoterFor(engine)}
}

// Operation is a single directional schema change. An operation is an
// instruction, not a live object: the generator constructs it, a migration
// run applies it exactly once, and it has no existence beyond that.
//
// Statements returns the DDL to execute in order. An empty slice means the
// operation does not apply to the target (engine filter mismatch or no
// definition for that engine) and must be skipped silently.
type Operation interface {
	Statements(t Target) []string
	Apply(ctx context.Context, db Execer, t Target) error
}

// runStatements executes statements sequentially. Any execution failure
// propagates to the caller; this layer performs no retries and no recovery.
func runStatements(ctx context.Context, db Execer, table string, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating view %s: %w", table, err)
		}
	}
	return nil
}

// ForwardOperation transitions a view to a new definition. When the new
// definition resolves to nothing for the target engine the operation is a
// no-op.
type ForwardOperation struct {
	Table      string
	Definition string
	Kind       view.Kind
	UseReplace bool

	// EngineFilter restricts the operation to one engine. Empty applies
	// everywhere. Set when the declared definition was engine-specific, so
	// a migration generated for one engine never runs against another.
	EngineFilter string
}

// NewForwardOperation constructs a forward operation. It rejects replace
// requests for materialized views outright; that combination must not exist
// even transiently.
func NewForwardOperation(table, definition string, kind view.Kind, useReplace bool, engineFilter string) (*ForwardOperation, error) {
	if kind == view.KindMaterialized && useReplace {
		return nil, fmt.Errorf("%w: view %q", view.ErrMaterializedReplace, table)
	}
	return &ForwardOperation{
		Table:        table,
		Definition:   definition,
		Kind:         kind,
		UseReplace:   useReplace,
		EngineFilter: engineFilter,
	}, nil
}

// Statements returns the forward DDL for the target, or nil to skip.
func (op *ForwardOperation) Statements(t Target) []string {
	if op.Definition == "" {
		return nil
	}
	if op.EngineFilter != "" && op.EngineFilter != t.Engine {
		return nil
	}
	if ShouldReplace(op.Kind, op.UseReplace, t.Engine) {
		return []string{ReplaceViewSQL(t.Quoter, op.Table, op.Definition)}
	}
	// Non-atomic: the view does not exist between the two statements.
	return []string{
		DropViewSQL(t.Quoter, op.Kind, op.Table),
		CreateViewSQL(t.Quoter, op.Kind, op.Table, op.Definition),
	}
}

// Apply executes the forward transition against db.
func (op *ForwardOperation) Apply(ctx context.Context, db Execer, t Target) error {
	return runStatements(ctx, db, op.Table, op.Statements(t))
}

// BackwardOperation restores a view to its previous definition, or to
// absence when there was no previous definition.
type BackwardOperation struct {
	Table      string
	Definition string // previous body; empty means the view did not exist before
	Kind       view.Kind
	UseReplace bool

	// EngineFilter restricts the operation to one engine; see ForwardOperation.
	EngineFilter string
}

// NewBackwardOperation constructs a backward operation, with the same
// materialized-view replace rejection as NewForwardOperation.
func NewBackwardOperation(table, previousDefinition string, kind view.Kind, useReplace bool, engineFilter string) (*BackwardOperation, error) {
	if kind == view.KindMaterialized && useReplace {
		return nil, fmt.Errorf("%w: view %q", view.ErrMaterializedReplace, table)
	}
	return &BackwardOperation{
		Table:        table,
		Definition:   previousDefinition,
		Kind:         kind,
		UseReplace:   useReplace,
		EngineFilter: engineFilter,
	}, nil
}

// Statements returns the backward DDL for the target, or nil to skip.
// Restoring a previous definition takes the same replace-or-drop+create path
// as the forward direction, decided by the same policy; restoring absence is
// a bare idempotent drop.
func (op *BackwardOperation) Statements(t Target) []string {
	if op.EngineFilter != "" && op.EngineFilter != t.Engine {
		return nil
	}
	if op.Definition == "" {
		return []string{DropViewSQL(t.Quoter, op.Kind, op.Table)}
	}
	if ShouldReplace(op.Kind, op.UseReplace, t.Engine) {
		return []string{ReplaceViewSQL(t.Quoter, op.Table, op.Definition)}
	}
	return []string{
		DropViewSQL(t.Quoter, op.Kind, op.Table),
		CreateViewSQL(t.Quoter, op.Kind, op.Table, op.Definition),
	}
}

// Apply executes the backward transition against db.
func (op *BackwardOperation) Apply(ctx context.Context, db Execer, t Target) error {
	return runStatements(ctx, db, op.Table, op.Statements(t))
}

// DropOperation removes a view unconditionally. Emitted forward when a
// declared view disappears, and backward as the pair of an initial create.
type DropOperation struct {
	Table        string
	Kind         view.Kind
	EngineFilter string
}

// Statements returns the drop DDL for the target, or nil to skip.
func (op *DropOperation) Statements(t Target) []string {
	if op.EngineFilter != "" && op.EngineFilter != t.Engine {
		return nil
	}
	return []string{DropViewSQL(t.Quoter, op.Kind, op.Table)}
}

// Apply executes the drop against db.
func (op *DropOperation) Apply(ctx context.Context, db Execer, t Target) error {
	return runStatements(ctx, db, op.Table, op.Statements(t))
}

// CreateIndexOperation creates one index on a materialized view's backing
// table from a desired spec.
type CreateIndexOperation struct {
	Table string
	Name  string
	Spec  IndexSpec
}

// Statements returns the create-index DDL.
func (op *CreateIndexOperation) Statements(t Target) []string {
	return []string{CreateIndexSQL(t.Quoter, op.Table, op.Name, op.Spec)}
}

// Apply executes the index creation against db.
func (op *CreateIndexOperation) Apply(ctx context.Context, db Execer, t Target) error {
	return runStatements(ctx, db, op.Table, op.Statements(t))
}

// DropIndexOperation drops one index by name.
type DropIndexOperation struct {
	Table string
	Name  string
}

// Statements returns the drop-index DDL.
func (op *DropIndexOperation) Statements(t Target) []string {
	return []string{DropIndexSQL(t.Quoter, op.Name)}
}

// Apply executes the index drop against db.
func (op *DropIndexOperation) Apply(ctx context.Context, db Execer, t Target) error {
	return runStatements(ctx, db, op.Table, op.Statements(t))
}
