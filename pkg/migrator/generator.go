package migrator

import (
	"sort"

	"github.com/dbviews/dbviews/pkg/view"
)

// RecordedView is the last applied state for one view, read from the
// dbviews_migrations tracking table.
type RecordedView struct {
	Table      string
	Kind       view.Kind
	Definition string
	Checksum   string
	IndexNames []string
}

// Change pairs the forward and backward operations for one view transition.
// A change is consumed exactly once by a migration run.
type Change struct {
	Table string
	Kind  view.Kind

	// Forward transitions the view to its declared state; Backward restores
	// the recorded state (or absence). Either may be empty when the change
	// is index-only.
	Forward  []Operation
	Backward []Operation

	// DesiredIndexes is the declared index set for a materialized view.
	// Non-nil requests index reconciliation against live catalog state at
	// apply time: drops run before Forward, creates after. Nil for plain
	// views and removals.
	DesiredIndexes map[string]IndexSpec

	// Previous is the recorded state this change supersedes, nil for a view
	// seen for the first time. Rollback restores it.
	Previous *RecordedView

	// NewDefinition is the resolved body Forward converges on, recorded as
	// state after a successful apply. Empty for removals.
	NewDefinition string

	// Removed marks a view that is recorded but no longer declared; its
	// state rows are deleted instead of rewritten after the drop applies.
	Removed bool
}

// PlanChanges diffs recorded state against the declared registry for one
// engine and returns the ordered changes needed to converge. Previous and
// current state are passed in explicitly; the planner holds no state of its
// own, so planning twice against an unchanged registry and an up-to-date
// record yields nil both times.
//
// Ordering: declared views follow registry order (dependencies first), so
// creates and updates see their prerequisites in place; removals come last
// in name order.
func PlanChanges(previous map[string]RecordedView, reg *view.Registry, engine string) ([]Change, error) {
	return planChanges(previous, reg, engine, false)
}

func planChanges(previous map[string]RecordedView, reg *view.Registry, engine string, force bool) ([]Change, error) {
	var changes []Change

	for _, d := range reg.Descriptors() {
		body, ok := d.Definition.Resolve(engine)
		if !ok {
			// No definition for this engine: emit nothing, not even a drop.
			continue
		}
		filter := engineFilterFor(d.Definition, engine)

		prev, exists := previous[d.Table]
		switch {
		case !exists:
			change, err := newCreateChange(d, body, filter)
			if err != nil {
				return nil, err
			}
			changes = append(changes, change)

		case prev.Definition != body || force:
			change, err := newUpdateChange(d, prev, body, filter)
			if err != nil {
				return nil, err
			}
			changes = append(changes, change)

		default:
			// Definition unchanged; materialized views may still need their
			// index set reconciled.
			if d.Kind == view.KindMaterialized && !sameNames(prev.IndexNames, desiredNames(d.Indexes)) {
				prevCopy := prev
				changes = append(changes, Change{
					Table:          d.Table,
					Kind:           d.Kind,
					DesiredIndexes: desiredOrEmpty(d.Indexes),
					Previous:       &prevCopy,
					NewDefinition:  body,
				})
			}
		}
	}

	// Views that are recorded but no longer declared get dropped.
	var removed []string
	for table := range previous {
		if _, ok := reg.Lookup(table); !ok {
			removed = append(removed, table)
		}
	}
	sort.Strings(removed)
	for _, table := range removed {
		prev := previous[table]
		change, err := newRemoveChange(prev)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}

	return changes, nil
}

func newCreateChange(d view.Descriptor, body, filter string) (Change, error) {
	fwd, err := NewForwardOperation(d.Table, body, d.Kind, d.UseReplace, filter)
	if err != nil {
		return Change{}, err
	}
	// No previous definition: rolling back restores absence.
	bwd, err := NewBackwardOperation(d.Table, "", d.Kind, d.UseReplace, filter)
	if err != nil {
		return Change{}, err
	}
	change := Change{
		Table:         d.Table,
		Kind:          d.Kind,
		Forward:       []Operation{fwd},
		Backward:      []Operation{bwd},
		NewDefinition: body,
	}
	if d.Kind == view.KindMaterialized {
		change.DesiredIndexes = desiredOrEmpty(d.Indexes)
	}
	return change, nil
}

func newUpdateChange(d view.Descriptor, prev RecordedView, body, filter string) (Change, error) {
	fwd, err := NewForwardOperation(d.Table, body, d.Kind, d.UseReplace, filter)
	if err != nil {
		return Change{}, err
	}
	bwd, err := NewBackwardOperation(d.Table, prev.Definition, d.Kind, d.UseReplace, filter)
	if err != nil {
		return Change{}, err
	}
	change := Change{
		Table:         d.Table,
		Kind:          d.Kind,
		Forward:       []Operation{fwd},
		Backward:      []Operation{bwd},
		Previous:      &prev,
		NewDefinition: body,
	}
	if d.Kind == view.KindMaterialized {
		change.DesiredIndexes = desiredOrEmpty(d.Indexes)
	}
	return change, nil
}

func newRemoveChange(prev RecordedView) (Change, error) {
	// Replace migrations are the per-kind default on the way back; the
	// original preference is not recorded and the policy degrades safely.
	useReplace := prev.Kind != view.KindMaterialized
	bwd, err := NewBackwardOperation(prev.Table, prev.Definition, prev.Kind, useReplace, "")
	if err != nil {
		return Change{}, err
	}
	prevCopy := prev
	return Change{
		Table:    prev.Table,
		Kind:     prev.Kind,
		Forward:  []Operation{&DropOperation{Table: prev.Table, Kind: prev.Kind}},
		Backward: []Operation{bwd},
		Previous: &prevCopy,
		Removed:  true,
	}, nil
}

// engineFilterFor pins operations to the planning engine when the declared
// definition is engine-specific, so a generated change never runs against an
// engine it was not resolved for. Static definitions apply everywhere.
func engineFilterFor(def view.Definition, engine string) string {
	if _, ok := def.(view.Static); ok {
		return ""
	}
	return engine
}

func desiredOrEmpty(m map[string]IndexSpec) map[string]IndexSpec {
	if m == nil {
		return map[string]IndexSpec{}
	}
	return m
}

// desiredNames returns the sorted index names of a desired index set, the
// same shape recorded in state rows.
func desiredNames(m map[string]IndexSpec) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
