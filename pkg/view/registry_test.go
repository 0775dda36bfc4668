package view_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbviews/dbviews/pkg/view"
)

func TestRegisterAndLookup(t *testing.T) {
	reg := view.NewRegistry()
	require.NoError(t, reg.Register(view.NewView("a_view", view.Static("SELECT 1"))))

	d, ok := reg.Lookup("a_view")
	require.True(t, ok)
	assert.Equal(t, "a_view", d.Table)
	assert.Equal(t, 1, reg.Len())

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegisterDuplicate(t *testing.T) {
	reg := view.NewRegistry()
	require.NoError(t, reg.Register(view.NewView("a_view", view.Static("SELECT 1"))))

	err := reg.Register(view.NewView("a_view", view.Static("SELECT 2")))
	require.Error(t, err)
	assert.True(t, view.IsDuplicateViewErr(err))
}

func TestRegisterRejectsMaterializedReplace(t *testing.T) {
	reg := view.NewRegistry()
	d := view.NewMaterializedView("mv", view.Static("SELECT 1"))
	d.UseReplace = true

	err := reg.Register(d)
	require.Error(t, err)
	assert.True(t, view.IsMaterializedReplaceErr(err))
}

func TestRegisterInvalidDescriptor(t *testing.T) {
	reg := view.NewRegistry()

	err := reg.Register(view.Descriptor{Definition: view.Static("SELECT 1")})
	require.Error(t, err)
	assert.True(t, view.IsInvalidDescriptorErr(err), "missing table name")

	err = reg.Register(view.Descriptor{Table: "no_def"})
	require.Error(t, err)
	assert.True(t, view.IsInvalidDescriptorErr(err), "missing definition")
}

func TestTablesOrdersDependenciesFirst(t *testing.T) {
	reg := view.NewRegistry()

	dependent := view.NewView("a_dependent", view.Static("SELECT * FROM z_base"))
	dependent.Dependencies = []string{"z_base"}
	require.NoError(t, reg.Register(dependent))
	require.NoError(t, reg.Register(view.NewView("z_base", view.Static("SELECT 1"))))

	assert.Equal(t, []string{"z_base", "a_dependent"}, reg.Tables())
}

func TestTablesSortsTiesByName(t *testing.T) {
	reg := view.NewRegistry()
	require.NoError(t, reg.Register(view.NewView("charlie", view.Static("SELECT 1"))))
	require.NoError(t, reg.Register(view.NewView("alpha", view.Static("SELECT 1"))))
	require.NoError(t, reg.Register(view.NewView("bravo", view.Static("SELECT 1"))))

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, reg.Tables())
}

func TestTablesIgnoresUnregisteredDependencies(t *testing.T) {
	reg := view.NewRegistry()

	d := view.NewView("orders_view", view.Static("SELECT * FROM orders"))
	d.Dependencies = []string{"orders"} // a plain table, not a registered view
	require.NoError(t, reg.Register(d))

	assert.Equal(t, []string{"orders_view"}, reg.Tables())
}

func TestTablesCycleFallsBackToNameOrder(t *testing.T) {
	reg := view.NewRegistry()

	a := view.NewView("a", view.Static("SELECT * FROM b"))
	a.Dependencies = []string{"b"}
	b := view.NewView("b", view.Static("SELECT * FROM a"))
	b.Dependencies = []string{"a"}
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	// Both participate in a cycle; order degrades to name order instead of
	// dropping either.
	assert.Equal(t, []string{"a", "b"}, reg.Tables())
}

func TestDescriptorsMatchesTablesOrder(t *testing.T) {
	reg := view.NewRegistry()
	require.NoError(t, reg.Register(view.NewView("b_view", view.Static("SELECT 1"))))
	require.NoError(t, reg.Register(view.NewView("a_view", view.Static("SELECT 2"))))

	ds := reg.Descriptors()
	require.Len(t, ds, 2)
	assert.Equal(t, "a_view", ds[0].Table)
	assert.Equal(t, "b_view", ds[1].Table)
}

func TestMustRegisterPanics(t *testing.T) {
	reg := view.NewRegistry()
	reg.MustRegister(view.NewView("ok_view", view.Static("SELECT 1")))

	assert.Panics(t, func() {
		reg.MustRegister(view.NewView("ok_view", view.Static("SELECT 1")))
	})
}
