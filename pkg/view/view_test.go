package view_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbviews/dbviews/pkg/view"
)

func TestStaticResolve(t *testing.T) {
	def := view.Static("SELECT 1 AS id")

	for _, engine := range []string{"postgres", "sqlite3", "mysql"} {
		sql, ok := def.Resolve(engine)
		assert.True(t, ok, "static definition should resolve on %s", engine)
		assert.Equal(t, "SELECT 1 AS id", sql)
	}
}

func TestStaticResolveEmpty(t *testing.T) {
	_, ok := view.Static("").Resolve("postgres")
	assert.False(t, ok, "empty static definition should not resolve")
}

func TestPerEngineResolve(t *testing.T) {
	def := view.PerEngine{
		"postgres": "SELECT now() AS ts",
		"sqlite3":  "SELECT datetime('now') AS ts",
	}

	sql, ok := def.Resolve("postgres")
	assert.True(t, ok)
	assert.Equal(t, "SELECT now() AS ts", sql)

	sql, ok = def.Resolve("sqlite3")
	assert.True(t, ok)
	assert.Equal(t, "SELECT datetime('now') AS ts", sql)

	_, ok = def.Resolve("mysql")
	assert.False(t, ok, "engine without an entry should not resolve")
}

func TestComputedResolve(t *testing.T) {
	def := view.Computed(func(engine string) string {
		if engine == "postgres" {
			return "SELECT 1"
		}
		return ""
	})

	sql, ok := def.Resolve("postgres")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1", sql)

	_, ok = def.Resolve("sqlite3")
	assert.False(t, ok, "computed definition returning empty should not resolve")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "view", view.KindView.String())
	assert.Equal(t, "materialized", view.KindMaterialized.String())

	assert.Equal(t, view.KindMaterialized, view.KindFromString("materialized"))
	assert.Equal(t, view.KindView, view.KindFromString("view"))
	assert.Equal(t, view.KindView, view.KindFromString("whatever"))
}

func TestConstructorDefaults(t *testing.T) {
	v := view.NewView("balance_view", view.Static("SELECT 1"))
	assert.Equal(t, view.KindView, v.Kind)
	assert.True(t, v.UseReplace, "plain views default to replace migrations")

	mv := view.NewMaterializedView("balance_mv", view.Static("SELECT 1"))
	assert.Equal(t, view.KindMaterialized, mv.Kind)
	assert.False(t, mv.UseReplace, "materialized views never use replace migrations")
}
