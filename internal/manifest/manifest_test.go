package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbviews/dbviews/internal/manifest"
	"github.com/dbviews/dbviews/pkg/view"
)

const sampleManifest = `
views:
  - name: balance_view
    sql: SELECT account_id, sum(amount) AS balance FROM transactions GROUP BY account_id
  - name: latest_report
    kind: view
    use_replace: false
    engines:
      postgres: SELECT * FROM reports ORDER BY created_at DESC LIMIT 1
      sqlite3: SELECT * FROM reports ORDER BY created_at DESC LIMIT 1
  - name: totals_mv
    kind: materialized
    dependencies: [balance_view]
    sql: SELECT account_id, balance FROM balance_view
    indexes:
      totals_mv_account_uniq:
        columns: account_id
        unique: true
        method: btree
      totals_mv_positive_idx:
        columns: balance
        where: balance > 0
`

func TestParseSampleManifest(t *testing.T) {
	m, err := manifest.Parse([]byte(sampleManifest))
	require.NoError(t, err)
	require.Len(t, m.Views, 3)

	reg, err := m.Registry()
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	plain, ok := reg.Lookup("balance_view")
	require.True(t, ok)
	assert.Equal(t, view.KindView, plain.Kind)
	assert.True(t, plain.UseReplace, "plain views default to replace")
	sql, ok := plain.Definition.Resolve("mysql")
	require.True(t, ok, "single-body sql applies to every engine")
	assert.Contains(t, sql, "sum(amount)")

	noReplace, ok := reg.Lookup("latest_report")
	require.True(t, ok)
	assert.False(t, noReplace.UseReplace)
	_, ok = noReplace.Definition.Resolve("mysql")
	assert.False(t, ok, "engine-keyed bodies skip undeclared engines")

	mv, ok := reg.Lookup("totals_mv")
	require.True(t, ok)
	assert.Equal(t, view.KindMaterialized, mv.Kind)
	assert.False(t, mv.UseReplace)
	assert.Equal(t, []string{"balance_view"}, mv.Dependencies)
	require.Contains(t, mv.Indexes, "totals_mv_account_uniq")
	assert.True(t, mv.Indexes["totals_mv_account_uniq"].Unique)
	assert.Equal(t, "balance > 0", mv.Indexes["totals_mv_positive_idx"].Where)
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"missing name": `
views:
  - sql: SELECT 1
`,
		"missing body": `
views:
  - name: v
`,
		"both bodies": `
views:
  - name: v
    sql: SELECT 1
    engines:
      postgres: SELECT 1
`,
		"unknown kind": `
views:
  - name: v
    kind: table
    sql: SELECT 1
`,
		"materialized replace": `
views:
  - name: mv
    kind: materialized
    use_replace: true
    sql: SELECT 1
`,
		"indexes on plain view": `
views:
  - name: v
    sql: SELECT 1
    indexes:
      v_idx:
        columns: id
`,
		"index without columns": `
views:
  - name: mv
    kind: materialized
    sql: SELECT 1
    indexes:
      mv_idx:
        unique: true
`,
		"unknown field": `
views:
  - name: v
    sql: SELECT 1
    replace: true
`,
		"empty document": `
views: []
`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := manifest.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	m, err := manifest.Parse([]byte(`
views:
  - name: v
    sql: SELECT 1
  - name: v
    sql: SELECT 2
`))
	require.NoError(t, err)

	_, err = m.Registry()
	require.Error(t, err)
	assert.True(t, view.IsDuplicateViewErr(err))
}

func TestLoadDirMergesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(`
views:
  - name: first_view
    sql: SELECT 1
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte(`
views:
  - name: second_view
    sql: SELECT 2
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not yaml"), 0o644))

	reg, err := manifest.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	_, ok := reg.Lookup("first_view")
	assert.True(t, ok)
	_, ok = reg.Lookup("second_view")
	assert.True(t, ok)
}

func TestLoadDirDuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	doc := []byte("views:\n  - name: v\n    sql: SELECT 1\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), doc, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), doc, 0o644))

	_, err := manifest.LoadDir(dir)
	require.Error(t, err)
	assert.True(t, view.IsDuplicateViewErr(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "views.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	reg, err := manifest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	_, err = manifest.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
