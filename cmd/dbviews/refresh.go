package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbviews/dbviews/internal/cli"
	"github.com/dbviews/dbviews/pkg/migrator"
	"github.com/dbviews/dbviews/pkg/view"
)

var (
	refreshDB           string
	refreshEngine       string
	refreshManifest     string
	refreshConcurrently bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <table>",
	Short: "Refresh a materialized view",
	Long: `Refresh the named materialized view.

With --concurrently the refresh runs without locking out readers; this
requires a unique index on the view.`,
	Example: `  # Refresh a materialized view
  dbviews refresh totals_mv --db postgres://localhost/mydb

  # Refresh without blocking readers
  dbviews refresh totals_mv --db postgres://localhost/mydb --concurrently`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]
		manifestPath := resolveString(refreshManifest, cfg.Manifest)
		engine := resolveString(refreshEngine, cfg.Engine)
		concurrently := resolveBool(refreshConcurrently, cfg.Refresh.Concurrently)

		dsn, err := resolveDSN(refreshDB)
		if err != nil {
			return err
		}

		return runRefresh(dsn, engine, manifestPath, table, concurrently)
	},
}

func init() {
	f := refreshCmd.Flags()
	f.StringVar(&refreshDB, "db", "", "database URL")
	f.StringVar(&refreshEngine, "engine", "", "database engine (postgres, sqlite3)")
	f.StringVar(&refreshManifest, "manifest", "", "view manifest file or directory")
	f.BoolVar(&refreshConcurrently, "concurrently", false, "refresh without locking out readers")
}

func runRefresh(dsn, engine, manifestPath, table string, concurrently bool) error {
	reg, err := loadRegistry(manifestPath)
	if err != nil {
		return err
	}

	// Refusing unknown or plain views here catches typos before touching
	// the database.
	d, ok := reg.Lookup(table)
	if !ok {
		return cli.ManifestError(fmt.Sprintf("view %q is not declared in the manifest", table), nil)
	}
	if d.Kind != view.KindMaterialized {
		return cli.GeneralError(fmt.Sprintf("view %q is not materialized", table), nil)
	}

	db, err := openDatabase(engine, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	m := migrator.NewMigrator(db, engine)

	if err := m.Refresh(ctx, table, concurrently); err != nil {
		return cli.GeneralError("refreshing view", err)
	}

	if !quiet {
		fmt.Printf("Refreshed %s.\n", table)
	}
	return nil
}
