package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbviews/dbviews/internal/cli"
	"github.com/dbviews/dbviews/pkg/migrator"
)

var (
	planDB       string
	planEngine   string
	planManifest string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the SQL a migration would run",
	Long: `Compute pending view changes against the database and print the SQL
that migrate would execute, without applying anything.`,
	Example: `  # Print pending migration SQL
  dbviews plan --db postgres://localhost/mydb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath := resolveString(planManifest, cfg.Manifest)
		engine := resolveString(planEngine, cfg.Engine)

		dsn, err := resolveDSN(planDB)
		if err != nil {
			return err
		}

		return runPlan(dsn, engine, manifestPath)
	},
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planDB, "db", "", "database URL")
	f.StringVar(&planEngine, "engine", "", "database engine (postgres, sqlite3)")
	f.StringVar(&planManifest, "manifest", "", "view manifest file or directory")
}

func runPlan(dsn, engine, manifestPath string) error {
	reg, err := loadRegistry(manifestPath)
	if err != nil {
		return err
	}

	db, err := openDatabase(engine, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	m := migrator.NewMigrator(db, engine)

	changes, err := m.MigrateWithOptions(ctx, reg, migrator.Options{DryRun: os.Stdout})
	if err != nil {
		return cli.GeneralError("planning migration", err)
	}

	if len(changes) == 0 && !quiet {
		fmt.Fprintln(os.Stderr, "No pending changes.")
	}
	return nil
}
