package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbviews/dbviews/internal/cli"
	"github.com/dbviews/dbviews/pkg/migrator"
)

var (
	statusDB       string
	statusEngine   string
	statusManifest string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current view sync state",
	Long:  `Show the sync state of each declared view against the database.`,
	Example: `  # Check status
  dbviews status --db postgres://localhost/mydb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath := resolveString(statusManifest, cfg.Status.Manifest, cfg.Manifest)
		engine := resolveString(statusEngine, cfg.Engine)

		dsn, err := resolveDSN(statusDB)
		if err != nil {
			return err
		}

		return runStatus(dsn, engine, manifestPath)
	},
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusDB, "db", "", "database URL")
	f.StringVar(&statusEngine, "engine", "", "database engine (postgres, sqlite3)")
	f.StringVar(&statusManifest, "manifest", "", "view manifest file or directory")
}

func runStatus(dsn, engine, manifestPath string) error {
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

	s, err := m.GetStatus(ctx, reg)
	if err != nil {
		return cli.GeneralError("getting status", err)
	}

	if s.TrackerExists {
		fmt.Println("Tracking table:  present")
	} else {
		fmt.Println("Tracking table:  missing (no migrations applied yet)")
	}
	fmt.Println()

	for _, v := range s.Views {
		fmt.Printf("  %-30s %-12s %s\n", v.Table, v.Kind, v.State)
	}

	if !s.InSync() {
		fmt.Println()
		fmt.Println("Run `dbviews migrate` to apply pending changes.")
	}

	return nil
}
