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
	migrateDB       string
	migrateEngine   string
	migrateManifest string
	migrateDryRun   bool
	migrateForce    bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply declared views to the database",
	Long:  `Apply the views declared in the manifest to the database.`,
	Example: `  # Apply views to database
  dbviews migrate --db postgres://localhost/mydb

  # Preview migration without applying
  dbviews migrate --db postgres://localhost/mydb --dry-run

  # Force re-apply even if definitions are unchanged
  dbviews migrate --db postgres://localhost/mydb --force

  # Migrate a sqlite database
  dbviews migrate --engine sqlite3 --db ./app.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Resolve values
		manifestPath := resolveString(migrateManifest, cfg.Migrate.Manifest, cfg.Manifest)
		engine := resolveString(migrateEngine, cfg.Engine)
		dryRun := resolveBool(migrateDryRun, cfg.Migrate.DryRun)
		force := resolveBool(migrateForce, cfg.Migrate.Force)

		// Get DSN
		dsn, err := resolveDSN(migrateDB)
		if err != nil {
			return err
		}

		return runMigrate(dsn, engine, manifestPath, dryRun, force)
	},
}

func init() {
	f := migrateCmd.Flags()
	f.StringVar(&migrateDB, "db", "", "database URL")
	f.StringVar(&migrateEngine, "engine", "", "database engine (postgres, sqlite3)")
	f.StringVar(&migrateManifest, "manifest", "", "view manifest file or directory")
	f.BoolVar(&migrateDryRun, "dry-run", false, "output migration SQL without applying")
	f.BoolVar(&migrateForce, "force", false, "re-apply views even if definitions are unchanged")
}

func runMigrate(dsn, engine, manifestPath string, dryRun, force bool) error {
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

	opts := migrator.Options{
		Force: force,
	}

	if dryRun {
		opts.DryRun = os.Stdout
		if !quiet {
			fmt.Fprintln(os.Stderr, "-- Dry-run mode: SQL will be output but not applied")
			fmt.Fprintln(os.Stderr, "")
		}
	} else if !quiet {
		fmt.Println("Applying view migrations...")
	}

	changes, err := m.MigrateWithOptions(ctx, reg, opts)
	if err != nil {
		return cli.GeneralError("migration failed", err)
	}

	if dryRun {
		return nil
	}

	if !quiet {
		if len(changes) == 0 {
			fmt.Println("Views unchanged, migration skipped.")
			fmt.Println("Use --force to re-apply.")
		} else {
			fmt.Printf("Applied %d view change(s).\n", len(changes))
			if verbose > 0 {
				for _, c := range changes {
					if c.Removed {
						fmt.Printf("  - dropped %s\n", c.Table)
					} else {
						fmt.Printf("  - applied %s\n", c.Table)
					}
				}
			}
		}
	}

	return nil
}
