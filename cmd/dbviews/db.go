package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dbviews/dbviews/internal/cli"
	"github.com/dbviews/dbviews/internal/manifest"
	"github.com/dbviews/dbviews/pkg/view"
)

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

// driverFor maps an engine identifier to the registered database/sql driver.
func driverFor(engine string) (string, error) {
	switch {
	case strings.Contains(engine, "postgres"):
		return "postgres", nil
	case strings.Contains(engine, "sqlite"):
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("no driver available for engine %q (supported: postgres, sqlite3)", engine)
	}
}

// openDatabase opens a connection for the given engine and DSN.
func openDatabase(engine, dsn string) (*sql.DB, error) {
	driver, err := driverFor(engine)
	if err != nil {
		return nil, cli.ConfigError("selecting driver", err)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	return db, nil
}

// loadRegistry loads the view registry from a manifest file or directory.
func loadRegistry(path string) (*view.Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, cli.ManifestError(fmt.Sprintf("manifest not found: %s", path), nil)
	}

	var reg *view.Registry
	if info.IsDir() {
		reg, err = manifest.LoadDir(path)
	} else {
		reg, err = manifest.Load(path)
	}
	if err != nil {
		return nil, cli.ManifestError("loading manifest", err)
	}
	return reg, nil
}
