package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/hatif03/algorand-mcp/pkg/database/migrate"
	"github.com/hatif03/algorand-mcp/pkg/platform"
)

const migrateUsage = "usage: algorand-mcp migrate [-config path] up|down|version|steps N"

// migrateAction runs one schema operation against db.
type migrateAction func(db *sql.DB, out io.Writer) error

// parseMigrateAction maps the migrate subcommand arguments to an action.
func parseMigrateAction(args []string) (migrateAction, error) {
	if len(args) == 0 {
		return nil, errors.New(migrateUsage)
	}

	switch args[0] {
	case "up":
		return func(db *sql.DB, _ io.Writer) error { return migrate.Run(db) }, nil
	case "down":
		return func(db *sql.DB, _ io.Writer) error { return migrate.Down(db) }, nil
	case "version":
		return func(db *sql.DB, out io.Writer) error {
			version, dirty, err := migrate.Version(db)
			if err != nil {
				return fmt.Errorf("reading schema version: %w", err)
			}
			_, err = fmt.Fprintf(out, "version %d dirty %t\n", version, dirty)
			return err //nolint:wrapcheck // write to stdout
		}, nil
	case "steps":
		if len(args) != 2 {
			return nil, errors.New(migrateUsage)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n == 0 {
			return nil, fmt.Errorf("steps needs a non-zero integer, got %q", args[1])
		}
		return func(db *sql.DB, _ io.Writer) error { return migrate.Steps(db, n) }, nil
	default:
		return nil, fmt.Errorf("unknown migrate command %q; %s", args[0], migrateUsage)
	}
}

// runMigrate applies schema migrations to the configured database without
// starting the server.
func runMigrate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	action, err := parseMigrateAction(fs.Args())
	if err != nil {
		return err
	}

	cfg, err := platform.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn (or DATABASE_URL) is required for migrate")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return action(db, out)
}
