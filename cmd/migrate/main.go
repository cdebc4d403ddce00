package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/db"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

file commands (no database):
  create     write a new timestamped .sql file (-name required)
  validate   check goose annotations in every .sql file

database commands:
  up         apply pending migrations
  down       roll back the latest migration
  status     list migrations and whether they are applied
  to         migrate up or down to -version
  models     create tables from the gorm models (sqlite and throwaway dbs)

flags:
`

type options struct {
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	flags.StringVar(&opts.dir, "dir", "", "migrations directory; empty uses the embedded set ("+migrate.DefaultDir+" for file commands)")
	flags.StringVar(&opts.name, "name", "", "migration name for create")
	flags.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for to")
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])
	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(2)
	}
	command := flags.Arg(0)

	if err := run(command, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(command string, opts options, out io.Writer) error {
	switch command {
	case "create":
		if opts.name == "" {
			return errors.New("-name is required")
		}
		path, err := migrate.CreateSQLMigration(fileDir(opts), opts.name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "created", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(fileDir(opts)); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations valid")
		return nil
	case "up", "down", "status", "to", "models":
		return withDatabase(command, opts, out)
	}
	return fmt.Errorf("unknown command %q", command)
}

func fileDir(opts options) string {
	if opts.dir == "" {
		return migrate.DefaultDir
	}
	return opts.dir
}

func withDatabase(command string, opts options, out io.Writer) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": command,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	// goose SQL is postgres-only; sqlite gets the gorm schema instead.
	if command == "models" || cfg.DB.IsSQLite() {
		if command != "models" && command != "up" {
			return errors.New("sqlite databases only support up and models")
		}
		if err := migrate.AutoMigrateModels(ctx, client.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "migrate.models_applied")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	return runGoose(ctx, command, opts, sqlDB, migrate.Source(opts.dir), out)
}

func runGoose(ctx context.Context, command string, opts options, sqlDB *sql.DB, source fs.FS, out io.Writer) error {
	switch command {
	case "up":
		applied, err := migrate.Up(ctx, sqlDB, source)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "applied %d migration(s)\n", applied)
	case "down":
		return migrate.Down(ctx, sqlDB, source)
	case "to":
		if opts.version == "" {
			return errors.New("-version is required")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, source, opts.version)
	case "status":
		lines, err := migrate.Status(ctx, sqlDB, source)
		if err != nil {
			return err
		}
		for _, line := range lines {
			state := "pending"
			if line.Applied {
				state = "applied"
			}
			fmt.Fprintf(out, "%d\t%-8s\t%s\n", line.Version, state, line.Path)
		}
	}
	return nil
}
