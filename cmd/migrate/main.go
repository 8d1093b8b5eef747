// Command migrate applies and authors the catalog's Postgres schema migrations.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/homeservices/backend/internal/infrastructure/config"
	"github.com/homeservices/backend/internal/infrastructure/logger"
	"github.com/homeservices/backend/internal/infrastructure/migration"
	"github.com/homeservices/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// env is what a subcommand runs against. m is nil for offline commands.
type env struct {
	log    *zap.Logger
	dir    string
	source fs.FS
	m      *migration.Migrator
}

type command struct {
	usage   string
	summary string
	offline bool
	minArgs int
	run     func(e *env, args []string) error
}

var commands = map[string]command{
	"up":   {usage: "up", summary: "Apply all pending migrations", run: func(e *env, _ []string) error { return e.m.Up() }},
	"down": {usage: "down", summary: "Roll back all migrations", run: func(e *env, _ []string) error { return e.m.Down() }},
	"step": {usage: "step <n>", summary: "Apply n migrations, rolling back when n is negative", minArgs: 1,
		run: func(e *env, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			return e.m.Steps(n)
		}},
	"goto": {usage: "goto <version>", summary: "Migrate up or down to a version", minArgs: 1,
		run: func(e *env, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return e.m.GoTo(uint(v))
		}},
	"force": {usage: "force <version>", summary: "Mark a version applied after a failed migration", minArgs: 1,
		run: func(e *env, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return e.m.Force(v)
		}},
	"status": {usage: "status", summary: "Show applied and latest versions", run: status},
	"create": {usage: "create <name> [desc]", summary: "Write a new up/down pair into -path", offline: true, minArgs: 1, run: create},
	"list":   {usage: "list", summary: "List available migrations", offline: true, run: list},
}

func main() {
	dir := flag.String("path", "", "Migrations directory; the embedded set is used when empty (create requires it)")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	name := args[0]
	if name == "version" {
		name = "status"
	}
	cmd, ok := commands[name]
	if !ok || len(args)-1 < cmd.minArgs {
		usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout", TimeFormat: "15:04:05"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	e := &env{log: log, dir: *dir, source: migrations.FS}
	if *dir != "" {
		e.source = os.DirFS(*dir)
	}
	if err := execute(e, cmd, args[1:]); err != nil {
		log.Error("Migration command failed", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}
}

func execute(e *env, cmd command, args []string) error {
	if cmd.offline {
		return cmd.run(e, args)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver == config.DriverSQLite {
		return errors.New("SQL migrations target postgres; sqlite schemas are created with database.auto_migrate")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if e.m, err = migration.New(db, e.source, e.log); err != nil {
		return err
	}
	defer e.m.Close()
	return cmd.run(e, args)
}

func status(e *env, _ []string) error {
	s, err := e.m.Status(e.source)
	if err != nil {
		return err
	}
	e.log.Info("Migration status",
		zap.Uint("version", s.Version),
		zap.Uint("latest", s.Latest),
		zap.Bool("dirty", s.Dirty),
		zap.Bool("pending", s.Pending()),
	)
	return nil
}

func create(e *env, args []string) error {
	if e.dir == "" {
		return errors.New("create needs -path pointing at the migrations directory")
	}
	desc := strings.Join(args[1:], " ")
	mf, err := migration.CreateMigration(e.dir, args[0], desc)
	if err != nil {
		return err
	}
	e.log.Info("Migration created", zap.String("version", mf.Version), zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
	return nil
}

func list(e *env, _ []string) error {
	names, err := migration.ListMigrations(e.source)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	e.log.Info("Available migrations", zap.Int("count", len(names)))
	return nil
}

func usage() {
	order := []string{"up", "down", "step", "goto", "force", "status", "create", "list"}
	var b strings.Builder
	b.WriteString("Usage: migrate [-path dir] [-log-level level] <command>\n\nCommands:\n")
	for _, name := range order {
		c := commands[name]
		fmt.Fprintf(&b, "  %-22s %s\n", c.usage, c.summary)
	}
	b.WriteString("\nDatabase settings come from config.toml and HSA_ environment variables.\n")
	fmt.Fprint(os.Stderr, b.String())
}
