// Command migrate applies the billing schema to a postgres database and
// scaffolds new migration files.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agency/backoffice/internal/infrastructure/config"
	"github.com/agency/backoffice/internal/infrastructure/logger"
	"github.com/agency/backoffice/internal/infrastructure/migration"
	"github.com/agency/backoffice/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage")

// tool carries what every command needs. connect is only called for
// commands that touch the database.
type tool struct {
	log     *zap.Logger
	out     io.Writer
	dir     string
	connect func() (*migration.Migrator, error)
}

type command struct {
	usage   string
	summary string
	nargs   int
	offline bool
	run     func(t *tool, m *migration.Migrator, args []string) error
}

var commands = map[string]command{
	"up": {usage: "up", summary: "Apply every pending migration",
		run: func(_ *tool, m *migration.Migrator, _ []string) error { return m.Up() }},
	"down": {usage: "down", summary: "Roll back every migration",
		run: func(_ *tool, m *migration.Migrator, _ []string) error { return m.Down() }},
	"step": {usage: "step <n>", summary: "Apply n migrations, negative n rolls back", nargs: 1,
		run: func(_ *tool, m *migration.Migrator, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return fmt.Errorf("%w: step needs a non-zero integer, got %q", errUsage, args[0])
			}
			return m.Steps(n)
		}},
	"goto": {usage: "goto <version>", summary: "Migrate up or down to version", nargs: 1,
		run: func(_ *tool, m *migration.Migrator, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("%w: invalid version %q", errUsage, args[0])
			}
			return m.GoTo(uint(v))
		}},
	"version": {usage: "version", summary: "Print the applied version",
		run: func(t *tool, m *migration.Migrator, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if dirty {
				_, err = fmt.Fprintf(t.out, "%d (dirty)\n", v)
				return err
			}
			_, err = fmt.Fprintf(t.out, "%d\n", v)
			return err
		}},
	"force": {usage: "force <version>", summary: "Mark version as applied after a failed run", nargs: 1,
		run: func(t *tool, m *migration.Migrator, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: invalid version %q", errUsage, args[0])
			}
			return m.Force(v)
		}},
	"create": {usage: "create <name> [description]", summary: "Scaffold the next up/down pair", nargs: 1, offline: true,
		run: func(t *tool, _ *migration.Migrator, args []string) error {
			desc := strings.Join(args[1:], " ")
			mf, err := migration.CreateMigration(t.dir, args[0], desc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(t.out, "%s\n%s\n", mf.UpPath, mf.DownPath)
			return err
		}},
	"list": {usage: "list", summary: "List the migrations in the directory", offline: true,
		run: func(t *tool, _ *migration.Migrator, _ []string) error {
			files, err := migration.ListMigrations(t.dir)
			if err != nil {
				return err
			}
			for _, f := range files {
				if _, err := fmt.Fprintln(t.out, f); err != nil {
					return err
				}
			}
			return nil
		}},
}

func (t *tool) run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	args = args[1:]
	if len(args) < cmd.nargs {
		return fmt.Errorf("%w: migrate %s", errUsage, cmd.usage)
	}
	if cmd.offline {
		return cmd.run(t, nil, args)
	}

	m, err := t.connect()
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			t.log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return cmd.run(t, m, args)
}

func main() {
	path := flag.String("path", "", "migrations directory; empty applies the embedded set and scaffolds into ./migrations")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() { printUsage(flag.CommandLine.Output()) }
	flag.Parse()

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	dir := *path
	if dir == "" {
		dir = "migrations"
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	t := &tool{
		log: log,
		out: os.Stdout,
		dir: dir,
		connect: func() (*migration.Migrator, error) {
			return connectPostgres(*path, dir, log)
		},
	}
	if err := t.run(flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			printUsage(os.Stderr)
			os.Exit(2)
		}
		log.Error("Migration command failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// connectPostgres opens the configured database. The embedded migrations
// are used unless a directory was given explicitly.
func connectPostgres(path, dir string, log *zap.Logger) (*migration.Migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("driver %q is migrated by the server on startup", cfg.Database.Driver)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Database.Host, err)
	}
	log.Debug("Connected", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))
	if path == "" {
		return migration.NewFromFS(db, migrations.FS, log)
	}
	return migration.New(db, dir, log)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: migrate [-path dir] [-log-level level] <command> [args]")
	fmt.Fprintln(w)
	for _, name := range []string{"up", "down", "step", "goto", "version", "force", "create", "list"} {
		c := commands[name]
		fmt.Fprintf(w, "  %-28s %s\n", c.usage, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Connection settings come from config.toml and AGENCY_DATABASE_* variables.")
}
