package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
)

type options struct {
	dir      string
	name     string
	version  string
	embedded bool
}

// offline commands never open a database connection.
var offline = map[string]func(opts options) error{
	"create": func(opts options) error {
		if opts.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	},
	"validate": func(opts options) error {
		source, err := migrate.Source(opts.dir)
		if err != nil {
			return err
		}
		if err := migrate.Validate(source); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	},
}

var online = map[string]func(ctx context.Context, runner *migrate.Runner, opts options) error{
	"up":     func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Up(ctx) },
	"down":   func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Down(ctx) },
	"redo":   func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Redo(ctx) },
	"status": func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Status(ctx) },
	"version": func(ctx context.Context, r *migrate.Runner, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return r.To(ctx, opts.version)
	},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	cmd := flag.String("cmd", "up", "migration command: "+strings.Join(commandNames(), "|"))
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into the binary")
	flag.Parse()

	if run, ok := offline[*cmd]; ok {
		if err := run(opts); err != nil {
			fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", *cmd, err)
			os.Exit(1)
		}
		return
	}

	run, ok := online[*cmd]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"cmd":      *cmd,
		"dir":      opts.dir,
		"embedded": opts.embedded,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	dir := opts.dir
	if opts.embedded {
		dir = ""
	}
	source, err := migrate.Source(dir)
	requireResource(ctx, logg, "migration source", err)
	runner, err := migrate.NewRunner(sqlDB, source, os.Stdout)
	requireResource(ctx, logg, "migration runner", err)

	logg.Info(ctx, "migrate ready")
	if err := run(ctx, runner, opts); err != nil {
		logg.Error(ctx, "migrate command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate finished")
}

func commandNames() []string {
	names := make([]string, 0, len(offline)+len(online))
	for name := range offline {
		names = append(names, name)
	}
	for name := range online {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
