package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migration files under dir, or the set compiled into the
// binary when dir is empty.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Runner applies goose migrations from one source to one Postgres database.
type Runner struct {
	provider *goose.Provider
	out      io.Writer
}

func NewRunner(db *sql.DB, source fs.FS, out io.Writer) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if err := Validate(source); err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{provider: provider, out: out}, nil
}

func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.report(results...)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	r.report(result)
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Redo rolls back the most recent migration and applies it again.
func (r *Runner) Redo(ctx context.Context) error {
	if err := r.Down(ctx); err != nil {
		return err
	}
	result, err := r.provider.UpByOne(ctx)
	r.report(result)
	if err != nil {
		return fmt.Errorf("goose redo: %w", err)
	}
	return nil
}

func (r *Runner) Status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	for _, st := range statuses {
		applied := "pending"
		if st.State == goose.StateApplied {
			applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(r.out, "%-20s %-19s %s\n", strconv.FormatInt(st.Source.Version, 10), applied, st.Source.Path)
	}
	return nil
}

// To moves the schema up or down until target (YYYYMMDDHHMMSS) is the current version.
func (r *Runner) To(ctx context.Context, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.report(results...)
	if err != nil {
		return fmt.Errorf("goose migrate to %d: %w", target, err)
	}
	return nil
}

// Pending reports how many migrations in the source are not applied yet.
func (r *Runner) Pending(ctx context.Context) (int, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose status: %w", err)
	}
	pending := 0
	for _, st := range statuses {
		if st.State == goose.StatePending {
			pending++
		}
	}
	return pending, nil
}

func (r *Runner) report(results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fmt.Fprintf(r.out, "%-4s %d %s (%s)\n", res.Direction, res.Source.Version, res.Source.Path, res.Duration.Round(time.Millisecond))
	}
}
