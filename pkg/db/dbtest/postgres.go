//go:build integration

package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	dbpkg "github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
)

// OpenPostgres starts a disposable Postgres container, applies the embedded
// goose migrations and returns a pooled client against it.
func OpenPostgres(t testing.TB) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bazaar"),
		postgres.WithUsername("bazaar"),
		postgres.WithPassword("bazaar"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	raw, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open migration handle: %v", err)
	}
	defer raw.Close()
	source, err := migrate.Source("")
	if err != nil {
		t.Fatalf("embedded migrations: %v", err)
	}
	runner, err := migrate.NewRunner(raw, source, nil)
	if err != nil {
		t.Fatalf("migration runner: %v", err)
	}
	if err := runner.Up(ctx); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	client, err := dbpkg.New(ctx, config.DBConfig{DSN: dsn, Driver: "postgres", MaxOpenConns: 10, MaxIdleConns: 5}, nil)
	if err != nil {
		t.Fatalf("open gorm client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client.DB()
}
