//go:build integration

package migrator_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nodies-labs/liqsentinel/db/migrator"
)

func getMigrationsPath() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "migrations")
}

func setupPostgres(ctx context.Context, t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		t.Fatalf("start container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}

	cleanup := func() {
		pool.Close()
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return pool, cleanup
}

func TestMigrator_ApplyAll(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(ctx, t)
	defer cleanup()

	m := migrator.New(pool, getMigrationsPath())
	if err := m.ApplyAll(ctx); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	applied, err := m.ListApplied(ctx)
	if err != nil {
		t.Fatalf("list applied: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	var exists bool
	err = pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'pipeline_event'
		)`).Scan(&exists)
	if err != nil {
		t.Fatalf("check pipeline_event table: %v", err)
	}
	if !exists {
		t.Fatal("pipeline_event table was not created")
	}

	if err := m.ApplyAll(ctx); err != nil {
		t.Fatalf("second apply should be a no-op: %v", err)
	}
	reapplied, err := m.ListApplied(ctx)
	if err != nil {
		t.Fatalf("list applied after second run: %v", err)
	}
	if len(reapplied) != len(applied) {
		t.Fatalf("expected idempotent apply, got %d then %d", len(applied), len(reapplied))
	}
}
