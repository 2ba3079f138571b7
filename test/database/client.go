// Package database provides a testcontainers-backed PostgreSQL pool for
// integration tests across pkg/store.
package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	agentdb "github.com/northfold/agentrelay/pkg/database"
)

// NewTestPool returns a migrated *pgxpool.Pool for the duration of the test.
// In CI (when CI_DATABASE_URL is set) it connects to an external PostgreSQL
// service container; locally it spins up a throwaway testcontainer. Either
// way, the pool is closed and any local container terminated via
// t.Cleanup.
func NewTestPool(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr == "" {
		t.Log("using testcontainers for PostgreSQL")
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		var err2 error
		connStr, err2 = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err2)
	} else {
		t.Log("using external PostgreSQL from CI_DATABASE_URL")
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	require.NoError(t, err)

	require.NoError(t, agentdb.Migrate(ctx, pool))

	t.Cleanup(pool.Close)
	return pool
}
