package tenancy

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestBindAndRelease(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()

	schema := fmt.Sprintf("bind_test_%d", time.Now().UnixNano())
	_, err := pool.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	defer pool.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	_, err = pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS shared")
	require.NoError(t, err)

	binder := NewBinder(pool, "shared", nil)

	lease, err := binder.Bind(ctx, schema)
	require.NoError(t, err)

	var current string
	require.NoError(t, lease.Querier().QueryRow(ctx, "SELECT current_schema()").Scan(&current))
	require.Equal(t, schema, current)

	lease.Release(ctx)
	// Idempotent under repeated calls.
	lease.Release(ctx)
}

func TestBindUnknownSchemaFails(t *testing.T) {
	pool := openTestDB(t)

	binder := NewBinder(pool, "shared", nil)
	_, err := binder.Bind(context.Background(), "no_such_schema_xyz")
	require.ErrorIs(t, err, ErrSchemaBindFailed)
}

func TestReleaseSurvivesCancelledContext(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()

	schema := fmt.Sprintf("bind_cancel_%d", time.Now().UnixNano())
	_, err := pool.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	defer pool.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")

	binder := NewBinder(pool, "public", nil)
	lease, err := binder.Bind(ctx, schema)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	lease.Release(cancelled)

	// The connection went back to the pool with the shared search_path.
	var current string
	require.NoError(t, pool.QueryRow(ctx, "SELECT current_schema()").Scan(&current))
	require.Equal(t, "public", current)
}
