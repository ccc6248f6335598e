package tenancy

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/edukit/edukit/internal/model"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func seedRedisTenant(t *testing.T, mr *miniredis.Miniredis, tenant model.Tenant) {
	t.Helper()
	raw, err := json.Marshal(tenant)
	require.NoError(t, err)
	require.NoError(t, mr.Set(redisKey(tenant.Code), string(raw)))
}

func TestResolveFromRedisLayer(t *testing.T) {
	mr, client := testRedis(t)
	tenant := model.Tenant{ID: 1, Code: "DEMO01", Name: "Demo School", SchemaName: "school_demo01", Active: true}
	seedRedisTenant(t, mr, tenant)

	// nil store: a cache hit must never reach the database.
	reg := NewRegistry(nil, "shared", 16, time.Minute, client)

	got, err := reg.Resolve(context.Background(), "DEMO01")
	require.NoError(t, err)
	require.Equal(t, tenant, got)
}

func TestResolvePopulatesInProcessCache(t *testing.T) {
	mr, client := testRedis(t)
	tenant := model.Tenant{ID: 2, Code: "A01", SchemaName: "school_a01", Active: true}
	seedRedisTenant(t, mr, tenant)

	reg := NewRegistry(nil, "shared", 16, time.Minute, client)

	_, err := reg.Resolve(context.Background(), "A01")
	require.NoError(t, err)

	// Drop the Redis layer entirely; the LRU must still answer.
	mr.FlushAll()
	got, err := reg.Resolve(context.Background(), "A01")
	require.NoError(t, err)
	require.Equal(t, tenant, got)
}

func TestResolveIgnoresCorruptRedisEntries(t *testing.T) {
	mr, client := testRedis(t)
	require.NoError(t, mr.Set(redisKey("BAD01"), "{not json"))

	reg := NewRegistry(emptyStore{}, "shared", 16, time.Minute, client)

	// The corrupt entry must not be trusted; the lookup falls through to
	// the store, which has no such tenant.
	_, err := reg.Resolve(context.Background(), "BAD01")
	require.ErrorIs(t, err, ErrTenantUnknown)
}

func TestResolveUnknownTenant(t *testing.T) {
	reg := NewRegistry(emptyStore{}, "shared", 16, time.Minute, nil)

	_, err := reg.Resolve(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrTenantUnknown)
}

// emptyStore is a Querier over an empty tenants table.
type emptyStore struct{}

func (emptyStore) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (emptyStore) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (emptyStore) QueryRow(context.Context, string, ...any) pgx.Row {
	return noRow{}
}

type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }
