package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/edukit/edukit/internal/db"
	"github.com/edukit/edukit/internal/model"
)

// ErrTenantUnknown is returned when no active tenant carries the given code.
var ErrTenantUnknown = errors.New("tenant unknown")

// Registry resolves tenant codes against the shared schema. The code→schema
// mapping is effectively immutable, so resolved tenants go through an
// in-process LRU and an optional Redis layer before the database is asked.
type Registry struct {
	store  db.Querier
	shared string
	l1     *expirable.LRU[string, model.Tenant]
	rdb    *redis.Client
	ttl    time.Duration
}

// NewRegistry builds a registry over the shared schema. rdb may be nil, in
// which case only the in-process cache is used.
func NewRegistry(store db.Querier, sharedSchema string, cacheSize int, cacheTTL time.Duration, rdb *redis.Client) *Registry {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	return &Registry{
		store:  store,
		shared: sharedSchema,
		l1:     expirable.NewLRU[string, model.Tenant](cacheSize, nil, cacheTTL),
		rdb:    rdb,
		ttl:    cacheTTL,
	}
}

// Resolve looks up an active tenant by its code. It is safe to call without
// any tenant schema bound; the query is fully qualified.
func (r *Registry) Resolve(ctx context.Context, code string) (model.Tenant, error) {
	if tenant, ok := r.l1.Get(code); ok {
		return tenant, nil
	}

	if tenant, ok := r.fromRedis(ctx, code); ok {
		r.l1.Add(code, tenant)
		return tenant, nil
	}

	var tenant model.Tenant
	query := fmt.Sprintf(`
		SELECT id, code, name, schema_name, active, created_at
		FROM %s.tenants
		WHERE code = $1 AND active
	`, pgx.Identifier{r.shared}.Sanitize())
	row := r.store.QueryRow(ctx, query, code)
	err := row.Scan(&tenant.ID, &tenant.Code, &tenant.Name, &tenant.SchemaName, &tenant.Active, &tenant.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Tenant{}, ErrTenantUnknown
		}
		return model.Tenant{}, fmt.Errorf("resolve tenant %q: %w", code, err)
	}

	r.l1.Add(code, tenant)
	r.toRedis(ctx, tenant)
	return tenant, nil
}

func redisKey(code string) string {
	return "tenant:code:" + code
}

func (r *Registry) fromRedis(ctx context.Context, code string) (model.Tenant, bool) {
	if r.rdb == nil {
		return model.Tenant{}, false
	}
	raw, err := r.rdb.Get(ctx, redisKey(code)).Bytes()
	if err != nil {
		return model.Tenant{}, false
	}
	var tenant model.Tenant
	if err := json.Unmarshal(raw, &tenant); err != nil {
		return model.Tenant{}, false
	}
	return tenant, true
}

func (r *Registry) toRedis(ctx context.Context, tenant model.Tenant) {
	if r.rdb == nil {
		return
	}
	raw, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	// Best effort; a cache write failure never fails the request.
	_ = r.rdb.Set(ctx, redisKey(tenant.Code), raw, r.ttl).Err()
}
