package http

import (
	"context"

	"github.com/edukit/edukit/internal/model"
)

type tenantKey struct{}
type leaseKey struct{}
type identityKey struct{}

// identity is the authenticated principal of a request together with its
// effective module set.
type identity struct {
	user    model.User
	modules []string
}

func withTenant(ctx context.Context, tenant model.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

func tenantFromContext(ctx context.Context) (model.Tenant, bool) {
	tenant, ok := ctx.Value(tenantKey{}).(model.Tenant)
	return tenant, ok
}

func withLease(ctx context.Context, lease Lease) context.Context {
	return context.WithValue(ctx, leaseKey{}, lease)
}

func leaseFromContext(ctx context.Context) (Lease, bool) {
	lease, ok := ctx.Value(leaseKey{}).(Lease)
	return lease, ok
}

func withIdentity(ctx context.Context, id identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFromContext(ctx context.Context) (identity, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	return id, ok
}
