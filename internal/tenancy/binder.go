package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edukit/edukit/internal/db"
)

// ErrSchemaBindFailed is returned when a tenant schema cannot be activated.
var ErrSchemaBindFailed = errors.New("schema bind failed")

const releaseTimeout = 2 * time.Second

// Binder pins a pool connection to a request and switches its search_path
// to a tenant schema. The connection is not returned to the pool until the
// lease is released, so no other request can observe the bound schema.
type Binder struct {
	pool   *pgxpool.Pool
	shared string
	log    *slog.Logger
}

func NewBinder(pool *pgxpool.Pool, sharedSchema string, log *slog.Logger) *Binder {
	return &Binder{pool: pool, shared: sharedSchema, log: log}
}

// Bind acquires a dedicated connection, checks that the schema exists and
// activates it. The returned lease must be released on every exit path.
func (b *Binder) Bind(ctx context.Context, namespace string) (*Lease, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire: %v", ErrSchemaBindFailed, err)
	}

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)`, namespace).Scan(&exists)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("%w: %v", ErrSchemaBindFailed, err)
	}
	if !exists {
		conn.Release()
		return nil, fmt.Errorf("%w: schema %q does not exist", ErrSchemaBindFailed, namespace)
	}

	if _, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{namespace}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("%w: %v", ErrSchemaBindFailed, err)
	}

	return &Lease{conn: conn, shared: b.shared, log: b.log}, nil
}

// Lease is a connection bound to one tenant schema for the lifetime of a
// single request.
type Lease struct {
	conn     *pgxpool.Conn
	shared   string
	log      *slog.Logger
	released bool
}

// Querier exposes the bound connection for downstream reads.
func (l *Lease) Querier() db.Querier {
	return l.conn
}

// Release resets the search_path to the shared schema and returns the
// connection to the pool. It is idempotent and runs to completion even when
// the request context was cancelled; a connection whose reset fails is
// destroyed instead of being pooled with a stale search_path.
func (l *Lease) Release(ctx context.Context) {
	if l.released {
		return
	}
	l.released = true

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if _, err := l.conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{l.shared}.Sanitize()); err != nil {
		if l.log != nil {
			l.log.Error("schema reset failed, discarding connection", "error", err)
		}
		_ = l.conn.Conn().Close(ctx)
	}
	l.conn.Release()
}
