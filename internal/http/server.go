// Package http carries the multi-tenant request pipeline: tenant
// resolution, schema binding, token verification, identity loading and the
// module gate, plus the authentication endpoints the pipeline owns.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edukit/edukit/internal/auth"
	"github.com/edukit/edukit/internal/config"
	"github.com/edukit/edukit/internal/db"
	"github.com/edukit/edukit/internal/model"
	"github.com/edukit/edukit/internal/observability"
	"github.com/edukit/edukit/internal/tenancy"
)

// TenantRegistry resolves a tenant code from the routing header.
type TenantRegistry interface {
	Resolve(ctx context.Context, code string) (model.Tenant, error)
}

// SchemaBinder pins a connection to the request and activates a tenant
// schema on it.
type SchemaBinder interface {
	Bind(ctx context.Context, namespace string) (Lease, error)
}

// Lease is a schema-bound connection; Release must run on every exit path.
type Lease interface {
	Querier() db.Querier
	Release(ctx context.Context)
}

// Store reads users, permissions and rosters from the bound schema.
type Store interface {
	UserByEmail(ctx context.Context, q db.Querier, email string) (model.User, error)
	UserByID(ctx context.Context, q db.Querier, userID int64) (model.User, error)
	RoleCodes(ctx context.Context, q db.Querier, userID int64) ([]string, error)
	Overrides(ctx context.Context, q db.Querier, userID int64) ([]model.PermissionOverride, error)
	ActiveModules(ctx context.Context, q db.Querier) ([]model.Module, error)
	ActiveAcademicYear(ctx context.Context, q db.Querier) (model.AcademicYear, error)
	ListStudents(ctx context.Context, q db.Querier, limit int) ([]model.Student, error)
	ListTeachers(ctx context.Context, q db.Querier, limit int) ([]model.Teacher, error)
}

type Server struct {
	cfg      config.Config
	log      *slog.Logger
	metrics  *observability.Metrics
	registry TenantRegistry
	binder   SchemaBinder
	store    Store
	codec    *auth.Codec
	limiter  *loginLimiter
}

func NewServer(cfg config.Config, log *slog.Logger, metrics *observability.Metrics, registry TenantRegistry, binder SchemaBinder, store Store, codec *auth.Codec) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		registry: registry,
		binder:   binder,
		store:    store,
		codec:    codec,
		limiter:  newLoginLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(s.tenantContext)
		api.Use(s.requireAuth)

		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/login/", s.handleLogin)
			ar.Post("/refresh/", s.handleRefresh)
			ar.Post("/logout/", s.handleLogout)
		})

		api.Route("/admin", func(adm chi.Router) {
			adm.With(s.requireModule("students")).Get("/students/", s.handleListStudents)
			adm.With(s.requireModule("teachers")).Get("/teachers/", s.handleListTeachers)
		})
	})

	return r
}

// isExempt reports whether a path needs no tenant header at all. Exemption
// beats the public list: an exempt route is never bound and never
// authenticated.
func (s *Server) isExempt(path string) bool {
	return hasPrefix(path, s.cfg.ExemptRoutePrefixes)
}

// isPublic reports whether a path runs inside a bound tenant but without a
// bearer token (login, refresh, logout).
func (s *Server) isPublic(path string) bool {
	return hasPrefix(path, s.cfg.PublicRoutePrefixes)
}

func hasPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// NewPoolBinder adapts the concrete tenancy binder to the SchemaBinder
// interface.
func NewPoolBinder(b *tenancy.Binder) SchemaBinder {
	return poolBinder{b}
}

type poolBinder struct {
	binder *tenancy.Binder
}

func (p poolBinder) Bind(ctx context.Context, namespace string) (Lease, error) {
	lease, err := p.binder.Bind(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return lease, nil
}
