package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/edukit/edukit/internal/auth"
	"github.com/edukit/edukit/internal/repository"
	"github.com/edukit/edukit/internal/tenancy"
)

// instrument is the outermost middleware: panic recovery, metrics and the
// per-request log line.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if v := recover(); v != nil {
				s.log.Error("panic in handler",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"panic", v,
				)
				writeError(rec, http.StatusInternalServerError, msgInternal)
			}
			duration := time.Since(start)
			s.metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
			s.metrics.RequestDuration.WithLabelValues(r.Method).Observe(duration.Seconds())
			s.log.Info("request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"tenant", tenantHeader(r),
				"status", rec.status,
				"duration_ms", duration.Milliseconds(),
			)
		}()

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.written {
		return
	}
	r.written = true
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.written = true
	return r.ResponseWriter.Write(b)
}

// tenantContext resolves the routing header, binds the tenant schema to a
// pinned connection and guarantees the reset. The connection state machine
// per request is unbound → bound(namespace) → unbound on every path,
// including panics and client disconnects.
func (s *Server) tenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		code := tenantHeader(r)
		if code == "" {
			writeError(w, http.StatusBadRequest, msgTenantHeaderMissing)
			return
		}

		resolveCtx, cancel := context.WithTimeout(r.Context(), s.cfg.VerifyTimeout)
		tenant, err := s.registry.Resolve(resolveCtx, code)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, tenancy.ErrTenantUnknown):
				writeError(w, http.StatusNotFound, msgTenantUnknown)
			case errors.Is(err, context.DeadlineExceeded):
				writeError(w, http.StatusInternalServerError, msgDeadlineExceeded)
			default:
				s.log.Error("tenant resolve failed", "tenant", code, "error", err)
				writeError(w, http.StatusInternalServerError, msgInternal)
			}
			return
		}

		lease, err := s.binder.Bind(r.Context(), tenant.SchemaName)
		if err != nil {
			s.metrics.SchemaBindFailures.Inc()
			s.log.Error("schema bind failed", "tenant", tenant.Code, "schema", tenant.SchemaName, "error", err)
			writeError(w, http.StatusInternalServerError, msgSchemaBindFailed)
			return
		}
		defer lease.Release(r.Context())

		ctx, cancelHandler := context.WithTimeout(r.Context(), s.cfg.HandlerTimeout)
		defer cancelHandler()

		ctx = withTenant(ctx, tenant)
		ctx = withLease(ctx, lease)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth verifies the bearer token, cross-checks its tenant code
// against the bound tenant, loads the user from the bound schema and
// attaches the effective module set. Public and exempt paths pass through.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isExempt(r.URL.Path) || s.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tenant, ok := tenantFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}

		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			s.metrics.AuthFailures.WithLabelValues("auth_missing").Inc()
			writeError(w, http.StatusUnauthorized, msgAuthMissing)
			return
		}

		claims, err := s.codec.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				s.metrics.AuthFailures.WithLabelValues("token_expired").Inc()
				writeError(w, http.StatusUnauthorized, msgTokenExpired)
				return
			}
			s.metrics.AuthFailures.WithLabelValues("token_invalid").Inc()
			writeError(w, http.StatusUnauthorized, msgTokenInvalid)
			return
		}
		if claims.Kind != auth.TokenKindAccess {
			s.metrics.AuthFailures.WithLabelValues("token_invalid").Inc()
			writeError(w, http.StatusUnauthorized, msgTokenInvalid)
			return
		}

		// The cross-check runs before any identity-dependent database
		// read; a token minted for another tenant never touches this
		// tenant's rows.
		if claims.TenantCode != tenant.Code {
			s.metrics.AuthFailures.WithLabelValues("tenant_mismatch").Inc()
			s.log.Warn("tenant mismatch", "token_tenant", claims.TenantCode, "bound_tenant", tenant.Code, "user_id", claims.UserID)
			writeError(w, http.StatusUnauthorized, msgTenantMismatch)
			return
		}

		lease, ok := leaseFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}

		id, err := s.loadIdentity(r.Context(), lease, claims.UserID)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				s.metrics.AuthFailures.WithLabelValues("user_vanished").Inc()
				writeError(w, http.StatusUnauthorized, msgUserVanished)
			case errors.Is(err, context.DeadlineExceeded):
				writeError(w, http.StatusInternalServerError, msgDeadlineExceeded)
			default:
				s.log.Error("identity load failed", "tenant", tenant.Code, "user_id", claims.UserID, "error", err)
				writeError(w, http.StatusInternalServerError, msgInternal)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func (s *Server) loadIdentity(ctx context.Context, lease Lease, userID int64) (identity, error) {
	q := lease.Querier()

	user, err := s.store.UserByID(ctx, q, userID)
	if err != nil {
		return identity{}, err
	}
	modules, err := s.effectiveModules(ctx, lease, user)
	if err != nil {
		return identity{}, err
	}
	return identity{user: user, modules: modules}, nil
}

// requireModule gates a route on one module name.
func (s *Server) requireModule(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, msgAuthMissing)
				return
			}
			for _, name := range id.modules {
				if name == module {
					next.ServeHTTP(w, r)
					return
				}
			}
			s.metrics.AuthFailures.WithLabelValues("module_denied").Inc()
			writeError(w, http.StatusForbidden, msgModuleDenied+": "+module)
		})
	}
}
