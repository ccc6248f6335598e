package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/edukit/edukit/internal/auth"
	"github.com/edukit/edukit/internal/crypto"
	"github.com/edukit/edukit/internal/model"
	"github.com/edukit/edukit/internal/rbac"
	"github.com/edukit/edukit/internal/repository"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type userInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
}

type tenantInfo struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

type yearInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type moduleAccess struct {
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon"`
	CanView     bool   `json:"can_view"`
	CanAdd      bool   `json:"can_add"`
	CanEdit     bool   `json:"can_edit"`
	CanDelete   bool   `json:"can_delete"`
	CanImport   bool   `json:"can_import"`
	CanExport   bool   `json:"can_export"`
}

type loginResponse struct {
	Success          bool                    `json:"success"`
	Tokens           tokenPair               `json:"tokens"`
	User             userInfo                `json:"user"`
	Tenant           tenantInfo              `json:"tenant"`
	Modules          []string                `json:"modules"`
	ModulesAccessMap map[string]moduleAccess `json:"modules_access_map"`
	AcademicYear     *yearInfo               `json:"academic_year,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromContext(r.Context())
	lease, leaseOK := leaseFromContext(r.Context())
	if !ok || !leaseOK {
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	if !s.limiter.allow(tenant.Code + "|" + clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, msgTooManyAttempts)
		return
	}

	q := lease.Querier()
	user, err := s.store.UserByEmail(r.Context(), q, req.Email)
	if err != nil {
		// One uniform answer for "no such user" and "wrong password".
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthFailures.WithLabelValues("invalid_credentials").Inc()
			writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		s.writeStoreError(w, tenant, err)
		return
	}
	if crypto.CheckPassword(user.PasswordHash, req.Password) != nil {
		s.metrics.AuthFailures.WithLabelValues("invalid_credentials").Inc()
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	catalog, err := s.store.ActiveModules(r.Context(), q)
	if err != nil {
		s.writeStoreError(w, tenant, err)
		return
	}
	modules, err := s.effectiveModulesWithCatalog(r.Context(), lease, user, catalog)
	if err != nil {
		s.writeStoreError(w, tenant, err)
		return
	}

	accessToken, err := s.codec.IssueAccess(user, tenant)
	if err != nil {
		s.log.Error("access token issue failed", "tenant", tenant.Code, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	refreshToken, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		s.log.Error("refresh token issue failed", "tenant", tenant.Code, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	resp := loginResponse{
		Success: true,
		Tokens:  tokenPair{Access: accessToken, Refresh: refreshToken},
		User: userInfo{
			ID:       user.ID,
			Name:     user.FullName,
			Email:    user.Email,
			UserType: string(user.Kind),
		},
		Tenant: tenantInfo{
			ID:     tenant.ID,
			Name:   tenant.Name,
			Schema: tenant.SchemaName,
		},
		Modules:          modules,
		ModulesAccessMap: accessMap(modules, catalog),
	}

	if year, err := s.store.ActiveAcademicYear(r.Context(), q); err == nil {
		resp.AcademicYear = &yearInfo{ID: year.ID, Name: year.Name}
	}

	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromContext(r.Context())
	lease, leaseOK := leaseFromContext(r.Context())
	if !ok || !leaseOK {
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	claims, err := s.codec.Verify(req.RefreshToken)
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
	if claims.Kind != auth.TokenKindRefresh {
		s.metrics.AuthFailures.WithLabelValues("token_invalid").Inc()
		writeError(w, http.StatusUnauthorized, msgTokenInvalid)
		return
	}

	user, err := s.store.UserByID(r.Context(), lease.Querier(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthFailures.WithLabelValues("user_vanished").Inc()
			writeError(w, http.StatusUnauthorized, msgUserVanished)
			return
		}
		s.writeStoreError(w, tenant, err)
		return
	}

	accessToken, err := s.codec.IssueAccess(user, tenant)
	if err != nil {
		s.log.Error("access token issue failed", "tenant", tenant.Code, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "access_token": accessToken})
}

// handleLogout is stateless: clients drop their tokens, the server keeps no
// revocation list.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) effectiveModules(ctx context.Context, lease Lease, user model.User) ([]string, error) {
	catalog, err := s.store.ActiveModules(ctx, lease.Querier())
	if err != nil {
		return nil, err
	}
	return s.effectiveModulesWithCatalog(ctx, lease, user, catalog)
}

func (s *Server) effectiveModulesWithCatalog(ctx context.Context, lease Lease, user model.User, catalog []model.Module) ([]string, error) {
	q := lease.Querier()
	roleCodes, err := s.store.RoleCodes(ctx, q, user.ID)
	if err != nil {
		return nil, err
	}
	overrides, err := s.store.Overrides(ctx, q, user.ID)
	if err != nil {
		return nil, err
	}
	return rbac.EffectiveModules(user, roleCodes, overrides, catalog), nil
}

func accessMap(modules []string, catalog []model.Module) map[string]moduleAccess {
	meta := make(map[string]model.Module, len(catalog))
	for _, m := range catalog {
		meta[m.Name] = m
	}
	out := make(map[string]moduleAccess, len(modules))
	for _, name := range modules {
		m := meta[name]
		out[name] = moduleAccess{
			DisplayName: m.DisplayName,
			Icon:        m.Icon,
			CanView:     true,
			CanAdd:      true,
			CanEdit:     true,
			CanDelete:   true,
			CanImport:   true,
			CanExport:   true,
		}
	}
	return out
}

func (s *Server) writeStoreError(w http.ResponseWriter, tenant model.Tenant, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusInternalServerError, msgDeadlineExceeded)
		return
	}
	s.log.Error("store read failed", "tenant", tenant.Code, "error", err)
	writeError(w, http.StatusInternalServerError, msgInternal)
}
