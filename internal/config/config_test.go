package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "shared", cfg.SharedSchema)
	require.Equal(t, "HS256", cfg.TokenAlgorithm)
	require.Equal(t, 7, cfg.AccessTokenDays)
	require.Equal(t, 14, cfg.RefreshTokenDays)
	require.Equal(t, 250*time.Millisecond, cfg.VerifyTimeout)
	require.Equal(t, []string{"/healthz", "/metrics", "/static/"}, cfg.ExemptRoutePrefixes)
	require.Equal(t, []string{"/api/v1/auth/"}, cfg.PublicRoutePrefixes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_DAYS", "3")
	t.Setenv("REFRESH_TOKEN_DAYS", "30")
	t.Setenv("EXEMPT_ROUTE_PREFIXES", "/admin/,/static/")
	t.Setenv("TOKEN_ALGORITHM", "HS512")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3*24*time.Hour, cfg.AccessTokenTTL())
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL())
	require.Equal(t, []string{"/admin/", "/static/"}, cfg.ExemptRoutePrefixes)
	require.Equal(t, "HS512", cfg.TokenAlgorithm)
}

func TestValidateRejectsShortRefreshLifetime(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_DAYS", "7")
	t.Setenv("REFRESH_TOKEN_DAYS", "10")

	_, err := Load()
	require.Error(t, err)
}

func TestValidateRejectsUnknownAlgorithm(t *testing.T) {
	t.Setenv("TOKEN_ALGORITHM", "RS256")

	_, err := Load()
	require.Error(t, err)
}
