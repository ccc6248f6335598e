package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantSchemaSQL(t *testing.T) {
	sql, err := TenantSchemaSQL("tenant_northside")
	require.NoError(t, err)

	assert.NotContains(t, sql, "__SCHEMA__")
	assert.Contains(t, sql, "CREATE SCHEMA IF NOT EXISTS tenant_northside")
	for _, table := range []string{"users", "modules", "roles", "role_permissions", "user_roles", "user_permissions", "academic_years", "students", "teachers"} {
		assert.True(t, strings.Contains(sql, "tenant_northside."+table), "missing table %s", table)
	}
}

func TestTenantSchemaSQLRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "Tenant", "1abc", "a b", `x";DROP SCHEMA shared`, strings.Repeat("a", 64)} {
		_, err := TenantSchemaSQL(name)
		assert.Error(t, err, "name %q must be rejected", name)
	}
}
