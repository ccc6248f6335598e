// Package migrations embeds the database schema. The shared registry is
// managed by goose; tenant schemas are stamped from a template at
// provisioning time, one copy per tenant.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed shared/*.sql
var sharedFS embed.FS

//go:embed tenant/template.sql
var tenantTemplate string

var schemaNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ApplyShared brings the shared registry schema up to date.
func ApplyShared(db *sql.DB) error {
	goose.SetBaseFS(sharedFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "shared"); err != nil {
		return fmt.Errorf("apply shared migrations: %w", err)
	}
	return nil
}

// TenantSchemaSQL renders the tenant template for one schema name. The name
// is validated rather than quoted because it is spliced into DDL.
func TenantSchemaSQL(schemaName string) (string, error) {
	if !schemaNameRe.MatchString(schemaName) {
		return "", fmt.Errorf("invalid schema name %q", schemaName)
	}
	return strings.ReplaceAll(tenantTemplate, "__SCHEMA__", schemaName), nil
}
