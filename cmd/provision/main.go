// Command provision creates a tenant: the registry row, the tenant schema
// stamped from the embedded template, and the initial seed data (modules,
// the admin account and the active academic year).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edukit/edukit/internal/config"
	"github.com/edukit/edukit/internal/crypto"
	"github.com/edukit/edukit/internal/migrations"
	"github.com/edukit/edukit/internal/model"
)

var defaultModules = []struct {
	name, display, icon string
}{
	{"students", "Students", "users"},
	{"teachers", "Teachers", "briefcase"},
	{"attendance", "Attendance", "calendar-check"},
	{"grades", "Grades", "chart-bar"},
	{"fees", "Fees", "credit-card"},
}

func main() {
	var (
		code          = flag.String("code", "", "tenant code used in the routing header")
		name          = flag.String("name", "", "tenant display name")
		schema        = flag.String("schema", "", "tenant schema name (default tenant_<code>)")
		adminEmail    = flag.String("admin-email", "", "initial admin account email")
		adminPassword = flag.String("admin-password", "", "initial admin account password")
		yearName      = flag.String("year", "", "active academic year name, e.g. 2026-2027")
	)
	flag.Parse()

	if *code == "" || *name == "" || *adminEmail == "" || *adminPassword == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *schema == "" {
		*schema = "tenant_" + *code
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("config load failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := applyShared(cfg.DatabaseURL); err != nil {
		fatal("shared migrations failed: %v", err)
	}

	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("db connection failed: %v", err)
	}
	defer conn.Close(ctx)

	if err := provision(ctx, conn, cfg.SharedSchema, *code, *name, *schema, *adminEmail, *adminPassword, *yearName); err != nil {
		fatal("provisioning failed: %v", err)
	}

	fmt.Printf("tenant %s provisioned in schema %s\n", *code, *schema)
}

func provision(ctx context.Context, conn *pgx.Conn, sharedSchema, code, name, schema, adminEmail, adminPassword, yearName string) error {
	ddl, err := migrations.TenantSchemaSQL(schema)
	if err != nil {
		return err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	registerSQL := fmt.Sprintf(`
		INSERT INTO %s.tenants (code, name, schema_name, active)
		VALUES ($1, $2, $3, TRUE)
	`, pgx.Identifier{sharedSchema}.Sanitize())
	if _, err := tx.Exec(ctx, registerSQL, code, name, schema); err != nil {
		return fmt.Errorf("register tenant: %w", err)
	}

	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create tenant schema: %w", err)
	}

	qualified := pgx.Identifier{schema}.Sanitize()

	for _, m := range defaultModules {
		insert := fmt.Sprintf(`
			INSERT INTO %s.modules (name, display_name, icon, active)
			VALUES ($1, $2, $3, TRUE)
		`, qualified)
		if _, err := tx.Exec(ctx, insert, m.name, m.display, m.icon); err != nil {
			return fmt.Errorf("seed module %s: %w", m.name, err)
		}
	}

	hash, err := crypto.HashPassword(adminPassword)
	if err != nil {
		return err
	}
	adminInsert := fmt.Sprintf(`
		INSERT INTO %s.users (email, password_hash, full_name, kind, active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, qualified)
	if _, err := tx.Exec(ctx, adminInsert, adminEmail, hash, "Administrator", string(model.KindAdmin)); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if yearName != "" {
		now := time.Now()
		yearInsert := fmt.Sprintf(`
			INSERT INTO %s.academic_years (name, starts_on, ends_on, active)
			VALUES ($1, $2, $3, TRUE)
		`, qualified)
		if _, err := tx.Exec(ctx, yearInsert, yearName, now, now.AddDate(1, 0, 0)); err != nil {
			return fmt.Errorf("seed academic year: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func applyShared(databaseURL string) error {
	handle, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer handle.Close()
	return migrations.ApplyShared(handle)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
