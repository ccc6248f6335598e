package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/edukit/edukit/internal/db"
	"github.com/edukit/edukit/internal/model"
)

// ErrNotFound is returned when a row does not exist in the bound schema.
var ErrNotFound = errors.New("not found")

// Store reads per-tenant rows. Every method takes the Querier of the
// request's schema lease, so a query can never run against the wrong
// tenant: the table names are unqualified and resolve through the bound
// search_path.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) UserByEmail(ctx context.Context, q db.Querier, email string) (model.User, error) {
	return scanUser(q.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, kind, active, created_at, updated_at
		FROM users
		WHERE email = $1 AND active
	`, email))
}

func (s *Store) UserByID(ctx context.Context, q db.Querier, userID int64) (model.User, error) {
	return scanUser(q.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, kind, active, created_at, updated_at
		FROM users
		WHERE id = $1 AND active
	`, userID))
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Kind,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return user, err
}

// RoleCodes returns the union of permission codes attached to the user's
// active roles, the role itself included in the active check.
func (s *Store) RoleCodes(ctx context.Context, q db.Querier, userID int64) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT DISTINCT rp.code
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		JOIN role_permissions rp ON rp.role_id = r.id
		WHERE ur.user_id = $1 AND ur.active AND r.active
		ORDER BY rp.code
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Overrides returns the user's direct grants and denies in assignment
// order, ties broken by code. The oracle relies on this ordering.
func (s *Store) Overrides(ctx context.Context, q db.Querier, userID int64) ([]model.PermissionOverride, error) {
	rows, err := q.Query(ctx, `
		SELECT code, granted, assigned_at
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY assigned_at, code
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []model.PermissionOverride
	for rows.Next() {
		var o model.PermissionOverride
		if err := rows.Scan(&o.Code, &o.Granted, &o.AssignedAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (s *Store) ActiveModules(ctx context.Context, q db.Querier) ([]model.Module, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, display_name, icon, active
		FROM modules
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []model.Module
	for rows.Next() {
		var m model.Module
		if err := rows.Scan(&m.ID, &m.Name, &m.DisplayName, &m.Icon, &m.Active); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// ActiveAcademicYear returns the tenant's single active academic year.
// Tenants are provisioned with at most one active row.
func (s *Store) ActiveAcademicYear(ctx context.Context, q db.Querier) (model.AcademicYear, error) {
	var year model.AcademicYear
	err := q.QueryRow(ctx, `
		SELECT id, name, starts_on, ends_on, active
		FROM academic_years
		WHERE active
		ORDER BY starts_on DESC
		LIMIT 1
	`).Scan(&year.ID, &year.Name, &year.StartsOn, &year.EndsOn, &year.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AcademicYear{}, ErrNotFound
	}
	return year, err
}
