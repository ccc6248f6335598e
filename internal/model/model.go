package model

import "time"

// Tenant is a row in the shared tenant registry. Code is the routing key
// carried in the tenant header; SchemaName is the physical schema holding
// the tenant's tables and is immutable after provisioning.
type Tenant struct {
	ID         int64
	Code       string
	Name       string
	SchemaName string
	Active     bool
	CreatedAt  time.Time
}

// UserKind is the closed set of principal types a tenant can hold.
type UserKind string

const (
	KindAdmin      UserKind = "admin"
	KindPrincipal  UserKind = "principal"
	KindTeacher    UserKind = "teacher"
	KindStudent    UserKind = "student"
	KindParent     UserKind = "parent"
	KindStaff      UserKind = "staff"
	KindAccountant UserKind = "accountant"
)

func (k UserKind) Valid() bool {
	switch k {
	case KindAdmin, KindPrincipal, KindTeacher, KindStudent, KindParent, KindStaff, KindAccountant:
		return true
	default:
		return false
	}
}

// User lives inside exactly one tenant schema. IDs are unique within the
// tenant only; nothing may assume cross-tenant uniqueness.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Kind         UserKind
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Module is a named feature area, the unit of authorization.
type Module struct {
	ID          int64
	Name        string
	DisplayName string
	Icon        string
	Active      bool
}

type Role struct {
	ID     int64
	Name   string
	Active bool
}

// PermissionOverride is a per-user grant or deny of a permission code,
// applied on top of role-derived codes in assignment order.
type PermissionOverride struct {
	Code       string
	Granted    bool
	AssignedAt time.Time
}

type AcademicYear struct {
	ID       int64
	Name     string
	StartsOn time.Time
	EndsOn   time.Time
	Active   bool
}

type Student struct {
	ID        int64
	FullName  string
	Email     string
	ClassName string
}

type Teacher struct {
	ID       int64
	FullName string
	Email    string
	Subject  string
}
