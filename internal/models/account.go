package models

import (
	"time"
)

// Role identifies which console an account authenticates into.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Account is a principal capable of authenticating. Super admins live in the
// users table, admins in the admins table.
type Account struct {
	ID                string
	Email             string
	Name              string
	PasswordHash      string
	Role              Role
	IsActive          bool
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
