package models

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies an authenticated principal.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleHolder     Role = "holder"
)

// IsAdminClass reports whether the role carries administrator access.
// Super admins are permitted wherever plain admin access is required.
func (r Role) IsAdminClass() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Permission is a named capability grantable to administrator identities,
// checked independently of role.
type Permission string

const (
	PermCreateCertificate Permission = "create_certificate"
	PermRevokeCertificate Permission = "revoke_certificate"
	PermViewUsers         Permission = "view_users"
	PermManageUsers       Permission = "manage_users"
	PermSystemSettings    Permission = "system_settings"
)

// AllPermissions is the full capability set, granted to super admins.
func AllPermissions() []Permission {
	return []Permission{
		PermCreateCertificate,
		PermRevokeCertificate,
		PermViewUsers,
		PermManageUsers,
		PermSystemSettings,
	}
}

// DefaultAdminPermissions is the capability set granted to plain admins
// on registration unless the registrar specifies otherwise.
func DefaultAdminPermissions() []Permission {
	return []Permission{
		PermCreateCertificate,
		PermRevokeCertificate,
		PermViewUsers,
	}
}

// Admin is an administrator identity. The secret is stored only as a
// salted one-way hash; admins are soft-deactivated, never deleted.
type Admin struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Department   string
	Role         Role
	Permissions  []Permission
	IsActive     bool
	LastLogin    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPermission reports whether the admin's permission set contains perm.
func (a *Admin) HasPermission(perm Permission) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HolderStatus tracks a holder's enrollment state.
type HolderStatus string

const (
	HolderActive    HolderStatus = "active"
	HolderSuspended HolderStatus = "suspended"
	HolderGraduated HolderStatus = "graduated"
	HolderWithdrawn HolderStatus = "withdrawn"
)

// Holder is a credential holder identity. HolderCode is the unique
// external identifier; CertificateIDs references certificates owned by
// the certificate store, not by the holder record.
type Holder struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	Name               string
	HolderCode         string
	Program            string
	EnrolledAt         time.Time
	ExpectedCompletion time.Time
	Status             HolderStatus
	CertificateIDs     []string
	IsActive           bool
	LastLogin          time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
