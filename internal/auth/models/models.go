package models

import (
	"github.com/google/uuid"

	identity "certis/internal/identity/models"
)

// Claims are the decoded, verified contents of a bearer token, enriched
// with the identity's current permission set at validation time so that
// authorization decisions reflect grants as they are now, not as they
// were when the token was issued.
type Claims struct {
	IdentityID  uuid.UUID
	Email       string
	Role        identity.Role
	HolderCode  string
	Permissions []identity.Permission
}

// HasPermission reports whether the claims carry the named permission.
func (c *Claims) HasPermission(perm identity.Permission) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// LoginRequest carries an identity/secret pair.
type LoginRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	Identity  any    `json:"identity"`
}
