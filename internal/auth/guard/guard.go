// Package guard centralizes role and permission checks. Every decision
// fails closed: absent claims, unknown roles, and missing permissions
// always deny.
package guard

import (
	authmodels "certis/internal/auth/models"
	identity "certis/internal/identity/models"
	dErrors "certis/pkg/domain-errors"
)

// RequireRole denies unless the claims carry one of the allowed roles.
// Administrators and super administrators are both permitted wherever
// plain admin access is required.
func RequireRole(claims *authmodels.Claims, allowed ...identity.Role) error {
	if claims == nil {
		return dErrors.New(dErrors.CodeForbidden, "access denied")
	}
	for _, role := range allowed {
		if claims.Role == role {
			return nil
		}
		if role == identity.RoleAdmin && claims.Role.IsAdminClass() {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "access denied")
}

// RequirePermission denies unless the claims belong to an administrator
// class identity holding the named permission. Holder-class identities
// are always denied.
func RequirePermission(claims *authmodels.Claims, perm identity.Permission) error {
	if claims == nil || !claims.Role.IsAdminClass() {
		return dErrors.New(dErrors.CodeForbidden, "access denied")
	}
	if !claims.HasPermission(perm) {
		return dErrors.New(dErrors.CodeForbidden, "missing permission: "+string(perm))
	}
	return nil
}
