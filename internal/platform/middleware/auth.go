package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"certis/internal/auth/guard"
	authmodels "certis/internal/auth/models"
	identity "certis/internal/identity/models"
	"certis/internal/transport/http/json"
	dErrors "certis/pkg/domain-errors"
)

// TokenValidator resolves a bearer token into enriched claims. A token
// whose identity has been deactivated or deleted fails validation even
// when the signature is still good.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*authmodels.Claims, error)
}

type claimsKey struct{}

// GetClaims retrieves the authenticated claims from the context.
// Returns nil on unauthenticated requests.
func GetClaims(ctx context.Context) *authmodels.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*authmodels.Claims)
	return claims
}

// RequireAuth extracts and validates the bearer token, storing claims in
// the request context for downstream handlers.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing bearer token",
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				json.WriteError(w, dErrors.New(dErrors.CodeTokenInvalid, "missing or malformed Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - token rejected",
					"error", err,
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				json.WriteError(w, err)
				return
			}

			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose role does not satisfy
// any of the allowed roles. Must run after RequireAuth.
func RequireRole(allowed ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := guard.RequireRole(GetClaims(r.Context()), allowed...); err != nil {
				json.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission rejects authenticated requests lacking the named
// permission. Must run after RequireAuth.
func RequirePermission(perm identity.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := guard.RequirePermission(GetClaims(r.Context()), perm); err != nil {
				json.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
