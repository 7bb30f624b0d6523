package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certis/internal/auth/models"
	"certis/internal/platform/middleware"
	"certis/internal/transport/http/httputil"
	jsonResponse "certis/internal/transport/http/json"
	dErrors "certis/pkg/domain-errors"
)

// Service defines the authentication operations the handler exposes.
// Each portal authenticates against its own identity class only.
type Service interface {
	AuthenticateAdmin(ctx context.Context, email, secret string) (*models.LoginResult, error)
	AuthenticateHolder(ctx context.Context, email, secret string) (*models.LoginResult, error)
}

// Handler serves the login, token check, and logout endpoints.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register registers the public login routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/login", h.HandleAdminLogin)
	r.Post("/users/login", h.HandleHolderLogin)
}

// RegisterAuthenticated registers routes that require a bearer token.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/auth/verify", h.HandleVerifyToken)
	r.Post("/auth/logout", h.HandleLogout)
}

// HandleAdminLogin implements POST /api/admin/login. A holder's
// credentials are rejected here exactly like bad credentials, so the
// portals leak nothing about which identity class an email belongs to.
func (h *Handler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r, h.auth.AuthenticateAdmin)
}

// HandleHolderLogin implements POST /api/users/login.
func (h *Handler) HandleHolderLogin(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r, h.auth.AuthenticateHolder)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request, authenticate func(context.Context, string, string) (*models.LoginResult, error)) {
	req, ok := httputil.DecodeJSON[models.LoginRequest](w, r, h.logger)
	if !ok {
		return
	}

	res, err := authenticate(r.Context(), req.Email, req.Secret)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}

	jsonResponse.WriteSuccess(w, http.StatusOK, "login successful", res)
}

// HandleVerifyToken implements GET /api/auth/verify. Reaching this
// handler means RequireAuth has already validated the token; it reports
// the identity the token resolves to.
func (h *Handler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		jsonResponse.WriteError(w, dErrors.New(dErrors.CodeTokenInvalid, "invalid token"))
		return
	}

	jsonResponse.WriteSuccess(w, http.StatusOK, "token is valid", map[string]any{
		"identity_id": claims.IdentityID.String(),
		"email":       claims.Email,
		"role":        claims.Role,
		"holder_code": claims.HolderCode,
		"permissions": claims.Permissions,
	})
}

// HandleLogout implements POST /api/auth/logout. Tokens are stateless
// and carry no server-side session; the token stays valid until expiry
// and clients discard it.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims != nil {
		h.logger.InfoContext(r.Context(), "identity logged out",
			"identity_id", claims.IdentityID.String(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "logged out", nil)
}
