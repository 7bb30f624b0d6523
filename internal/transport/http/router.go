package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "certis/internal/auth/handler"
	certhandler "certis/internal/certificate/handler"
	identityhandler "certis/internal/identity/handler"
	identity "certis/internal/identity/models"
	"certis/internal/platform/health"
	"certis/internal/platform/middleware"
)

// Handlers groups the per-feature handlers the router mounts.
type Handlers struct {
	Auth        *authhandler.Handler
	Identity    *identityhandler.Handler
	Certificate *certhandler.Handler
	Health      *health.Handler
}

// NewRouter wires the full route table. Every state-changing admin route
// is gated by role plus the specific permission, so a bare admin token
// is not enough where a capability is required.
func NewRouter(h Handlers, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	h.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public: logins, holder self-registration, verification.
		h.Auth.Register(r)
		h.Identity.RegisterPublic(r)
		h.Certificate.RegisterPublic(r)

		// Authenticated, any role.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(validator, logger))
			h.Auth.RegisterAuthenticated(r)
		})

		// Administrator class.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(validator, logger))
			r.Use(middleware.RequireRole(identity.RoleAdmin))

			h.Identity.RegisterAdminRoutes(r)

			r.With(middleware.RequirePermission(identity.PermManageUsers)).
				Post("/admin/register", h.Identity.HandleRegisterAdmin)
			r.With(middleware.RequirePermission(identity.PermManageUsers)).
				Get("/admin/all", h.Identity.HandleListAdmins)
			r.With(middleware.RequirePermission(identity.PermViewUsers)).
				Get("/users/all", h.Identity.HandleListHolders)

			r.With(middleware.RequirePermission(identity.PermCreateCertificate)).
				Post("/certificates/upload", h.Certificate.HandleIssue)
			r.With(middleware.RequirePermission(identity.PermRevokeCertificate)).
				Post("/certificates/{certificate_id}/revoke", h.Certificate.HandleRevoke)
			r.Get("/certificates/admin", h.Certificate.HandleListAll)
			r.Get("/certificates/stats", h.Certificate.HandleStats)
		})

		// Holder class.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(validator, logger))
			r.Use(middleware.RequireRole(identity.RoleHolder))

			h.Identity.RegisterHolderRoutes(r)
			h.Certificate.RegisterHolderRoutes(r)
		})
	})

	return r
}
