package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"certis/internal/identity/models"
	"certis/internal/platform/middleware"
	"certis/internal/transport/http/httputil"
	jsonResponse "certis/internal/transport/http/json"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/strutil"
)

// Service defines the identity operations the handler exposes.
type Service interface {
	RegisterAdmin(ctx context.Context, req *models.RegisterAdminRequest) (*models.AdminView, error)
	RegisterHolder(ctx context.Context, req *models.RegisterHolderRequest) (*models.HolderView, error)
	GetAdminProfile(ctx context.Context, adminID uuid.UUID) (*models.AdminView, error)
	UpdateAdminProfile(ctx context.Context, adminID uuid.UUID, req *models.UpdateAdminProfileRequest) (*models.AdminView, error)
	GetHolderProfile(ctx context.Context, holderID uuid.UUID) (*models.HolderView, error)
	UpdateHolderProfile(ctx context.Context, holderID uuid.UUID, req *models.UpdateHolderProfileRequest) (*models.HolderView, error)
	ListAdmins(ctx context.Context) ([]models.AdminView, error)
	ListHolders(ctx context.Context, page, pageSize int, filter models.HolderFilter) ([]models.HolderView, int, error)
}

// Handler serves registration, profile, and identity listing endpoints.
type Handler struct {
	identities Service
	logger     *slog.Logger
}

func New(identities Service, logger *slog.Logger) *Handler {
	return &Handler{identities: identities, logger: logger}
}

// RegisterPublic registers routes that need no token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/users/register", h.HandleRegisterHolder)
}

// RegisterAdminRoutes registers routes for the administrator class.
// Permission gates are applied per-route by the parent router.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/profile", h.HandleGetAdminProfile)
	r.Put("/admin/profile", h.HandleUpdateAdminProfile)
}

// RegisterHolderRoutes registers routes for the holder class.
func (h *Handler) RegisterHolderRoutes(r chi.Router) {
	r.Get("/users/profile", h.HandleGetHolderProfile)
	r.Put("/users/profile", h.HandleUpdateHolderProfile)
}

// HandleRegisterAdmin implements POST /api/admin/register.
// Gated by admin role plus the manage_users permission.
func (h *Handler) HandleRegisterAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[models.RegisterAdminRequest](w, r, h.logger)
	if !ok {
		return
	}
	strutil.TrimStrings(&req.Name, &req.Department)

	view, err := h.identities.RegisterAdmin(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "admin registration failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		jsonResponse.WriteError(w, err)
		return
	}

	jsonResponse.WriteSuccess(w, http.StatusCreated, "administrator registered", view)
}

// HandleRegisterHolder implements POST /api/users/register. Public.
func (h *Handler) HandleRegisterHolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[models.RegisterHolderRequest](w, r, h.logger)
	if !ok {
		return
	}
	strutil.TrimStrings(&req.Name, &req.HolderCode, &req.Program)

	view, err := h.identities.RegisterHolder(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "holder registration failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		jsonResponse.WriteError(w, err)
		return
	}

	jsonResponse.WriteSuccess(w, http.StatusCreated, "holder registered", view)
}

// HandleGetAdminProfile implements GET /api/admin/profile.
func (h *Handler) HandleGetAdminProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		jsonResponse.WriteError(w, dErrors.New(dErrors.CodeTokenInvalid, "invalid token"))
		return
	}

	view, err := h.identities.GetAdminProfile(r.Context(), claims.IdentityID)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "", view)
}

// HandleUpdateAdminProfile implements PUT /api/admin/profile. Identity
// and email are immutable; only name, department, and secret may change.
func (h *Handler) HandleUpdateAdminProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		jsonResponse.WriteError(w, dErrors.New(dErrors.CodeTokenInvalid, "invalid token"))
		return
	}

	req, ok := httputil.DecodeJSON[models.UpdateAdminProfileRequest](w, r, h.logger)
	if !ok {
		return
	}
	strutil.TrimStrings(&req.Name, &req.Department)

	view, err := h.identities.UpdateAdminProfile(r.Context(), claims.IdentityID, req)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "profile updated", view)
}

// HandleGetHolderProfile implements GET /api/users/profile.
func (h *Handler) HandleGetHolderProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		jsonResponse.WriteError(w, dErrors.New(dErrors.CodeTokenInvalid, "invalid token"))
		return
	}

	view, err := h.identities.GetHolderProfile(r.Context(), claims.IdentityID)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "", view)
}

// HandleUpdateHolderProfile implements PUT /api/users/profile. Profile
// edits never touch certificates already issued; holder name and email
// snapshots on a certificate record what was true at issuance.
func (h *Handler) HandleUpdateHolderProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		jsonResponse.WriteError(w, dErrors.New(dErrors.CodeTokenInvalid, "invalid token"))
		return
	}

	req, ok := httputil.DecodeJSON[models.UpdateHolderProfileRequest](w, r, h.logger)
	if !ok {
		return
	}
	strutil.TrimStrings(&req.Name, &req.Program)

	view, err := h.identities.UpdateHolderProfile(r.Context(), claims.IdentityID, req)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "profile updated", view)
}

// HandleListAdmins implements GET /api/admin/all.
// Gated by admin role plus the manage_users permission.
func (h *Handler) HandleListAdmins(w http.ResponseWriter, r *http.Request) {
	views, err := h.identities.ListAdmins(r.Context())
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "", map[string]any{
		"admins": views,
		"count":  len(views),
	})
}

// HandleListHolders implements GET /api/users/all, paginated and
// filterable by status, program, and free-text search.
// Gated by admin role plus the view_users permission.
func (h *Handler) HandleListHolders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.HolderFilter{
		Status:  models.HolderStatus(q.Get("status")),
		Program: q.Get("program"),
		Search:  q.Get("search"),
	}
	page := httputil.QueryInt(r, "page", 1)
	pageSize := httputil.QueryInt(r, "page_size", 20)

	views, total, err := h.identities.ListHolders(r.Context(), page, pageSize, filter)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "", map[string]any{
		"holders":     views,
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
	})
}
