package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmodels "certis/internal/auth/models"
	"certis/internal/certificate/models"
	"certis/internal/platform/middleware"
	"certis/internal/transport/http/httputil"
	jsonResponse "certis/internal/transport/http/json"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/strutil"
)

// Service defines the certificate lifecycle operations the handler
// exposes. Authorization is enforced by the service; the router's gates
// exist so denied requests never reach a body decode.
type Service interface {
	Issue(ctx context.Context, claims *authmodels.Claims, req *models.IssueRequest) (*models.View, error)
	Verify(ctx context.Context, certificateID string) (*models.VerificationResult, error)
	Revoke(ctx context.Context, claims *authmodels.Claims, certificateID, reason string) (*models.View, error)
	ListForAdmin(ctx context.Context, claims *authmodels.Claims, page, pageSize int, filter models.Filter) (*models.Page, error)
	ListForHolder(ctx context.Context, claims *authmodels.Claims) ([]models.View, error)
	ListValidForHolder(ctx context.Context, claims *authmodels.Claims) ([]models.View, error)
	Stats(ctx context.Context, claims *authmodels.Claims) (*models.Stats, error)
}

// Handler serves the certificate lifecycle endpoints.
type Handler struct {
	certs  Service
	logger *slog.Logger
}

func New(certs Service, logger *slog.Logger) *Handler {
	return &Handler{certs: certs, logger: logger}
}

// RegisterPublic registers the unauthenticated verification route.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/certificates/verify/{certificate_id}", h.HandleVerify)
}

// RegisterHolderRoutes registers routes for the holder class.
func (h *Handler) RegisterHolderRoutes(r chi.Router) {
	r.Get("/certificates/user", h.HandleOwnHistory)
	r.Get("/users/certificates", h.HandleOwnValid)
}

// HandleIssue implements POST /api/certificates/upload.
// Gated by admin role plus the create_certificate permission.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middleware.GetClaims(ctx)

	req, ok := httputil.DecodeJSON[models.IssueRequest](w, r, h.logger)
	if !ok {
		return
	}
	strutil.TrimStrings(&req.HolderCode, &req.HolderName, &req.HolderEmail, &req.Course, &req.Degree, &req.Grade)

	view, err := h.certs.Issue(ctx, claims, req)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate issuance failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		jsonResponse.WriteError(w, err)
		return
	}

	jsonResponse.WriteSuccess(w, http.StatusCreated, "certificate issued", view)
}

// HandleVerify implements GET /api/certificates/verify/{certificate_id}.
// Public; no token required.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	certificateID := chi.URLParam(r, "certificate_id")
	if certificateID == "" {
		jsonResponse.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "certificate id is required"))
		return
	}

	res, err := h.certs.Verify(r.Context(), certificateID)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}

	message := "certificate is valid"
	if !res.IsValid {
		message = "certificate is not valid"
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, message, res)
}

// HandleRevoke implements POST /api/certificates/{certificate_id}/revoke.
// Gated by admin role plus the revoke_certificate permission.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middleware.GetClaims(ctx)

	certificateID := chi.URLParam(r, "certificate_id")
	if certificateID == "" {
		jsonResponse.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "certificate id is required"))
		return
	}

	// The reason body is optional; an absent or empty body means the
	// default reason.
	var reason string
	if r.Body != nil && r.ContentLength != 0 {
		req, ok := httputil.DecodeJSON[models.RevokeRequest](w, r, h.logger)
		if !ok {
			return
		}
		reason = req.Reason
	}

	view, err := h.certs.Revoke(ctx, claims, certificateID, reason)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate revocation failed",
			"error", err,
			"certificate_id", certificateID,
			"request_id", middleware.GetRequestID(ctx),
		)
		jsonResponse.WriteError(w, err)
		return
	}

	jsonResponse.WriteSuccess(w, http.StatusOK, "certificate revoked", view)
}

// HandleListAll implements GET /api/certificates/admin, paginated and
// filterable by status, holder email, and course.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	q := r.URL.Query()
	filter := models.Filter{
		Status:      models.Status(q.Get("status")),
		HolderEmail: q.Get("holder_email"),
		Course:      q.Get("course"),
	}
	page := httputil.QueryInt(r, "page", 1)
	pageSize := httputil.QueryInt(r, "page_size", 20)

	result, err := h.certs.ListForAdmin(r.Context(), claims, page, pageSize, filter)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "", result)
}

// HandleOwnHistory implements GET /api/certificates/user: the holder's
// full history, revoked records included.
func (h *Handler) HandleOwnHistory(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	views, err := h.certs.ListForHolder(r.Context(), claims)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "", map[string]any{
		"certificates": views,
		"count":        len(views),
	})
}

// HandleOwnValid implements GET /api/users/certificates: the holder's
// display view, currently valid certificates only.
func (h *Handler) HandleOwnValid(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	views, err := h.certs.ListValidForHolder(r.Context(), claims)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "", map[string]any{
		"certificates": views,
		"count":        len(views),
	})
}

// HandleStats implements GET /api/certificates/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	stats, err := h.certs.Stats(r.Context(), claims)
	if err != nil {
		jsonResponse.WriteError(w, err)
		return
	}
	jsonResponse.WriteSuccess(w, http.StatusOK, "", stats)
}
