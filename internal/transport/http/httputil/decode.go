package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"certis/internal/platform/middleware"
	transportjson "certis/internal/transport/http/json"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/validation"
)

// DecodeJSON decodes a JSON request body into the target type and runs
// struct validation. On failure it writes the error response and returns
// nil, false; callers just return.
//
// Usage:
//
//	req, ok := httputil.DecodeJSON[models.IssueRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	ctx := r.Context()

	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		transportjson.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if err := validation.Validate(&req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		transportjson.WriteError(w, err)
		return nil, false
	}

	return &req, true
}

// QueryInt parses an optional integer query parameter, returning def
// when absent or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
