// Package handlers translates HTTP requests into repository calls and
// repository errors into HTTP responses.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"famhub-backend/application/ports"
	"famhub-backend/pkg/common"
	apperrors "famhub-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps an application error onto its HTTP status. Rate-limit
// errors additionally carry a Retry-After header.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		logger.Error("unclassified error", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	if appErr.Type == apperrors.ErrorTypeRateLimit {
		seconds := int(appErr.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Error(err))
	}
	respondJSON(w, appErr.HTTPStatus, errorBody(appErr.Message))
}

func errorBody(message string) map[string]interface{} {
	return map[string]interface{}{
		"error":   true,
		"message": message,
	}
}

// decodeBody parses and validates a JSON request body.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request body").WithCause(err)
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// callerIdentity returns the authenticated identity the middleware attached.
func callerIdentity(w http.ResponseWriter, r *http.Request) (common.Identity, bool) {
	identity, ok := common.GetIdentity(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorBody("not authenticated"))
		return common.Identity{}, false
	}
	return identity, true
}

// pagination reads the shared limit/cursor/order query parameters.
func pagination(r *http.Request) ports.PageOptions {
	page := ports.PageOptions{Cursor: r.URL.Query().Get("cursor")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			page.Limit = int32(limit)
		}
	}
	page.Descending = r.URL.Query().Get("order") == "desc"
	return page
}
