// Package middleware holds the HTTP middleware for the REST surface.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"famhub-backend/pkg/auth"
	"famhub-backend/pkg/common"

	"go.uber.org/zap"
)

// Authenticate verifies the bearer token on every request and attaches the
// resulting identity to the request context. Handlers downstream trust that
// identity; they never see the token.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				respondUnauthorized(w, "missing authentication token")
				return
			}

			identity, err := validator.Validate(token)
			if err != nil {
				logger.Warn("rejected token",
					zap.Error(err),
					zap.String("path", r.URL.Path))
				if err == auth.ErrExpiredToken {
					respondUnauthorized(w, "token has expired")
				} else {
					respondUnauthorized(w, "invalid token")
				}
				return
			}

			ctx := common.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the bearer token out of the Authorization header.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return authHeader
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    http.StatusUnauthorized,
	})
}
