package middleware

import (
	"net/http"

	"kidney-story/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin only lets admins through. It must run after AuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFrom(r.Context())
			if !actor.Authenticated() {
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			for _, role := range allowedRoles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("User role not authorized",
				zap.String("user_id", actor.UserID.String()),
				zap.String("role", actor.Role),
				zap.Strings("allowed_roles", allowedRoles),
				zap.String("path", r.URL.Path),
			)
			RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}
