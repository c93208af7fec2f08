package middleware

import (
	"net/http"
	"slices"
	"strings"

	"chauffeur-backoffice/pkg/utils"

	"go.uber.org/zap"
)

// Auth validates the bearer JWT and puts the caller identity on the context.
// Resolving the tenant from that identity is left to the handlers.
func Auth(config utils.JWTConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			identity, err := utils.ParseAccessToken(config, token)
			if err != nil {
				logger.Warn("Invalid access token",
					zap.Error(err),
					zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := utils.SetIdentityContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose token role is not one of roles.
func RequireRole(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := utils.GetIdentityFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			if !slices.Contains(roles, identity.Role) {
				logger.Warn("Role check: access denied",
					zap.String("user_id", identity.UserID.String()),
					zap.String("role", identity.Role),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Insufficient role for this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
