package auth

import (
	"context"
	"net/http"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

// AdminOnly rejects requests without a valid admin token. An empty secret
// rejects everything.
func AdminOnly(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				utils.WriteError(w, http.StatusServiceUnavailable, "admin API is not configured")
				return
			}

			raw, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims, err := ParseToken(raw, key)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", r.Method+" "+r.URL.Path+": "+err.Error())
				utils.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if claims.Role != RoleAdmin {
				log.LogSecurity("FORBIDDEN", r.Method+" "+r.URL.Path+" by "+claims.Subject)
				utils.WriteError(w, http.StatusForbidden, ErrForbidden.Error())
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the subject of the admin token, if any.
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}

