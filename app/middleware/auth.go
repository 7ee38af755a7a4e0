package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zuricore/identity-service/app/services"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRoleID ctxKey = "roleID"
)

// Authenticate validates the bearer session token and injects the caller's
// identity into the request context.
func Authenticate(sessions *services.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "missing or invalid authorization header")
				return
			}

			claims, err := sessions.Validate(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				unauthorized(w, "invalid or expired session token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxRoleID, claims.RoleID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the user ID set by Authenticate.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ctxUserID).(int64)
	return v, ok
}

// RoleIDFromContext retrieves the role ID set by Authenticate.
func RoleIDFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ctxRoleID).(int)
	return v, ok
}

// RequireRoles rejects callers whose role is not in the allowed list. It must
// run after Authenticate.
func RequireRoles(allowed ...int) func(http.Handler) http.Handler {
	allowedSet := make(map[int]struct{}, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleID, ok := RoleIDFromContext(r.Context())
			if !ok {
				forbidden(w, "role not found in context")
				return
			}
			if _, ok := allowedSet[roleID]; !ok {
				forbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg)
}

func forbidden(w http.ResponseWriter, msg string) {
	writeJSONError(w, http.StatusForbidden, "FORBIDDEN", msg)
}
