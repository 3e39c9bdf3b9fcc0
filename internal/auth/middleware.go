package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// UserIDKey is the context key holding the authenticated user's id
const UserIDKey contextKey = "user_id"

// Middleware guards API routes with session-token authentication.
// When auth is disabled the middleware passes every request through.
func Middleware(authenticator *Authenticator, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || isPublicEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
				return
			}

			userID, err := authenticator.ValidateToken(r.Context(), token)
			if err != nil {
				http.Error(w, "Unauthorized: invalid or expired session", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the session token from the Authorization header,
// falling back to the session_token cookie.
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	cookie, err := r.Cookie("session_token")
	if err == nil {
		return cookie.Value
	}
	return ""
}

func isPublicEndpoint(path string) bool {
	publicPaths := []string{
		"/api/login",
		"/api/health",
	}

	for _, p := range publicPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// GetUserID extracts the authenticated user's id from the request context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
