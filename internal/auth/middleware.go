// internal/auth/middleware.go
// HTTP middleware for request authentication

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

// Middleware provides authentication middleware for HTTP routes
type Middleware struct {
	authService Service
}

// NewMiddleware creates an auth middleware instance
func NewMiddleware(authService Service) *Middleware {
	return &Middleware{authService: authService}
}

// Authenticate rejects requests without a valid access token
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			utils.ErrorResponse(w, apperrors.Unauthorized("missing_token", "Authentication required"))
			return
		}

		claims, err := m.authService.ValidateToken(r.Context(), token)
		if err != nil {
			utils.ErrorResponse(w, apperrors.Unauthorized("invalid_token", "Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, roleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthenticate attaches the user identity when a valid token is
// present but lets anonymous requests through.
func (m *Middleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token != "" {
			if claims, err := m.authService.ValidateToken(r.Context(), token); err == nil {
				ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
				ctx = context.WithValue(ctx, roleKey, claims.Role)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}

// ContextWithUserID returns a context carrying the given user identity
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext returns the authenticated user ID, if any
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// GetRoleFromContext returns the authenticated user's role, if any
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey).(string)
	return role, ok
}
