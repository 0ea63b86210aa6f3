package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/praxis/backend/internal/auth"
	"github.com/praxis/backend/pkg/response"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	requestInfoKey contextKey = "request_info"
)

// TokenVerifier resolves a bearer token to the uid it was issued for
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// AuthMiddleware requires a valid Firebase ID token
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			uid, err := verifier.VerifyIDToken(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					response.Unauthorized(w, "token has expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

// WithUserID stores the authenticated uid in ctx
func WithUserID(ctx context.Context, uid string) context.Context {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.userID = uid
	}
	return context.WithValue(ctx, UserIDKey, uid)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
