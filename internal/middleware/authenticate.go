package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/models"
)

// AccessVerifier validates access tokens and returns their claims.
type AccessVerifier interface {
	VerifyAccess(token string) (auth.AccessClaims, error)
}

// UserResolver loads the sanitized user projection for an authenticated id.
type UserResolver interface {
	FindProfileByID(ctx context.Context, id string) (models.User, error)
}

// AccessTokenCookie is the cookie carrying the access token. It takes
// precedence over the Authorization header.
const AccessTokenCookie = "accessToken"

// Authenticate resolves the bearer token to a live user and attaches it to
// the request context. The resolved identity is the sole source of truth for
// downstream ownership checks.
func Authenticate(tokens AccessVerifier, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := bearerToken(r)
			if token == "" {
				unauthorized(ctx, w, "authentication required")
				return
			}

			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				unauthorized(ctx, w, "invalid access token")
				return
			}

			user, err := users.FindProfileByID(ctx, claims.Subject)
			if err != nil {
				unauthorized(ctx, w, "invalid access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}

	return ""
}

func unauthorized(ctx context.Context, w http.ResponseWriter, message string) {
	logging.FromContext(ctx).Warn("request rejected", "status", http.StatusUnauthorized, "reason", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": http.StatusUnauthorized,
		"data":       nil,
		"message":    message,
		"success":    false,
	})
}
