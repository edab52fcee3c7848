package auth

import (
	"context"

	"github.com/streamtube/backend/internal/models"
)

type identityKey struct{}

// WithUser attaches the authenticated user to the context. The stored value
// is the projection resolved by the guard, never a client-supplied identity.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, identityKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(identityKey{}).(models.User)
	return user, ok
}
