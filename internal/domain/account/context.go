package account

import "context"

type contextKey string

const userKey contextKey = "app_user"

// WithUser attaches the hydrated identity to ctx.
func WithUser(ctx context.Context, u *AppUser) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the identity attached by the auth middleware, or
// nil for an anonymous request.
func UserFromContext(ctx context.Context) *AppUser {
	u, _ := ctx.Value(userKey).(*AppUser)
	return u
}
