package auth

import "context"

type contextKey string

const userKey contextKey = "auth_user"

func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(userKey).(*AuthUser)
	return user, ok && user != nil
}
