package adminauth

import "context"

type moderatorContextKey struct{}

func WithModerator(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, moderatorContextKey{}, claims)
}

func ModeratorFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(moderatorContextKey{}).(Claims)
	return claims, ok
}
