package actorctx

import "context"

type userIDKey struct{}

// WithUserID records the authenticated caller on a request context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey{}).(string)

	return v, ok && v != ""
}
