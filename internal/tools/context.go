package tools

import "context"

type userKey struct{}

// WithUser attaches the acting user to the context so handlers know on
// whose behalf a tool call runs.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom extracts the acting user from the context.
func UserFrom(ctx context.Context) string {
	if v, ok := ctx.Value(userKey{}).(string); ok {
		return v
	}
	return ""
}
