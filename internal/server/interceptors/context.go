package interceptors

import "context"

type contextKey struct{ name string }

var userIDKey = contextKey{"user_id"}

// WithIdentity returns a context carrying the authenticated user ID.
// Handlers and the authorization gate read it via GetUserID.
func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok && v != ""
}
