package agent

import "context"

type userIDKey struct{}

// WithUserID tags ctx with the id of the user whose turn is being processed.
// Tool handlers that persist per-user state read it back with UserIDFromContext.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user id set by WithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
