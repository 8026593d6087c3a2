package auth

import "context"

// ctxKey is an unexported type for context keys defined in this package.
type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity stores the authenticated caller's user id on the context.
func WithIdentity(ctx context.Context, userID string) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey, userID)
}

// IdentityFromContext returns the authenticated caller's user id, or empty
// when the request was not authenticated.
func IdentityFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(identityKey).(string); ok {
		return userID
	}
	return ""
}
