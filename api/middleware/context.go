package middleware

import "context"

type contextKey string

const (
	ctxUserID      contextKey = "user_id"
	ctxSessionID   contextKey = "session_id"
	ctxAccessToken contextKey = "access_token"
)

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

func SessionIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxSessionID)
}

// AccessTokenFromContext returns the raw bearer token the request was authenticated with.
func AccessTokenFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxAccessToken)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithSession injects the session identifier and its bearer token for downstream handlers.
func WithSession(ctx context.Context, sessionID, accessToken string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	return context.WithValue(ctx, ctxAccessToken, accessToken)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
