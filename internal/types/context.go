package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxUserID    ContextKey = "ctx_user_id"

	// DefaultUserID is used for unattended cron invocations where no
	// operator identity is present.
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

// HTTP headers carrying request attribution
const (
	HeaderRequestID = "X-Request-ID"
)

// Tenant scoping is deliberately NOT carried via context. Every core
// operation takes the tenant id as an explicit parameter so that a write can
// never silently inherit an ambient tenant. Context carries attribution only.

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// SetUserID sets the acting user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}
