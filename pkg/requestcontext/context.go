// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
//
// Usage in services:
//
//	userID := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "trustbadge/pkg/domain"
)

type (
	userIDKey    struct{}
	requestIDKey struct{}
	timeKey      struct{}
	userAgentKey struct{}
	adminKey     struct{}
)

// WithUserID injects the authenticated user into a context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user, or the zero UserID when absent.
func UserID(ctx context.Context) id.UserID {
	if v, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return v
	}
	return id.UserID{}
}

// WithRequestID injects the request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request correlation ID, or "".
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime pins the request-scoped clock. All timestamps written during one
// request share this instant.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the request-scoped time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

// WithUserAgent records the raw User-Agent of the calling device.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

// UserAgent returns the raw User-Agent, or "".
func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// WithAdminActor marks the context as carrying an authenticated admin actor.
func WithAdminActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, adminKey{}, actor)
}

// AdminActor returns the admin actor label, or "".
func AdminActor(ctx context.Context) string {
	if v, ok := ctx.Value(adminKey{}).(string); ok {
		return v
	}
	return ""
}
