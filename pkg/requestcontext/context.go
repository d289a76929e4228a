// Package requestcontext provides HTTP-independent accessors for
// request-scoped values.
//
// Middleware sets these values and services read them; keeping the package
// free of net/http lets services avoid transport imports.
//
// Usage in services (read values):
//
//	actor := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithUserID(ctx, userID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "datapass/pkg/domain"
)

type (
	userIDKey        struct{}
	userEmailKey     struct{}
	emailVerifiedKey struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value (nil UUID) if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserEmail retrieves the authenticated user's email from the context.
func UserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(userEmailKey{}).(string); ok {
		return email
	}
	return ""
}

// WithUserEmail injects the authenticated user's email into the context.
func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userEmailKey{}, email)
}

// EmailVerified reports whether the identity provider attested the user's
// email address. Defaults to false when the claim is absent.
func EmailVerified(ctx context.Context) bool {
	if verified, ok := ctx.Value(emailVerifiedKey{}).(bool); ok {
		return verified
	}
	return false
}

// WithEmailVerified injects the email-verification attestation into the
// context.
func WithEmailVerified(ctx context.Context, verified bool) context.Context {
	return context.WithValue(ctx, emailVerifiedKey{}, verified)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers and
// tests). Pinning one timestamp per request keeps the state change and its
// audit record on the same instant.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for service unit tests that don't run the HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
