package testutil

import (
	"net/http"
	"time"

	id "datapass/pkg/domain"
	"datapass/pkg/requestcontext"
)

// AsUser stamps a request with the context the auth middleware would build
// for an authenticated, email-verified user.
func AsUser(req *http.Request, userID id.UserID, email string) *http.Request {
	ctx := req.Context()
	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithUserEmail(ctx, email)
	ctx = requestcontext.WithEmailVerified(ctx, true)
	return req.WithContext(ctx)
}

// AsUnverifiedUser is AsUser without the email-verification attestation.
func AsUnverifiedUser(req *http.Request, userID id.UserID, email string) *http.Request {
	ctx := req.Context()
	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithUserEmail(ctx, email)
	return req.WithContext(ctx)
}

// AtTime pins the request-scoped clock, the way the request-time middleware
// does in production.
func AtTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
