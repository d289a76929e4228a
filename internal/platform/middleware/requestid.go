package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"datapass/pkg/requestcontext"
)

// RequestID attaches a correlation ID to every request. An incoming
// X-Request-Id is trusted when present; otherwise one is generated. The ID is
// echoed back on the response so clients can quote it in support requests.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
