// Package requestid assigns a unique identifier to every inbound request and
// echoes it in the response so callers can correlate logs across services.
package requestid

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
)

// RequestIDHeader defines the HTTP header that is set in each HTTP response
// for a given request. The value of the header is unique per request.
const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

// FromContext returns the request id stored by Middleware, or "" when the
// request did not pass through it.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware stamps the request with a fresh ULID, stores it in the request
// context, and sets the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
