package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	_, err := ulid.Parse(seen)
	require.NoError(t, err)
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	require.Empty(t, FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
