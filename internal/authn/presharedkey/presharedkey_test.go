package presharedkey

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func reject(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusUnauthorized)
}

func TestNewAuthenticatorRequiresKeys(t *testing.T) {
	_, err := NewAuthenticator(nil, reject)
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	authn, err := NewAuthenticator([]string{"key-one", "key-two"}, reject)
	require.NoError(t, err)

	handler := authn.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{name: "valid_key", key: "key-one", wantStatus: http.StatusOK},
		{name: "second_valid_key", key: "key-two", wantStatus: http.StatusOK},
		{name: "padded_key", key: "  key-one  ", wantStatus: http.StatusOK},
		{name: "unknown_key", key: "key-three", wantStatus: http.StatusUnauthorized},
		{name: "missing_key", key: "", wantStatus: http.StatusUnauthorized},
		{name: "whitespace_key", key: "   ", wantStatus: http.StatusUnauthorized},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/profiles/p1", nil)
			if test.key != "" {
				req.Header.Set(APIKeyHeader, test.key)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			require.Equal(t, test.wantStatus, rec.Code)
		})
	}
}
