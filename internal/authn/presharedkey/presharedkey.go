// Package presharedkey enforces the shared-secret credential every inbound
// request must carry. The credential is compared before any handler runs; the
// core access-control logic never sees unauthenticated traffic.
package presharedkey

import (
	"errors"
	"net/http"
	"strings"
)

// APIKeyHeader is the request header carrying the shared secret.
const APIKeyHeader = "x-api-key"

type Authenticator struct {
	validKeys map[string]struct{}
	reject    http.HandlerFunc
}

// NewAuthenticator builds an authenticator accepting any of validKeys. The
// reject handler writes the 401 response for missing or unknown keys.
func NewAuthenticator(validKeys []string, reject http.HandlerFunc) (*Authenticator, error) {
	if len(validKeys) < 1 {
		return nil, errors.New("invalid auth configuration, please specify at least one key")
	}
	keys := make(map[string]struct{}, len(validKeys))
	for _, k := range validKeys {
		keys[k] = struct{}{}
	}
	return &Authenticator{validKeys: keys, reject: reject}, nil
}

// Middleware wraps next so it only runs for requests carrying a valid key.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
		if _, ok := a.validKeys[key]; key == "" || !ok {
			a.reject(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
