// Package api implements the linkbook REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requestToken returns the bearer token of r. Browsers cannot set headers on
// an EventSource, so the access_token query parameter is accepted as well.
func requestToken(r *http.Request) string {
	if auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return auth
	}
	return r.URL.Query().Get("access_token")
}

// AuthMiddleware rejects requests without the configured token. When enabled
// is false every request passes.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := requestToken(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
