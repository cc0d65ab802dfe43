package api

import (
	"crypto/hmac"
	"net/http"
	"strings"
)

// requireAdminToken guards mutating routes with a shared bearer token.
// The token arrives as "Authorization: Bearer <token>" or in the
// X-Admin-Token header. Comparison is constant time.
func requireAdminToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Token")
			if got == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					got = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if !hmac.Equal([]byte(got), want) {
				writeError(w, "admin token required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
