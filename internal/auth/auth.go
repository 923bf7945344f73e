package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth guards the api with a single shared key.
type Auth struct {
	key []byte
}

// New creates the api key check, an empty key leaves the api open
func New(apiKey string) *Auth {
	return &Auth{key: []byte(apiKey)}
}

func (a *Auth) Enabled() bool {
	return len(a.key) > 0
}

// Middleware expects "Authorization: Bearer <key>". Preflight requests are
// let through so browsers can discover the allowed headers.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || r.Method == http.MethodOptions || a.valid(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="governance"`)
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func (a *Auth) valid(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), a.key) == 1
}
