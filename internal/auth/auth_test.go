package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		apiKey string
		method string
		header string
		status int
	}{
		{"open", "", http.MethodGet, "", http.StatusOK},
		{"missing", "secret", http.MethodGet, "", http.StatusUnauthorized},
		{"not bearer", "secret", http.MethodGet, "secret", http.StatusUnauthorized},
		{"wrong", "secret", http.MethodPost, "Bearer nope", http.StatusUnauthorized},
		{"prefix of key", "secret", http.MethodGet, "Bearer sec", http.StatusUnauthorized},
		{"valid", "secret", http.MethodPost, "Bearer secret", http.StatusOK},
		{"preflight", "secret", http.MethodOptions, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/proposals", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			New(tt.apiKey).Middleware(ok).ServeHTTP(w, r)

			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				require.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}
