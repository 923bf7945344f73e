package router

import (
	"net/http"
	"strings"
	"sync"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/go-chi/chi/v5"
)

var (
	allMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPatch,
		http.MethodPut,
		http.MethodDelete,
	}

	acceptedHeaders = strings.Join([]string{
		"Origin",
		"Content-Type",
		"Content-Length",
		"X-Requested-With",
		"Accept-Encoding",
		"Authorization",
		com.SignatureHeader,
		com.AddressHeader,
	}, ", ")
)

// HealthMiddleware answers /health. The node reports 503 until ready
// returns true, which lets a load balancer wait for the engine to be
// initialized or restored.
func HealthMiddleware(ready func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				next.ServeHTTP(w, r)
				return
			}

			if ready != nil && !ready() {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}

			w.WriteHeader(http.StatusOK)
		})
	}
}

// cors answers preflight requests with the methods the route tree serves for
// a path. Matches are cached per path since the tree never changes after
// Handler returns.
type cors struct {
	methods sync.Map
}

func (c *cors) allowed(routes chi.Routes, path string) string {
	if cached, ok := c.methods.Load(path); ok {
		return cached.(string)
	}

	var methods []string
	for _, method := range allMethods {
		if routes != nil && routes.Match(chi.NewRouteContext(), method, path) {
			methods = append(methods, method)
		}
	}

	allowed := strings.Join(append(methods, http.MethodOptions), ", ")
	c.methods.Store(path, allowed)

	return allowed
}

func (c *cors) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if r.URL.RawPath != "" {
			path = r.URL.RawPath
		}

		var routes chi.Routes
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			routes = rctx.Routes
		}

		allowed := c.allowed(routes, path)

		h := w.Header()
		h.Set("Allow", allowed)
		h.Set("Access-Control-Allow-Methods", allowed)
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", acceptedHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RequestSizeLimitMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
