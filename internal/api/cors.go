package api

import (
	"net/http"
	"strings"
	"sync/atomic"
)

// CORS applies the cross-origin policy for browser clients. The allowed
// origins can be replaced at runtime with [CORS.SetOrigins].
type CORS struct {
	origins atomic.Pointer[originSet]
}

type originSet struct {
	any     bool
	allowed map[string]struct{}
}

// NewCORS returns a CORS policy allowing origins. "*" allows every origin.
func NewCORS(origins []string) *CORS {
	c := &CORS{}
	c.SetOrigins(origins)
	return c
}

// SetOrigins replaces the allowed origins.
func (c *CORS) SetOrigins(origins []string) {
	set := &originSet{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			set.any = true
		default:
			set.allowed[o] = struct{}{}
		}
	}
	c.origins.Store(set)
}

// Allowed reports whether origin may call the API.
func (c *CORS) Allowed(origin string) bool {
	set := c.origins.Load()
	if set.any {
		return true
	}
	_, ok := set.allowed[origin]
	return ok
}

// Middleware echoes allowed origins and answers preflight requests with 204.
func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); origin != "" && c.Allowed(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Expose-Headers", "X-Correlation-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
