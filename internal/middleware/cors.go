package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

const corsHeaders = "Content-Type, Authorization, X-Trace-ID"

// CORS answers cross-origin requests from the configured front-end origins.
// An entry of "*" opens the API to every origin; entries of the form
// "*.domain.tld" admit any subdomain. Credentials are always allowed because
// the auth cookie has to travel with the request.
func CORS(origins []string) mux.MiddlewareFunc {
	match := newOriginSet(origins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if match(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", "X-Trace-ID")
			}

			// Preflight: answer here, the mux never sees it.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", "3600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// newOriginSet compiles the configured origins into a matcher: exact matches
// via a set, "*.x" entries via suffix checks.
func newOriginSet(origins []string) func(string) bool {
	exact := make(map[string]struct{}, len(origins))
	var suffixes []string
	all := false
	for _, o := range origins {
		switch {
		case o == "*":
			all = true
		case strings.HasPrefix(o, "*."):
			suffixes = append(suffixes, o[1:]) // keep the dot
		case o != "":
			exact[o] = struct{}{}
		}
	}
	return func(origin string) bool {
		if all {
			return true
		}
		if _, ok := exact[origin]; ok {
			return true
		}
		for _, s := range suffixes {
			if strings.HasSuffix(origin, s) {
				return true
			}
		}
		return false
	}
}
