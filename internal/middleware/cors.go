// Package middleware provides HTTP middleware for the coach API.
package middleware

import (
	"net/http"
	"strings"
)

// AllowedOrigins returns the CORS origins for a deployment. Development
// allows any origin; otherwise only the configured frontend.
func AllowedOrigins(frontendURL string, isDev bool) []string {
	if isDev {
		origins := []string{"*"}
		if frontendURL != "" {
			origins = append(origins, strings.TrimRight(frontendURL, "/"))
		}
		return origins
	}
	return []string{strings.TrimRight(frontendURL, "/")}
}

// CORS returns middleware that handles CORS headers.
func CORS(allowedOrigins []string, allowedHeaders ...string) func(http.Handler) http.Handler {
	headers := strings.Join(append([]string{"Content-Type"}, allowedHeaders...), ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed, explicit := false, false
			for _, o := range allowedOrigins {
				if o == origin && o != "*" {
					allowed, explicit = true, true
					break
				}
				if o == "*" {
					allowed = true
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Add("Vary", "Origin")
				// Credentials only for explicit origins; a wildcard-echoed
				// origin with credentials enables CSRF.
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
