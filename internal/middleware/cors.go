// Package middleware provides HTTP middleware for the assessment API.
package middleware

import "net/http"

// CORS returns middleware that answers cross-origin requests for the trusted
// origins only. Credentials are allowed solely for explicitly listed
// origins; echoing a wildcard-matched origin with credentials enables CSRF.
func CORS(trustedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originTrusted(trustedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				if originListed(trustedOrigins, origin) {
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

func originTrusted(trusted []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range trusted {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// originListed reports whether the origin itself appears in the allowlist.
// A wildcard entry does not count: credentials are never granted to origins
// matched only via "*".
func originListed(trusted []string, origin string) bool {
	for _, o := range trusted {
		if o != "*" && o == origin {
			return true
		}
	}
	return false
}
