package mw

import (
	"net/http"
	"strings"
)

// CORS lets browsers read the query API from other origins. An empty
// allow-list answers every origin with "*"; otherwise the request Origin is
// echoed back only when its host matches (wildcards like "*.example.com" work).
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			switch origin := r.Header.Get("Origin"); {
			case len(allowed) == 0:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && originAllowed(origin, allowed):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	hostname := host
	if i := strings.LastIndex(hostname, ":"); i >= 0 && !strings.HasSuffix(hostname, "]") {
		hostname = hostname[:i]
	}

	for _, pattern := range allowed {
		if pattern == "*" || matchHost(host, pattern) || matchHost(hostname, pattern) {
			return true
		}
	}
	return false
}

// matchHost checks if host matches pattern (supports wildcard *.example.com)
func matchHost(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)

	if host == pattern {
		return true
	}

	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}

	return false
}
