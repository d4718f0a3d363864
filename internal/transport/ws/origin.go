package ws

import (
	"net/http"
	"net/url"
	"strings"
)

// checkOrigin builds the upgrader's origin policy. An empty allow-list, or a
// request without Origin header (non-browser client), is accepted.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		for _, pattern := range allowed {
			if matchHost(u.Host, pattern) || matchHost(u.Hostname(), pattern) {
				return true
			}
		}
		return false
	}
}

// matchHost checks if host matches pattern (supports wildcard *.example.com)
func matchHost(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)

	if host == pattern {
		return true
	}

	// *.example.com matches sub.example.com, not example.com itself
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}

	return false
}
