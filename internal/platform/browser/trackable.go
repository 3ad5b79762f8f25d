package browser

import (
	"net/url"
	"strings"
)

var internalSchemes = map[string]struct{}{
	"about":            {},
	"blob":             {},
	"brave":            {},
	"chrome":           {},
	"chrome-extension": {},
	"chrome-search":    {},
	"chrome-untrusted": {},
	"data":             {},
	"devtools":         {},
	"edge":             {},
	"file":             {},
	"javascript":       {},
	"moz-extension":    {},
	"opera":            {},
	"resource":         {},
	"view-source":      {},
	"vivaldi":          {},
}

// Trackable reports whether a URL is eligible for time and session tracking.
func Trackable(raw string) bool {
	return DomainOf(raw) != ""
}

// DomainOf returns the lowercased host of a trackable URL without port or a
// leading "www.", or "" when the URL is not trackable.
func DomainOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	if _, internal := internalSchemes[strings.ToLower(u.Scheme)]; internal {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host
}
