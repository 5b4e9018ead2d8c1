// Package urlnorm canonicalizes bookmark URLs into the keys used as
// bookmark identity throughout the store.
package urlnorm

import (
	"net/url"
	"strings"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// Blocked schemes are never stored as bookmarks.
var blockedSchemes = map[string]bool{
	"javascript": true,
	"data":       true,
	"vbscript":   true,
}

// Normalize returns the identity key for rawURL:
// scheme://host[:port]path?query with the host lowercased, default ports
// and the fragment dropped, and a trailing slash stripped from non-root paths.
// Input that does not parse as an absolute URL falls back to its lowercased
// form without a trailing slash.
func Normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fallback(trimmed)
	}

	var b strings.Builder
	b.WriteString(u.Scheme) // url.Parse already lowercases the scheme
	b.WriteString("://")

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	b.WriteString(host)
	if port := u.Port(); port != "" && defaultPorts[u.Scheme] != port {
		b.WriteString(":")
		b.WriteString(port)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	b.WriteString(path)

	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

func fallback(s string) string {
	return strings.TrimSuffix(strings.ToLower(s), "/")
}

// IsAllowed reports whether rawURL is acceptable as a bookmark target.
// Empty input and script-capable schemes are rejected.
func IsAllowed(rawURL string) bool {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return false
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		// Unparseable values are still stored under their fallback key,
		// unless they smuggle a blocked scheme.
		return !hasBlockedPrefix(trimmed)
	}
	if blockedSchemes[u.Scheme] {
		return false
	}
	return !hasBlockedPrefix(trimmed)
}

func hasBlockedPrefix(s string) bool {
	lower := strings.ToLower(strings.Join(strings.Fields(s), ""))
	for scheme := range blockedSchemes {
		if strings.HasPrefix(lower, scheme+":") {
			return true
		}
	}
	return false
}

// Domain returns the lowercased host of rawURL without port, or "" when
// it has none.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
