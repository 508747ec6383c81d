// Package origin evaluates observed frame origins against access-control
// lists.
package origin

import (
	"net"
	"net/url"
	"strings"
)

// Wildcard matches every origin.
const Wildcard = "*"

// ACL is an ordered list of origin patterns. An entry is either the
// wildcard, an exact origin, or a suffix pattern starting with "*" such as
// "*.domain.com".
type ACL []string

// Matches reports whether candidate is permitted by acl.
func Matches(acl []string, candidate string) bool {
	for _, pattern := range acl {
		if pattern == Wildcard || pattern == candidate {
			return true
		}
		if matchesSuffix(pattern, candidate) {
			return true
		}
	}
	return false
}

func matchesSuffix(pattern string, candidate string) bool {
	if len(pattern) < 2 || pattern[0] != '*' {
		return false
	}
	suffix := pattern[1:]
	return len(candidate) >= len(suffix) && strings.HasSuffix(candidate, suffix)
}

func (a ACL) Matches(candidate string) bool {
	return Matches(a, candidate)
}

// HasSpecific reports whether some entry is not the universal wildcard.
func (a ACL) HasSpecific() bool {
	for _, entry := range a {
		if entry != Wildcard {
			return true
		}
	}
	return false
}

func (a ACL) IsEmpty() bool {
	return len(a) == 0
}

func (a ACL) IsWildcard() bool {
	for _, entry := range a {
		if entry == Wildcard {
			return true
		}
	}
	return false
}

func (a ACL) Clone() ACL {
	if a == nil {
		return ACL{}
	}
	return append(ACL(nil), a...)
}

// IsPattern reports whether entry can only be used for matching and never
// as a postMessage target origin.
func IsPattern(entry string) bool {
	return entry != Wildcard && strings.HasPrefix(entry, "*")
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// FromURL derives the scheme://host[:port] origin of a URL the way a browser
// serializes it: scheme and host lower-cased, default ports dropped. The
// wildcard and values that are not absolute URLs are returned unchanged.
func FromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == Wildcard {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return raw
	}
	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return raw
	}
	port := parsed.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}
	switch {
	case port != "":
		host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	return scheme + "://" + host
}
