package match

import (
	"net/url"
	"strings"
)

// Matches reports whether path matches any of the patterns. An empty
// pattern list is an open constraint and matches every path.
func Matches(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, p := range patterns {
		if p == path {
			return true
		}
	}
	for _, p := range patterns {
		if Compile(p).Match(path) {
			return true
		}
	}
	return false
}

// MatchesMethod reports whether method is one of methods, ignoring case.
// An empty method list matches every method.
func MatchesMethod(method string, methods []string) bool {
	if len(methods) == 0 {
		return true
	}

	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// ExtractPath returns the path component of a URL or path string with the
// query string and fragment removed. Percent-encoding is preserved, so a
// path matches the same way whether or not it arrives as a full URL.
func ExtractPath(rawURL string) string {
	if strings.HasPrefix(rawURL, "/") {
		return stripQuery(rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return stripQuery(rawURL)
	}
	if p := u.EscapedPath(); p != "" {
		return p
	}
	return "/"
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
