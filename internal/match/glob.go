// Package match compiles path globs and evaluates hook scopes against
// request paths, URLs and HTTP methods.
//
// # Glob Syntax
//
//	**   any number of path segments, including zero
//	*    any run of characters except "/"
//	?    exactly one character except "/"
//
// Every other character matches itself. Patterns are anchored at both ends:
//
//	/admin/**       matches /admin, /admin/users, /admin/users/5
//	/api/*/users    matches /api/v1/users (not /api/v1/v2/users)
//	/files/?.txt    matches /files/a.txt (not /files/ab.txt)
package match

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const separator = '/'

// cacheSize bounds the number of compiled patterns kept in memory.
const cacheSize = 512

var compiled, _ = lru.New[string, *Matcher](cacheSize)

// ScopeEvaluationError describes a pattern that could not be compiled.
// Such patterns are treated as non-matching rather than returned to callers.
type ScopeEvaluationError struct {
	Pattern string
	Err     error
}

func (e *ScopeEvaluationError) Error() string {
	return fmt.Sprintf("scope pattern %q: %v", e.Pattern, e.Err)
}

func (e *ScopeEvaluationError) Unwrap() error {
	return e.Err
}

// Matcher is a compiled glob pattern. The zero value matches nothing.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// Compile translates a glob pattern into a Matcher. It never fails: a
// pattern that cannot be compiled yields a Matcher that matches nothing.
func Compile(pattern string) *Matcher {
	if m, ok := compiled.Get(pattern); ok {
		return m
	}

	m := &Matcher{pattern: pattern}
	re, err := regexp.Compile(translate(pattern))
	if err != nil {
		serr := &ScopeEvaluationError{Pattern: pattern, Err: err}
		slog.Warn("match: pattern will not match anything", slog.String("error", serr.Error()))
	} else {
		m.re = re
	}

	compiled.Add(pattern, m)
	return m
}

// Pattern returns the source glob.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Match reports whether path matches the whole pattern.
func (m *Matcher) Match(path string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(path)
}

// translate converts a glob into an anchored regular expression.
func translate(pattern string) string {
	var b strings.Builder
	b.WriteString("^")

	for i := 0; i < len(pattern); {
		switch {
		// "/**" followed by "/" or the end spans zero or more whole segments.
		case strings.HasPrefix(pattern[i:], "/**") && (i+3 == len(pattern) || pattern[i+3] == separator):
			b.WriteString("(?:/.*)?")
			i += 3
		// A leading "**/" may also consume nothing.
		case i == 0 && strings.HasPrefix(pattern, "**/"):
			b.WriteString("(?:.*/)?")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			b.WriteString("[^/]*")
			i++
		case pattern[i] == '?':
			b.WriteString("[^/]")
			i++
		default:
			// Copy a run of literal characters at once.
			j := i + 1
			for j < len(pattern) && pattern[j] != '*' && pattern[j] != '?' && !strings.HasPrefix(pattern[j:], "/**") {
				j++
			}
			b.WriteString(regexp.QuoteMeta(pattern[i:j]))
			i = j
		}
	}

	b.WriteString("$")
	return b.String()
}
