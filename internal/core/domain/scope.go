package domain

import "github.com/tjfontaine/hookgate/internal/match"

// ScopeSpec restricts the contexts a handler participates in. A nil spec,
// or an empty field, places no constraint.
type ScopeSpec struct {
	// Paths are globs matched against the context path or URL path.
	Paths []string `json:"paths,omitempty" koanf:"paths"`
	// Methods are HTTP methods, compared case-insensitively.
	Methods []string `json:"methods,omitempty" koanf:"methods"`
}

// Matches reports whether a context with the given path and method is in
// scope. Evaluation has no side effects.
func (s *ScopeSpec) Matches(path, method string) bool {
	if s == nil {
		return true
	}
	return match.Matches(path, s.Paths) && match.MatchesMethod(method, s.Methods)
}

// MatchesContext evaluates the scope against a hook context.
func (s *ScopeSpec) MatchesContext(hc *HookContext) bool {
	if s == nil {
		return true
	}
	return s.Matches(hc.Path(), hc.Method())
}
