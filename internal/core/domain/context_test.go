package domain

import (
	"errors"
	"testing"
	"time"
)

func TestHookContext_AccessorsCopy(t *testing.T) {
	headers := map[string]string{"authorization": "Bearer x"}
	meta := map[string]any{"tenant": "acme"}
	hc := NewRequestContext(Request{URL: "/api/users?page=2", Method: "GET", Headers: headers},
		ContextOptions{OperationID: "op-1", Metadata: meta})

	// Mutating the inputs after construction must not leak in.
	headers["authorization"] = "changed"
	meta["tenant"] = "changed"

	req, ok := hc.Request()
	if !ok {
		t.Fatal("expected request subject")
	}
	if req.Headers["authorization"] != "Bearer x" {
		t.Errorf("header leaked mutation: %q", req.Headers["authorization"])
	}

	// Mutating accessor results must not leak in either.
	req.Headers["authorization"] = "changed-again"
	again, _ := hc.Request()
	if again.Headers["authorization"] != "Bearer x" {
		t.Error("accessor returned shared header map")
	}

	got := hc.Metadata()
	got["tenant"] = "other"
	if v, _ := hc.Value("tenant"); v != "acme" {
		t.Errorf("metadata tenant = %v, want acme", v)
	}

	if hc.Path() != "/api/users" {
		t.Errorf("Path() = %q", hc.Path())
	}
	if hc.Method() != "GET" {
		t.Errorf("Method() = %q", hc.Method())
	}
	if hc.Kind() != SubjectRequest {
		t.Errorf("Kind() = %q", hc.Kind())
	}
	if _, ok := hc.Navigation(); ok {
		t.Error("request context should not have a navigation")
	}
}

func TestHookContext_NavigationPath(t *testing.T) {
	hc := NewNavigationContext(Navigation{From: "/", To: "/admin/users?sort=asc#top", Trigger: "imperative"}, ContextOptions{})

	if hc.Path() != "/admin/users" {
		t.Errorf("Path() = %q, want /admin/users", hc.Path())
	}
	if hc.Method() != "" {
		t.Errorf("navigation Method() = %q, want empty", hc.Method())
	}
	if hc.Timestamp().IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestHookContext_WithOutcomeDoesNotMutate(t *testing.T) {
	hc := NewRequestContext(Request{URL: "/x", Method: "POST"}, ContextOptions{})
	failed := hc.WithOutcome(Outcome{Err: errors.New("boom")})

	if hc.Outcome() != nil {
		t.Error("original context gained an outcome")
	}
	if !failed.Outcome().Failed() {
		t.Error("derived context should carry the failure")
	}

	ok := hc.WithOutcome(Outcome{Response: &Response{Status: 200, Headers: map[string]string{"a": "1"}}})
	ok.Outcome().Response.Headers["a"] = "2"
	if ok.Outcome().Response.Headers["a"] != "1" {
		t.Error("outcome headers are shared with callers")
	}
}

func TestHookContext_NextAttempt(t *testing.T) {
	first := NewRequestContext(Request{URL: "/x", Method: "GET"}, ContextOptions{
		OperationID: "op-7",
		Timestamp:   time.Unix(100, 0),
		Metadata:    map[string]any{"k": "v"},
	}).WithOutcome(Outcome{Response: &Response{Status: 503}})

	later := time.Unix(200, 0)
	next := first.NextAttempt(later)

	if next == first {
		t.Fatal("NextAttempt must build a new context")
	}
	if next.Attempt() != 1 {
		t.Errorf("Attempt() = %d, want 1", next.Attempt())
	}
	if next.OperationID() != "op-7" {
		t.Errorf("OperationID() = %q", next.OperationID())
	}
	if !next.Timestamp().Equal(later) {
		t.Errorf("Timestamp() = %v, want %v", next.Timestamp(), later)
	}
	if next.Outcome() != nil {
		t.Error("outcome must not carry over to the next attempt")
	}
	if first.Attempt() != 0 {
		t.Error("original attempt changed")
	}
	if v, _ := next.Value("k"); v != "v" {
		t.Errorf("metadata k = %v", v)
	}
}

func TestHookContext_WithMetadata(t *testing.T) {
	hc := NewRequestContext(Request{URL: "/"}, ContextOptions{})
	tagged := hc.WithMetadata("trace", "abc")

	if _, ok := hc.Value("trace"); ok {
		t.Error("original context changed")
	}
	if v, _ := tagged.Value("trace"); v != "abc" {
		t.Errorf("trace = %v", v)
	}
}

func TestScopeSpec_Matches(t *testing.T) {
	tests := []struct {
		name   string
		scope  *ScopeSpec
		path   string
		method string
		want   bool
	}{
		{"nil scope", nil, "/anything", "GET", true},
		{"empty scope", &ScopeSpec{}, "/anything", "", true},
		{"path only", &ScopeSpec{Paths: []string{"/admin/**"}}, "/admin/x", "DELETE", true},
		{"path mismatch", &ScopeSpec{Paths: []string{"/admin/**"}}, "/public", "GET", false},
		{"method only", &ScopeSpec{Methods: []string{"post"}}, "/x", "POST", true},
		{"both must match", &ScopeSpec{Paths: []string{"/api/**"}, Methods: []string{"GET"}}, "/api/x", "POST", false},
		{"navigation has no method", &ScopeSpec{Methods: []string{"GET"}}, "/x", "", false},
		{"malformed pattern", &ScopeSpec{Paths: []string{"/a/\xff/*"}}, "/a/b/x", "GET", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scope.Matches(tt.path, tt.method); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
