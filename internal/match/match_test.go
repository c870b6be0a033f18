package match

import "testing"

func TestCompile_Globs(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/**", "/admin/users/5", true},
		{"/admin/**", "/admin", true},
		{"/admin/**", "/admin/", true},
		{"/admin/**", "/public/admin", false},
		{"/admin/**", "/administrator", false},
		{"/api/*/users", "/api/v1/users", true},
		{"/api/*/users", "/api/v1/v2/users", false},
		{"/api/*/users", "/api//users", true},
		{"/files/?.txt", "/files/a.txt", true},
		{"/files/?.txt", "/files/ab.txt", false},
		{"/files/?.txt", "/files//.txt", false},
		{"**/edit", "/users/5/edit", true},
		{"**/edit", "edit", true},
		{"**", "/anything/at/all", true},
		{"/a/**/z", "/a/z", true},
		{"/a/**/z", "/a/b/c/z", true},
		{"/v1.0/items", "/v1.0/items", true},
		{"/v1.0/items", "/v1x0/items", false},
		{"/search(+)", "/search(+)", true},
		{"/users/*", "/users/5/orders", false},
		{"/users", "/users/5", false},
		{"/users", "/prefix/users", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			if got := Compile(tt.pattern).Match(tt.path); got != tt.want {
				t.Errorf("Compile(%q).Match(%q) = %v, want %v (regexp %s)",
					tt.pattern, tt.path, got, tt.want, translate(tt.pattern))
			}
		})
	}
}

func TestCompile_Cached(t *testing.T) {
	a := Compile("/cached/*")
	b := Compile("/cached/*")
	if a != b {
		t.Error("expected the same compiled matcher for repeated patterns")
	}
	if a.Pattern() != "/cached/*" {
		t.Errorf("Pattern() = %q", a.Pattern())
	}
}

func TestCompile_MalformedPatternMatchesNothing(t *testing.T) {
	const pattern = "/a/\xff/*"

	m := Compile(pattern)
	if m.re != nil {
		t.Fatalf("expected %q to fail compilation, got regexp %s", pattern, m.re)
	}
	for _, path := range []string{"/a/\xff/x", "/a/b/x", "/"} {
		if m.Match(path) {
			t.Errorf("malformed pattern matched %q", path)
		}
	}
	if Compile(pattern) != m {
		t.Error("expected the failed pattern to be cached")
	}
	if Matches("/a/b/x", []string{pattern}) {
		t.Error("Matches should treat a malformed pattern as a non-match")
	}
	if !Matches("/ok", []string{pattern, "/ok"}) {
		t.Error("a malformed pattern should not hide the remaining patterns")
	}
}

func TestMatcher_NilMatchesNothing(t *testing.T) {
	var m *Matcher
	if m.Match("/") {
		t.Error("nil matcher should not match")
	}
	if (&Matcher{}).Match("/") {
		t.Error("zero matcher should not match")
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		patterns []string
		want     bool
	}{
		{"nil is open", "/anything", nil, true},
		{"empty is open", "/anything", []string{}, true},
		{"exact", "/login", []string{"/login"}, true},
		{"any of many", "/api/v1/users", []string{"/login", "/api/*/users"}, true},
		{"none", "/public", []string{"/login", "/admin/**"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.path, tt.patterns); got != tt.want {
				t.Errorf("Matches(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestMatchesMethod(t *testing.T) {
	tests := []struct {
		method  string
		methods []string
		want    bool
	}{
		{"GET", nil, true},
		{"get", []string{"GET"}, true},
		{"POST", []string{"get", "post"}, true},
		{"DELETE", []string{"GET", "POST"}, false},
		{"", []string{"GET"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := MatchesMethod(tt.method, tt.methods); got != tt.want {
				t.Errorf("MatchesMethod(%q, %v) = %v, want %v", tt.method, tt.methods, got, tt.want)
			}
		})
	}
}

func TestExtractPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/users/5?tab=orders", "/users/5"},
		{"/users/5#top", "/users/5"},
		{"/users/5", "/users/5"},
		{"https://api.example.com/v1/users?page=2", "/v1/users"},
		{"https://api.example.com", "/"},
		{"/a%2Fb?x=1", "/a%2Fb"},
		{"http://h/a%2Fb?x=1", "/a%2Fb"},
		{"http://h/caf%C3%A9/menu", "/caf%C3%A9/menu"},
		{"http://[::1]:namedport/x?y", "http://[::1]:namedport/x"},
		{"users/5?x=1", "users/5"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExtractPath(tt.in); got != tt.want {
				t.Errorf("ExtractPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
