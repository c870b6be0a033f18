package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/tjfontaine/hookgate/internal/adapters/hooks/apikey"
	"github.com/tjfontaine/hookgate/internal/pkg/config"
)

func checkConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{MaxRetries: 3, MaxDelay: "10s"},
		Hooks: config.HooksConfig{
			Before: []config.HookRule{
				{Name: "viewers-read-only", Type: "cel", Expr: `method == "GET" || ("x-role" in headers && headers["x-role"] == "admin")`, Reason: "read only"},
				{Name: "key", Type: "apikey", KeyHashes: []string{apikey.Hash("secret")}, Paths: []string{"/private/**"}},
			},
		},
	}
}

func TestRunCheck(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		url      string
		headers  []string
		decision string
		reason   string
	}{
		{"get allowed", "get", "/items", nil, "allow", ""},
		{"delete blocked", "DELETE", "/items/1", nil, "block", "read only"},
		{"admin delete", "DELETE", "/items/1", []string{"X-Role: admin"}, "allow", ""},
		{"private without key", "GET", "/private/x", nil, "block", "missing API key"},
		{"private with key", "GET", "/private/x?y=1", []string{"X-API-Key: secret"}, "allow", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := runCheck(context.Background(), &buf, checkConfig(), tt.method, tt.url, tt.headers); err != nil {
				t.Fatalf("runCheck: %v", err)
			}

			var out CheckResult
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("decode %s: %v", buf.String(), err)
			}
			if out.Decision != tt.decision || out.Reason != tt.reason {
				t.Errorf("got %s(%q), want %s(%q)", out.Decision, out.Reason, tt.decision, tt.reason)
			}
			if out.Attempts != 1 {
				t.Errorf("attempts = %d, want 1", out.Attempts)
			}
		})
	}
}

func TestRunCheck_BlockDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	if err := runCheck(context.Background(), &buf, checkConfig(), "POST", "/items", nil); err != nil {
		t.Fatalf("runCheck: %v", err)
	}

	var out CheckResult
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Diagnostics) != 1 || out.Diagnostics[0].Kind != "block" {
		t.Errorf("unexpected diagnostics: %+v", out.Diagnostics)
	}
}

func TestRunCheck_InvalidHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := runCheck(context.Background(), &buf, checkConfig(), "GET", "/", []string{"no-colon"}); err == nil {
		t.Fatal("expected error for malformed header")
	}
}

func TestKeygen(t *testing.T) {
	var buf bytes.Buffer
	keygenCmd.SetOut(&buf)
	if err := keygenCmd.RunE(keygenCmd, []string{"test-key"}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(apikey.Hash("test-key"))) {
		t.Errorf("expected hash in output: %s", buf.String())
	}
}
