package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/hookgate/internal/contextbuilder"
	"github.com/tjfontaine/hookgate/internal/diagnostics"
	"github.com/tjfontaine/hookgate/internal/pipeline"
	"github.com/tjfontaine/hookgate/internal/pkg/config"
	"github.com/tjfontaine/hookgate/internal/runtime"
)

var (
	checkMethod  string
	checkURL     string
	checkHeaders []string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate the before hooks for a request",
	Long: `Runs the configured before hooks (and blocked hooks, when the request is
blocked) against a synthetic request and prints the decision as JSON. The
request is never forwarded.`,
	Example: `  hookgate check --method DELETE --url /admin/users/5 --header "X-Role: viewer"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, checkMethod, checkURL, checkHeaders)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkMethod, "method", "X", "GET", "Request method")
	checkCmd.Flags().StringVar(&checkURL, "url", "/", "Request URL or path")
	checkCmd.Flags().StringArrayVarP(&checkHeaders, "header", "H", nil, `Request header as "Name: value" (repeatable)`)
}

// CheckResult is the JSON printed by the check command.
type CheckResult struct {
	Decision    string            `json:"decision"`
	Reason      string            `json:"reason,omitempty"`
	Path        string            `json:"path"`
	Attempts    int               `json:"attempts"`
	Retries     int               `json:"retries"`
	Exhausted   bool              `json:"exhausted,omitempty"`
	Diagnostics []CheckDiagnostic `json:"diagnostics,omitempty"`
}

// CheckDiagnostic is a diagnostic event raised while checking.
type CheckDiagnostic struct {
	Kind    string `json:"kind"`
	Handler string `json:"handler,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runCheck(ctx context.Context, w io.Writer, cfg *config.Config, method, url string, headers []string) error {
	req := httptest.NewRequest(strings.ToUpper(method), url, nil)
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q (want \"Name: value\")", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	rec := &diagnostics.Recorder{}
	engine, err := runtime.NewEngineFromConfig(cfg, pipeline.Hooks{}, slog.Default(), pipeline.WithSink(rec))
	if err != nil {
		return err
	}

	hc := contextbuilder.New().Request(req, "")
	gate, err := engine.Gate(ctx, pipeline.FromContext(hc))
	if err != nil {
		return err
	}

	out := CheckResult{
		Decision:  gate.Decision.Kind.String(),
		Reason:    gate.Decision.Reason,
		Path:      hc.Path(),
		Attempts:  gate.Attempts,
		Retries:   gate.Retries,
		Exhausted: gate.Exhausted,
	}
	for _, ev := range rec.Events() {
		out.Diagnostics = append(out.Diagnostics, CheckDiagnostic{
			Kind:    string(ev.Kind),
			Handler: ev.Handler,
			Reason:  ev.Reason,
			Error:   ev.ErrorString(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
