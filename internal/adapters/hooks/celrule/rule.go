// Package celrule provides a hook handler that evaluates a CEL expression
// against the hook context.
//
// The expression must produce a bool: true allows, false blocks. The
// following variables are declared:
//
//	kind      string               "navigation" or "request"
//	path      string               scope-matching path
//	method    string               request method, "" for navigations
//	url       string               request URL or navigation target
//	headers   map(string, string)  lower-cased request headers
//	params    map(string, string)  navigation route params
//	query     map(string, string)  navigation query
//	trigger   string               navigation trigger
//	attempt   int                  zero-based attempt
//	status    int                  response status, 0 before execution
//	failed    bool                 the operation returned an error
//	metadata  map(string, dyn)     context metadata
//
// Example:
//
//	path.startsWith("/admin") && headers["x-role"] != "admin"
package celrule

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// Rule implements ports.NamedHandler with a compiled CEL program.
type Rule struct {
	name   string
	expr   string
	reason string
	prg    cel.Program
}

var env = mustEnv()

func mustEnv() *cel.Env {
	e, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("method", cel.StringType),
		cel.Variable("url", cel.StringType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("params", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("query", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("trigger", cel.StringType),
		cel.Variable("attempt", cel.IntType),
		cel.Variable("status", cel.IntType),
		cel.Variable("failed", cel.BoolType),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		panic(fmt.Sprintf("celrule: build environment: %v", err))
	}
	return e
}

// New compiles expr. reason is attached to Block decisions.
func New(name, expr, reason string) (*Rule, error) {
	if expr == "" {
		return nil, fmt.Errorf("cel rule %s: expression required", name)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("cel rule %s: compile: %w", name, iss.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("cel rule %s: expression must return bool, got %s", name, out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel rule %s: program: %w", name, err)
	}

	return &Rule{name: name, expr: expr, reason: reason, prg: prg}, nil
}

// Name returns the handler identifier.
func (r *Rule) Name() string {
	return r.name
}

// Expr returns the source expression.
func (r *Rule) Expr() string {
	return r.expr
}

// Handle evaluates the expression. Evaluation failures and non-bool results
// are returned as errors.
func (r *Rule) Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	out, _, err := r.prg.ContextEval(ctx, Activation(hc))
	if err != nil {
		return domain.None(), fmt.Errorf("evaluate %q: %w", r.expr, err)
	}

	ok, isBool := out.Value().(bool)
	if !isBool {
		return domain.None(), fmt.Errorf("evaluate %q: result %v is not a bool", r.expr, out.Value())
	}
	if !ok {
		return domain.Block(r.reason), nil
	}
	return domain.Allow(), nil
}

// Activation returns the variables exposed to expressions for hc.
func Activation(hc *domain.HookContext) map[string]any {
	vars := map[string]any{
		"kind":     string(hc.Kind()),
		"path":     hc.Path(),
		"method":   hc.Method(),
		"url":      "",
		"headers":  map[string]string{},
		"params":   map[string]string{},
		"query":    map[string]string{},
		"trigger":  "",
		"attempt":  hc.Attempt(),
		"status":   0,
		"failed":   false,
		"metadata": map[string]any{},
	}

	if req, ok := hc.Request(); ok {
		vars["url"] = req.URL
		if req.Headers != nil {
			vars["headers"] = req.Headers
		}
	}
	if nav, ok := hc.Navigation(); ok {
		vars["url"] = nav.To
		vars["trigger"] = nav.Trigger
		if nav.Params != nil {
			vars["params"] = nav.Params
		}
		if nav.Query != nil {
			vars["query"] = nav.Query
		}
	}
	if o := hc.Outcome(); o != nil {
		vars["failed"] = o.Failed()
		if o.Response != nil {
			vars["status"] = o.Response.Status
		}
	}
	if md := hc.Metadata(); md != nil {
		vars["metadata"] = md
	}
	return vars
}

// Ensure Rule implements the interface.
var _ ports.NamedHandler = (*Rule)(nil)
