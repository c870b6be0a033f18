package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tjfontaine/hookgate/internal/adapters/hooks/apikey"
	"github.com/tjfontaine/hookgate/internal/adapters/hooks/celrule"
	"github.com/tjfontaine/hookgate/internal/adapters/hooks/ratelimit"
	"github.com/tjfontaine/hookgate/internal/adapters/hooks/static"
	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
	"github.com/tjfontaine/hookgate/internal/pkg/config"
)

// DefaultWebhookTimeout applies when a webhook rule sets no timeout.
const DefaultWebhookTimeout = 5 * time.Second

// NewHooksFromConfig builds the handler sets for every lifecycle point.
// Rules keep their declared order.
func NewHooksFromConfig(cfg config.HooksConfig, logger *slog.Logger) (Hooks, error) {
	var hooks Hooks
	var err error

	if hooks.Before, err = newSetFromConfig(domain.HookBefore, cfg.Before, logger); err != nil {
		return Hooks{}, err
	}
	if hooks.After, err = newSetFromConfig(domain.HookAfter, cfg.After, logger); err != nil {
		return Hooks{}, err
	}
	if hooks.Blocked, err = newSetFromConfig(domain.HookBlocked, cfg.Blocked, logger); err != nil {
		return Hooks{}, err
	}
	if hooks.Failed, err = newSetFromConfig(domain.HookFailed, cfg.Failed, logger); err != nil {
		return Hooks{}, err
	}

	return hooks, nil
}

// RetryConfigFromConfig converts engine configuration into a RetryConfig.
func RetryConfigFromConfig(cfg config.EngineConfig) (RetryConfig, error) {
	rc := RetryConfig{
		MaxRetries:         cfg.MaxRetries,
		ExponentialBackoff: cfg.ExponentialBackoff,
	}

	var err error
	if rc.DefaultDelay, err = parseDuration(cfg.DefaultDelay, 0); err != nil {
		return RetryConfig{}, fmt.Errorf("invalid default_delay: %w", err)
	}
	if rc.MaxDelay, err = parseDuration(cfg.MaxDelay, DefaultMaxDelay); err != nil {
		return RetryConfig{}, fmt.Errorf("invalid max_delay: %w", err)
	}
	return rc, nil
}

func newSetFromConfig(kind domain.HookKind, rules []config.HookRule, logger *slog.Logger) (HandlerSet, error) {
	if len(rules) == 0 {
		return HandlerSet{}, nil
	}

	entries := make([]ScopedHandler, 0, len(rules))
	for i, rule := range rules {
		name := rule.Name
		if name == "" {
			name = fmt.Sprintf("%s[%d]", kind, i)
			rule.Name = name
		}

		h, err := newHandlerFromConfig(rule, logger)
		if err != nil {
			return HandlerSet{}, fmt.Errorf("%s hook %s: %w", kind, name, err)
		}

		var scope *domain.ScopeSpec
		if len(rule.Paths) > 0 || len(rule.Methods) > 0 {
			scope = &domain.ScopeSpec{Paths: rule.Paths, Methods: rule.Methods}
		}

		entries = append(entries, ScopedHandler{Name: name, Scope: scope, Handler: h})
	}

	return Scoped(entries...), nil
}

func newHandlerFromConfig(rule config.HookRule, logger *slog.Logger) (ports.Handler, error) {
	switch rule.Type {
	case "static":
		delay, err := parseDuration(rule.Delay, 0)
		if err != nil {
			return nil, fmt.Errorf("invalid delay %q: %w", rule.Delay, err)
		}
		var data any
		if rule.Data != nil {
			data = rule.Data
		}
		return static.FromAction(rule.Name, rule.Action, rule.Reason, delay, data)

	case "cel":
		return celrule.New(rule.Name, rule.Expr, rule.Reason)

	case "ratelimit":
		return ratelimit.New(ratelimit.Config{
			Name:  rule.Name,
			Rate:  rule.Rate,
			Burst: rule.Burst,
			Keys:  rule.Keys,
		})

	case "apikey":
		return apikey.New(rule.Name, rule.Header, rule.KeyHashes)

	case "webhook":
		return newWebhookFromConfig(rule, logger)

	case "":
		return nil, fmt.Errorf("type required")
	}
	return nil, fmt.Errorf("unknown type %q (must be 'static', 'cel', 'ratelimit', 'apikey' or 'webhook')", rule.Type)
}

func newWebhookFromConfig(rule config.HookRule, logger *slog.Logger) (ports.Handler, error) {
	if rule.URL == "" {
		return nil, fmt.Errorf("url required")
	}

	timeout, err := parseDuration(rule.Timeout, DefaultWebhookTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", rule.Timeout, err)
	}

	var onError OnError
	switch rule.OnError {
	case "", "block", "deny":
		onError = OnErrorBlock
	case "allow":
		onError = OnErrorAllow
	default:
		return nil, fmt.Errorf("invalid on_error %q (must be 'allow' or 'block')", rule.OnError)
	}

	return NewWebhookHandler(WebhookConfig{
		Name:         rule.Name,
		URL:          rule.URL,
		Timeout:      timeout,
		OnError:      onError,
		Retries:      rule.Retries,
		Headers:      rule.Headers,
		AllowPrivate: rule.AllowPrivate,
		Logger:       logger,
	}), nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
