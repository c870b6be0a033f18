package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
	"github.com/tjfontaine/hookgate/internal/pkg/safehttp"
)

// OnError selects what a webhook handler decides when the endpoint cannot
// be reached or answers garbage.
type OnError string

const (
	OnErrorAllow OnError = "allow"
	OnErrorBlock OnError = "block"
)

// maxWebhookResponse bounds the response body read from an endpoint.
const maxWebhookResponse = 1 << 20

// WebhookHandler calls an external HTTP endpoint for a decision.
type WebhookHandler struct {
	name    string
	url     string
	onError OnError
	retries int
	headers map[string]string
	client  *http.Client
	logger  *slog.Logger
}

// WebhookConfig configures a webhook handler.
type WebhookConfig struct {
	Name    string
	URL     string
	Timeout time.Duration
	OnError OnError // "allow" or "block" (default: block)
	Retries int
	Headers map[string]string

	// AllowPrivate permits loopback and private-network endpoints.
	AllowPrivate bool
	// Client overrides the HTTP client. Timeout and AllowPrivate are
	// ignored when set.
	Client *http.Client
	Logger *slog.Logger
}

// WebhookRequest is the JSON body posted to the endpoint.
type WebhookRequest struct {
	Phase       string             `json:"phase"`
	OperationID string             `json:"operation_id,omitempty"`
	Attempt     int                `json:"attempt"`
	Timestamp   time.Time          `json:"timestamp"`
	Path        string             `json:"path"`
	Navigation  *domain.Navigation `json:"navigation,omitempty"`
	Request     *domain.Request    `json:"request,omitempty"`
	Response    *domain.Response   `json:"response,omitempty"`
	Error       string             `json:"error,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// WebhookResponse is the JSON body the endpoint answers with.
type WebhookResponse struct {
	Action  string `json:"action"`
	DelayMS *int64 `json:"delay_ms,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Decision converts the response into a decision. An empty action allows.
func (r WebhookResponse) Decision() (domain.Decision, error) {
	if r.Action == "" {
		return domain.Allow(), nil
	}

	kind, err := domain.ParseDecisionKind(r.Action)
	if err != nil {
		return domain.None(), fmt.Errorf("invalid action from webhook: %w", err)
	}

	switch kind {
	case domain.DecisionAllow:
		return domain.Allow(), nil
	case domain.DecisionBlock:
		return domain.Block(r.Reason), nil
	case domain.DecisionRetry:
		if r.DelayMS != nil {
			return domain.RetryAfter(time.Duration(*r.DelayMS)*time.Millisecond, r.Reason), nil
		}
		return domain.Retry(r.Reason), nil
	case domain.DecisionFallback:
		return domain.Fallback(r.Data, r.Reason), nil
	}
	return domain.None(), nil
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	onError := cfg.OnError
	if onError == "" {
		onError = OnErrorBlock // Default to fail-closed
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: safehttp.NewTransport(cfg.AllowPrivate),
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookHandler{
		name:    cfg.Name,
		url:     cfg.URL,
		onError: onError,
		retries: cfg.Retries,
		headers: cfg.Headers,
		client:  client,
		logger:  logger,
	}
}

// Name returns the handler identifier.
func (h *WebhookHandler) Name() string {
	return h.name
}

// Handle executes the webhook call.
func (h *WebhookHandler) Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	var lastErr error

	attempts := h.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		d, err := h.doRequest(ctx, hc)
		if err == nil {
			return d, nil
		}
		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			break
		}
	}

	return h.handleError(lastErr)
}

func (h *WebhookHandler) doRequest(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	body, err := json.Marshal(NewWebhookRequest(hc))
	if err != nil {
		return domain.None(), fmt.Errorf("marshal webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return domain.None(), fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return domain.None(), fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponse))
	if err != nil {
		return domain.None(), fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.None(), fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out WebhookResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return domain.None(), fmt.Errorf("unmarshal webhook response: %w", err)
	}
	return out.Decision()
}

func (h *WebhookHandler) handleError(err error) (domain.Decision, error) {
	switch h.onError {
	case OnErrorAllow:
		h.logger.Warn("hooks: webhook failed, allowing",
			slog.String("handler", h.name),
			slog.String("error", err.Error()),
		)
		return domain.None(), nil
	default:
		return domain.None(), fmt.Errorf("webhook %s failed: %w", h.name, err)
	}
}

// NewWebhookRequest builds the body posted for hc.
func NewWebhookRequest(hc *domain.HookContext) WebhookRequest {
	in := WebhookRequest{
		Phase:       webhookPhase(hc),
		OperationID: hc.OperationID(),
		Attempt:     hc.Attempt(),
		Timestamp:   hc.Timestamp(),
		Path:        hc.Path(),
		Metadata:    hc.Metadata(),
	}
	if nav, ok := hc.Navigation(); ok {
		in.Navigation = &nav
	}
	if r, ok := hc.Request(); ok {
		in.Request = &r
	}
	if o := hc.Outcome(); o != nil {
		in.Response = o.Response
		if o.Err != nil {
			in.Error = o.Err.Error()
		}
	}
	return in
}

func webhookPhase(hc *domain.HookContext) string {
	if o := hc.Outcome(); o != nil {
		if o.Failed() {
			return string(domain.HookFailed)
		}
		return string(domain.HookAfter)
	}
	if _, ok := hc.Value(MetadataBlockReason); ok {
		return string(domain.HookBlocked)
	}
	return string(domain.HookBefore)
}

// Ensure WebhookHandler implements the interface.
var _ ports.NamedHandler = (*WebhookHandler)(nil)
