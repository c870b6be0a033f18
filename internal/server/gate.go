package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tjfontaine/hookgate/internal/contextbuilder"
	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/pipeline"
)

// DecisionHeader reports the gate outcome on blocked responses.
const DecisionHeader = "X-Hookgate-Decision"

// Gatekeeper runs an operation through the hook lifecycle.
// *pipeline.Engine implements it.
type Gatekeeper interface {
	Run(ctx context.Context, source pipeline.ContextSource, exec pipeline.ExecuteFunc) (*pipeline.Result, error)
}

var _ Gatekeeper = (*pipeline.Engine)(nil)

// StatusError is the failure recorded for a response with a server error
// status, so failed hooks observe upstream errors.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("handler returned status %d", e.Status)
}

// GateMiddleware gates every request through gk. The request ID (see
// RequestIDMiddleware) becomes the operation ID.
//
// A blocked request is answered with 403 and the block reason; next never
// runs. An allowed request is served by next, after which the after hooks
// observe the status and headers it wrote, or the failed hooks observe a
// StatusError for a 5xx status. A request abandoned during a retry delay is
// answered with 503.
func GateMiddleware(gk Gatekeeper, builder *contextbuilder.Builder, logger *slog.Logger) func(http.Handler) http.Handler {
	if builder == nil {
		builder = contextbuilder.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			hc := builder.Request(r, GetRequestID(ctx))

			sw := &statusWriter{ResponseWriter: w}
			exec := func(ctx context.Context, hc *domain.HookContext) (*domain.Response, error) {
				next.ServeHTTP(sw, r.WithContext(ctx))

				resp := &domain.Response{
					Status:  sw.Status(),
					Headers: contextbuilder.NormalizeHeaders(sw.Header()),
				}
				if resp.Status >= http.StatusInternalServerError {
					return resp, &StatusError{Status: resp.Status}
				}
				return resp, nil
			}

			res, err := gk.Run(ctx, pipeline.FromContext(hc), exec)
			if res != nil && res.Retries > 0 {
				AddLogField(ctx, "hook_retries", strconv.Itoa(res.Retries))
			}

			switch {
			case err != nil:
				AddError(ctx, err)
				logger.Debug("hooks: request abandoned",
					slog.String("operation_id", hc.OperationID()),
					slog.String("error", err.Error()),
				)
				if !sw.Written() {
					writeGateError(w, http.StatusServiceUnavailable, "abandoned", "request abandoned while waiting to retry")
				}

			case res.Blocked():
				reason := res.Decision.Reason
				AddLogField(ctx, "hook_decision", "block")
				AddLogField(ctx, "hook_block_reason", reason)
				if reason == "" {
					reason = "blocked by hook"
				}
				writeGateError(w, http.StatusForbidden, "blocked", reason)

			case res.Fallback != nil:
				reason := res.Fallback.Reason
				if reason == "" {
					reason = "true"
				}
				AddLogField(ctx, "hook_fallback", reason)
			}
		})
	}
}

type gateError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeGateError(w http.ResponseWriter, status int, kind, message string) {
	var body gateError
	body.Error.Type = kind
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(DecisionHeader, kind)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
