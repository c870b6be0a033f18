package ports

import (
	"context"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/pkg/config"
)

// ConfigProvider loads and manages configuration.
// Implementations: file-based with hot reload (default).
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}

// DiagnosticsSink receives structured events from the engine.
// Report is fire-and-forget: implementations must not block the chain.
type DiagnosticsSink interface {
	Report(ctx context.Context, ev domain.DiagnosticEvent)
}

// DiagnosticsFunc adapts a function to the DiagnosticsSink interface.
type DiagnosticsFunc func(ctx context.Context, ev domain.DiagnosticEvent)

// Report implements DiagnosticsSink.
func (f DiagnosticsFunc) Report(ctx context.Context, ev domain.DiagnosticEvent) {
	f(ctx, ev)
}
