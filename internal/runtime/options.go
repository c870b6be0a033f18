package runtime

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/hookgate/internal/adapters/config/file"
	"github.com/tjfontaine/hookgate/internal/core/ports"
	"github.com/tjfontaine/hookgate/internal/pipeline"
	"github.com/tjfontaine/hookgate/internal/storage/memory"
	"github.com/tjfontaine/hookgate/internal/storage/sqldb"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithFileConfig uses file-based configuration with hot-reload (default).
// The path should point to a config.yaml file that will be watched for changes.
func WithFileConfig(path string) Option {
	return func(g *Gateway) error {
		provider, err := file.NewProvider(path, file.WithLogger(g.logger))
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		g.config = provider
		return nil
	}
}

// WithConfigProvider sets a custom config provider.
// For advanced use cases where you need full control over config loading.
func WithConfigProvider(provider ports.ConfigProvider) Option {
	return func(g *Gateway) error {
		g.config = provider
		return nil
	}
}

// WithLogger sets a custom logger. Apply it before options that log.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger != nil {
			g.logger = logger
		}
		return nil
	}
}

// WithSQLite journals diagnostic events to the SQLite database at path,
// overriding the storage section of the configuration.
func WithSQLite(path string) Option {
	return func(g *Gateway) error {
		store, err := sqldb.NewSQLite(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		g.store = store
		g.ownsStore = true
		return nil
	}
}

// WithMemoryStore journals diagnostic events in memory.
func WithMemoryStore() Option {
	return func(g *Gateway) error {
		g.store = memory.New()
		g.ownsStore = true
		return nil
	}
}

// WithEventStore journals diagnostic events to store. The caller keeps
// ownership and closes it.
func WithEventStore(store ports.EventStore) Option {
	return func(g *Gateway) error {
		if store == nil {
			return fmt.Errorf("event store cannot be nil")
		}
		g.store = store
		g.ownsStore = false
		return nil
	}
}

// WithDiagnostics adds a sink that receives every diagnostic event.
func WithDiagnostics(sink ports.DiagnosticsSink) Option {
	return func(g *Gateway) error {
		g.extraSinks = append(g.extraSinks, sink)
		return nil
	}
}

// WithHooks registers handlers in code. They run after the handlers
// declared in configuration and survive reloads.
func WithHooks(hooks pipeline.Hooks) Option {
	return func(g *Gateway) error {
		g.codeHooks = hooks
		return nil
	}
}

// WithExecutor serves allowed requests with h instead of the configured
// upstream.
func WithExecutor(h http.Handler) Option {
	return func(g *Gateway) error {
		g.executor = h
		return nil
	}
}
