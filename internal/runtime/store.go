package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/hookgate/internal/core/ports"
	"github.com/tjfontaine/hookgate/internal/pipeline"
	"github.com/tjfontaine/hookgate/internal/pkg/config"
	"github.com/tjfontaine/hookgate/internal/storage/memory"
	"github.com/tjfontaine/hookgate/internal/storage/sqldb"
)

// DefaultSQLitePath is used when the sqlite storage type sets no path.
const DefaultSQLitePath = "hookgate.db"

// NewEventStore opens the event store described by cfg. The "none" type
// returns a nil store.
func NewEventStore(cfg config.StorageConfig) (ports.EventStore, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		store, err := sqldb.NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown storage type %q (must be 'sqlite', 'memory' or 'none')", cfg.Type)
}

// NewEngineFromConfig builds an engine from the hook rules and retry policy
// in cfg, appending extra after the configured handlers of each kind.
func NewEngineFromConfig(cfg *config.Config, extra pipeline.Hooks, logger *slog.Logger, opts ...pipeline.Option) (*pipeline.Engine, error) {
	retry, err := pipeline.RetryConfigFromConfig(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	hooks, err := pipeline.NewHooksFromConfig(cfg.Hooks, logger)
	if err != nil {
		return nil, err
	}

	hooks = pipeline.Hooks{
		Before:  hooks.Before.Append(extra.Before),
		After:   hooks.After.Append(extra.After),
		Blocked: hooks.Blocked.Append(extra.Blocked),
		Failed:  hooks.Failed.Append(extra.Failed),
	}

	opts = append([]pipeline.Option{pipeline.WithRetryConfig(retry), pipeline.WithLogger(logger)}, opts...)
	return pipeline.NewEngine(hooks, opts...), nil
}
