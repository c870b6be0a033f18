// Package runtime provides the Gateway: a hook-gated HTTP front that
// forwards allowed requests to an upstream, journals diagnostics and
// reloads its hooks when the configuration changes.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/hookgate/internal/adapters/events/direct"
	"github.com/tjfontaine/hookgate/internal/core/ports"
	"github.com/tjfontaine/hookgate/internal/diagnostics"
	"github.com/tjfontaine/hookgate/internal/pipeline"
	"github.com/tjfontaine/hookgate/internal/pkg/config"
	"github.com/tjfontaine/hookgate/internal/server"
)

// Gateway is the main entry point for running hookgate.
// It manages configuration, the hook engine, diagnostics storage and the
// HTTP server lifecycle. Gateway can be embedded in larger applications or
// run standalone.
type Gateway struct {
	// Dependencies (injected via options)
	config     ports.ConfigProvider
	store      ports.EventStore
	ownsStore  bool
	logger     *slog.Logger
	extraSinks []ports.DiagnosticsSink
	codeHooks  pipeline.Hooks
	executor   http.Handler

	// Swapped on reload
	engine atomic.Pointer[pipeline.Engine]
	proxy  atomic.Pointer[httputil.ReverseProxy]

	sink    ports.DiagnosticsSink
	journal *diagnostics.Journal
	server  *server.Server
	group   *errgroup.Group

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
}

// New creates a Gateway with the given options. A config provider is
// required; storage defaults to the storage section of the configuration.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.config == nil {
		return nil, fmt.Errorf("config provider required (use WithFileConfig or WithConfigProvider)")
	}

	return gw, nil
}

// Start loads the configuration, builds the engine and starts serving in
// the background. Use Wait to block until the server stops.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return fmt.Errorf("gateway already started")
	}

	cfg, err := g.config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if g.store == nil {
		if g.store, err = NewEventStore(cfg.Storage); err != nil {
			return err
		}
		g.ownsStore = true
	}

	sinks := []ports.DiagnosticsSink{diagnostics.NewLogSink(g.logger), diagnostics.TraceSink{}}
	if g.store != nil {
		publisher, err := direct.NewPublisher(g.store, g.logger)
		if err != nil {
			return fmt.Errorf("create event publisher: %w", err)
		}
		g.journal = diagnostics.NewJournal(publisher, cfg.Storage.Buffer, g.logger)
		sinks = append(sinks, g.journal)
	}
	g.sink = append(diagnostics.Multi(sinks), g.extraSinks...)

	if err := g.apply(cfg); err != nil {
		g.closeStorage()
		return err
	}

	timeout, err := time.ParseDuration(cfg.Server.Timeout)
	if err != nil {
		g.closeStorage()
		return fmt.Errorf("invalid server timeout %q: %w", cfg.Server.Timeout, err)
	}
	g.server = server.New(cfg.Server.Port, timeout, g.logger)
	g.mountRoutes(g.server.Router)

	g.ctx, g.cancel = context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(g.ctx)
	g.group = group

	group.Go(g.server.Start)
	group.Go(func() error {
		return g.config.Watch(gctx, g.onConfigChange)
	})

	g.started = true
	g.logger.Info("gateway started",
		slog.Int("port", cfg.Server.Port),
		slog.Int("hooks", cfg.Hooks.Len()),
		slog.String("upstream", cfg.Server.Upstream),
	)
	return nil
}

// Wait blocks until the server stops and returns its error, if any.
func (g *Gateway) Wait() error {
	g.mu.Lock()
	group := g.group
	g.mu.Unlock()

	if group == nil {
		return nil
	}
	return group.Wait()
}

// Shutdown gracefully stops the gateway and flushes queued diagnostics.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return nil
	}
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.server.Shutdown(ctx); err != nil {
		g.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	g.cancel()
	if err := g.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}

	if err := g.config.Close(); err != nil {
		g.logger.Error("failed to close config", slog.String("error", err.Error()))
	}
	g.closeStorage()

	g.started = false
	g.logger.Info("gateway shutdown complete")
	return errors.Join(errs...)
}

// Engine returns the engine currently in effect.
func (g *Gateway) Engine() *pipeline.Engine {
	return g.engine.Load()
}

// Handler returns the HTTP handler serving the gateway's routes.
func (g *Gateway) Handler() http.Handler {
	if g.server == nil {
		return http.NotFoundHandler()
	}
	return g.server.Router
}

// EventStore returns the diagnostics store, or nil when storage is disabled.
func (g *Gateway) EventStore() ports.EventStore {
	return g.store
}

// Run implements server.Gatekeeper against the engine in effect when the
// request arrives; a reload never changes the engine of an operation in
// flight.
func (g *Gateway) Run(ctx context.Context, source pipeline.ContextSource, exec pipeline.ExecuteFunc) (*pipeline.Result, error) {
	return g.engine.Load().Run(ctx, source, exec)
}

// Reload rebuilds the engine and upstream from cfg. On error the previous
// engine stays in effect.
func (g *Gateway) Reload(cfg *config.Config) error {
	if err := g.apply(cfg); err != nil {
		return err
	}
	g.logger.Info("reload complete", slog.Int("hooks", cfg.Hooks.Len()))
	return nil
}

func (g *Gateway) onConfigChange(cfg *config.Config) {
	g.logger.Info("config changed, reloading")
	if err := g.Reload(cfg); err != nil {
		g.logger.Error("failed to reload", slog.String("error", err.Error()))
	}
}

func (g *Gateway) apply(cfg *config.Config) error {
	engine, err := NewEngineFromConfig(cfg, g.codeHooks, g.logger, pipeline.WithSink(g.sink))
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	proxy, err := g.newProxy(cfg.Server.Upstream)
	if err != nil {
		return err
	}

	g.engine.Store(engine)
	g.proxy.Store(proxy)
	return nil
}

func (g *Gateway) newProxy(upstream string) (*httputil.ReverseProxy, error) {
	if upstream == "" {
		return nil, nil
	}

	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", upstream)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		server.AddError(r.Context(), err)
		g.logger.Warn("upstream request failed",
			slog.String("upstream", target.Host),
			slog.String("error", err.Error()),
		)
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy, nil
}

// forward serves an allowed request.
func (g *Gateway) forward(w http.ResponseWriter, r *http.Request) {
	if g.executor != nil {
		g.executor.ServeHTTP(w, r)
		return
	}
	if proxy := g.proxy.Load(); proxy != nil {
		proxy.ServeHTTP(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) closeStorage() {
	if g.journal != nil {
		g.journal.Close()
		g.journal = nil
	}
	if g.store != nil && g.ownsStore {
		if err := g.store.Close(); err != nil {
			g.logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
		g.store = nil
	}
}

var _ server.Gatekeeper = (*Gateway)(nil)
