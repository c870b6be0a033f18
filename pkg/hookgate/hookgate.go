// Package hookgate provides the public API for embedding the hook engine
// and the gateway. This is the stable API for external consumers.
package hookgate

import (
	"github.com/tjfontaine/hookgate/internal/contextbuilder"
	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
	"github.com/tjfontaine/hookgate/internal/pipeline"
	"github.com/tjfontaine/hookgate/internal/runtime"
	"github.com/tjfontaine/hookgate/internal/server"
)

// Engine types. See internal/pipeline for full documentation.
type (
	Engine        = pipeline.Engine
	EngineOption  = pipeline.Option
	Hooks         = pipeline.Hooks
	HandlerSet    = pipeline.HandlerSet
	ScopedHandler = pipeline.ScopedHandler
	RetryConfig   = pipeline.RetryConfig
	Result        = pipeline.Result
	GateResult    = pipeline.GateResult
	ContextSource = pipeline.ContextSource
	ExecuteFunc   = pipeline.ExecuteFunc
)

// Domain types.
type (
	Context         = domain.HookContext
	Decision        = domain.Decision
	ScopeSpec       = domain.ScopeSpec
	Navigation      = domain.Navigation
	Request         = domain.Request
	Response        = domain.Response
	DiagnosticEvent = domain.DiagnosticEvent
	Handler         = ports.Handler
	HandlerFunc     = ports.HandlerFunc
	BoolHandlerFunc = ports.BoolHandlerFunc
	DiagnosticsSink = ports.DiagnosticsSink
	ContextOptions  = domain.ContextOptions
	BlockedError    = domain.BlockedError
	HandlerError    = domain.HandlerError
)

// Context constructors and error helpers.
var (
	NewRequestContext    = domain.NewRequestContext
	NewNavigationContext = domain.NewNavigationContext
	IsBlocked            = domain.IsBlocked
	IsHandlerError       = domain.IsHandlerError
)

// Context construction.
type (
	ContextBuilder  = contextbuilder.Builder
	RouteSegment    = contextbuilder.RouteSegment
	NavigationEvent = contextbuilder.NavigationEvent
)

// NoRetries disables retries when used as RetryConfig.MaxRetries. An unset
// MaxRetries means the default of 3.
const NoRetries = pipeline.NoRetries

// Decisions.
var (
	Allow      = domain.Allow
	Block      = domain.Block
	Retry      = domain.Retry
	RetryAfter = domain.RetryAfter
	Fallback   = domain.Fallback
	None       = domain.None
)

// Engine construction.
//
//	engine := hookgate.NewEngine(hookgate.Hooks{
//	    Before: hookgate.Single(hookgate.BoolHandlerFunc(isAuthenticated)),
//	}, hookgate.WithRetryConfig(hookgate.RetryConfig{MaxRetries: 2}))
var (
	NewEngine         = pipeline.NewEngine
	Single            = pipeline.Single
	Scoped            = pipeline.Scoped
	FromContext       = pipeline.FromContext
	WithRetryConfig   = pipeline.WithRetryConfig
	WithSink          = pipeline.WithSink
	WithEngineLogger  = pipeline.WithLogger
	NewContextBuilder = contextbuilder.New
	GateMiddleware    = server.GateMiddleware
)

// Gateway is the standalone hook-gated HTTP front.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// New creates a new Gateway with the given options.
// Example:
//
//	gw, err := hookgate.New(
//	    hookgate.WithFileConfig("config.yaml"),
//	    hookgate.WithSQLite("./data/hookgate.db"),
//	)
var New = runtime.New

// Gateway options
var (
	WithFileConfig     = runtime.WithFileConfig
	WithConfigProvider = runtime.WithConfigProvider
	WithLogger         = runtime.WithLogger
	WithSQLite         = runtime.WithSQLite
	WithMemoryStore    = runtime.WithMemoryStore
	WithEventStore     = runtime.WithEventStore
	WithDiagnostics    = runtime.WithDiagnostics
	WithHooks          = runtime.WithHooks
	WithExecutor       = runtime.WithExecutor
)
