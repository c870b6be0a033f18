// Package diagnostics provides sinks for the structured events the hook
// engine reports: handler errors, blocks, retries, exhausted retries and
// fallbacks.
//
// Sinks compose. A typical server wires
//
//	Multi{NewLogSink(logger), TraceSink{}, NewJournal(direct.Publisher, 256, logger)}
//
// so events are logged, attached to the active span, and persisted off the
// request path.
package diagnostics
