// Package pipeline provides the hook execution engine.
//
// Hooks are ordered handlers that run at four lifecycle points of an
// operation (a navigation or a request). Each handler may be scoped to path
// globs and HTTP methods; handlers whose scope does not match are skipped.
//
// # Lifecycle
//
//   - before: gating. The first Block or Retry ends the chain. A handler that
//     fails or panics blocks the operation.
//   - after: runs on success. Handlers may raise a Fallback; the engine
//     surfaces the first one (and the full list) in the Result.
//   - blocked: runs when the before chain blocked.
//   - failed: runs when the operation returned an error.
//
// Notification chains (after, blocked, failed) run every matching handler.
// Failures are reported to the diagnostics sink and never stop siblings.
//
// # Retries
//
// A Retry from the before chain re-runs the whole chain against a freshly
// built context after a delay:
//
//	delay = signal delay, or RetryConfig.DefaultDelay
//	delay = min(delay * 2^n, MaxDelay)   with ExponentialBackoff
//
// After MaxRetries honoured retries (3 when unset, none when negative) a further Retry is treated as Allow and
// a retry_exhausted diagnostic is reported. Cancelling the context during a
// delay abandons the operation.
//
// # Webhook Contract
//
// Webhook handlers receive a WebhookRequest and must return a WebhookResponse:
//
//	POST <webhook_url>
//	Content-Type: application/json
//
//	{
//	  "phase": "before" | "after" | "blocked" | "failed",
//	  "operation_id": "...",
//	  "attempt": 0,
//	  "path": "/users/5",
//	  "request": { "url": "...", "method": "GET", "headers": { ... } },
//	  "navigation": { "from": "...", "to": "...", "params": { ... } },
//	  "response": { "status": 200 },   // after phase only
//	  "error": "...",                  // failed phase only
//	  "metadata": { ... }
//	}
//
// Response:
//
//	{
//	  "action": "allow" | "block" | "retry" | "fallback",
//	  "delay_ms": 250,      // if retrying
//	  "reason": "...",
//	  "data": { ... }       // if falling back
//	}
package pipeline
