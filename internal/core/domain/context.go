package domain

import (
	"maps"
	"time"

	"github.com/tjfontaine/hookgate/internal/match"
)

// SubjectKind identifies what kind of operation a hook context describes.
type SubjectKind string

const (
	SubjectNavigation SubjectKind = "navigation"
	SubjectRequest    SubjectKind = "request"
)

// Navigation describes a client-side route change.
type Navigation struct {
	From    string            `json:"from,omitempty"`
	To      string            `json:"to"`
	Trigger string            `json:"trigger,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Query   map[string]string `json:"query,omitempty"`
	Data    map[string]any    `json:"data,omitempty"`
}

func (n Navigation) clone() Navigation {
	n.Params = maps.Clone(n.Params)
	n.Query = maps.Clone(n.Query)
	n.Data = maps.Clone(n.Data)
	return n
}

// Request describes an outgoing or incoming network request.
type Request struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

func (r Request) clone() Request {
	r.Headers = maps.Clone(r.Headers)
	return r
}

// Response is the successful outcome of a request.
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// Outcome is the result of an executed operation: a response or an error.
type Outcome struct {
	Response *Response
	Err      error
}

// Failed reports whether the outcome carries an error.
func (o *Outcome) Failed() bool {
	return o != nil && o.Err != nil
}

// Subject is the operation a context is about. Exactly one of Navigation
// and Request is set, according to Kind.
type Subject struct {
	Kind       SubjectKind
	Navigation *Navigation
	Request    *Request
}

func (s Subject) clone() Subject {
	if s.Navigation != nil {
		n := s.Navigation.clone()
		s.Navigation = &n
	}
	if s.Request != nil {
		r := s.Request.clone()
		s.Request = &r
	}
	return s
}

// HookContext is the immutable record handed to every hook handler. It is
// built once per attempt; derived contexts are new values.
type HookContext struct {
	subject     Subject
	outcome     *Outcome
	timestamp   time.Time
	attempt     int
	operationID string
	metadata    map[string]any
}

// ContextOptions carries the optional fields of a new HookContext.
type ContextOptions struct {
	OperationID string
	Attempt     int
	Timestamp   time.Time
	Metadata    map[string]any
}

// NewNavigationContext builds a context for a navigation.
func NewNavigationContext(nav Navigation, opts ContextOptions) *HookContext {
	n := nav.clone()
	return newContext(Subject{Kind: SubjectNavigation, Navigation: &n}, opts)
}

// NewRequestContext builds a context for a request.
func NewRequestContext(req Request, opts ContextOptions) *HookContext {
	r := req.clone()
	return newContext(Subject{Kind: SubjectRequest, Request: &r}, opts)
}

func newContext(s Subject, opts ContextOptions) *HookContext {
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &HookContext{
		subject:     s,
		timestamp:   ts,
		attempt:     opts.Attempt,
		operationID: opts.OperationID,
		metadata:    maps.Clone(opts.Metadata),
	}
}

// Kind returns the subject kind.
func (c *HookContext) Kind() SubjectKind { return c.subject.Kind }

// Subject returns a copy of the subject.
func (c *HookContext) Subject() Subject { return c.subject.clone() }

// Navigation returns a copy of the navigation subject, if any.
func (c *HookContext) Navigation() (Navigation, bool) {
	if c.subject.Navigation == nil {
		return Navigation{}, false
	}
	return c.subject.Navigation.clone(), true
}

// Request returns a copy of the request subject, if any.
func (c *HookContext) Request() (Request, bool) {
	if c.subject.Request == nil {
		return Request{}, false
	}
	return c.subject.Request.clone(), true
}

// Outcome returns the operation outcome, or nil before execution.
func (c *HookContext) Outcome() *Outcome {
	if c.outcome == nil {
		return nil
	}
	o := *c.outcome
	if o.Response != nil {
		r := *o.Response
		r.Headers = maps.Clone(r.Headers)
		o.Response = &r
	}
	return &o
}

// Timestamp returns when the context was built.
func (c *HookContext) Timestamp() time.Time { return c.timestamp }

// Attempt returns the zero-based attempt this context was built for.
func (c *HookContext) Attempt() int { return c.attempt }

// OperationID identifies the logical operation across its attempts.
func (c *HookContext) OperationID() string { return c.operationID }

// Metadata returns a copy of the metadata map.
func (c *HookContext) Metadata() map[string]any { return maps.Clone(c.metadata) }

// Value returns a single metadata value.
func (c *HookContext) Value(key string) (any, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

// Path returns the path used for scope matching.
func (c *HookContext) Path() string {
	switch {
	case c.subject.Request != nil:
		return match.ExtractPath(c.subject.Request.URL)
	case c.subject.Navigation != nil:
		return match.ExtractPath(c.subject.Navigation.To)
	}
	return ""
}

// Method returns the request method. Navigations have no method.
func (c *HookContext) Method() string {
	if c.subject.Request != nil {
		return c.subject.Request.Method
	}
	return ""
}

// WithOutcome returns a copy of the context carrying the given outcome.
func (c *HookContext) WithOutcome(o Outcome) *HookContext {
	next := *c
	next.outcome = &o
	return &next
}

// WithMetadata returns a copy of the context with key set to value.
func (c *HookContext) WithMetadata(key string, value any) *HookContext {
	next := *c
	next.metadata = maps.Clone(c.metadata)
	if next.metadata == nil {
		next.metadata = make(map[string]any, 1)
	}
	next.metadata[key] = value
	return &next
}

// NextAttempt returns a fresh context for the following attempt of the same
// operation. Only the subject's static fields and metadata carry over.
func (c *HookContext) NextAttempt(now time.Time) *HookContext {
	return c.ForAttempt(c.attempt+1, now)
}

// ForAttempt returns a fresh context for the given attempt of the same
// operation, without any outcome.
func (c *HookContext) ForAttempt(attempt int, now time.Time) *HookContext {
	return &HookContext{
		subject:     c.subject.clone(),
		timestamp:   now,
		attempt:     attempt,
		operationID: c.operationID,
		metadata:    maps.Clone(c.metadata),
	}
}
