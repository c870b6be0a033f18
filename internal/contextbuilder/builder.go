// Package contextbuilder constructs hook contexts from navigations and
// HTTP exchanges.
package contextbuilder

import (
	"bytes"
	"encoding/json"
	"io"
	"maps"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/hookgate/internal/core/domain"
)

// DefaultMaxBody is the largest request body copied into a context.
const DefaultMaxBody = 64 << 10

// RouteSegment is one level of a nested route match. Parent links lead to
// the root route.
type RouteSegment struct {
	Path   string
	Params map[string]string
	Query  map[string]string
	Data   map[string]any
	Parent *RouteSegment
}

// NavigationEvent describes a route change.
type NavigationEvent struct {
	From    string
	To      string
	Trigger string
	// Leaf is the deepest matched route segment. May be nil.
	Leaf *RouteSegment
}

// Builder creates hook contexts. The zero value is not usable; use New.
type Builder struct {
	now     func() time.Time
	newID   func() string
	maxBody int64
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithIDGenerator sets the operation id source.
func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) {
		b.newID = newID
	}
}

// WithMaxBody sets the largest request body copied into a context. Larger
// bodies are left out. Zero or negative disables body capture.
func WithMaxBody(n int64) Option {
	return func(b *Builder) {
		b.maxBody = n
	}
}

// New creates a builder using time.Now and random UUIDs.
func New(opts ...Option) *Builder {
	b := &Builder{
		now:     time.Now,
		newID:   uuid.NewString,
		maxBody: DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Navigation builds the context for a route change. Params, query and data
// are merged from the root segment down to the leaf; deeper segments win.
func (b *Builder) Navigation(ev NavigationEvent) *domain.HookContext {
	params, query, data := Aggregate(ev.Leaf)

	return domain.NewNavigationContext(domain.Navigation{
		From:    ev.From,
		To:      ev.To,
		Trigger: ev.Trigger,
		Params:  params,
		Query:   query,
		Data:    data,
	}, domain.ContextOptions{
		OperationID: b.newID(),
		Timestamp:   b.now(),
	})
}

// Request builds the context for an HTTP request. The operation id is taken
// from opID when non-empty. Bodies up to the configured limit are copied in,
// decoded when JSON, and r.Body is restored so the request can still be
// forwarded.
func (b *Builder) Request(r *http.Request, opID string) *domain.HookContext {
	if opID == "" {
		opID = b.newID()
	}

	return domain.NewRequestContext(domain.Request{
		URL:     r.URL.RequestURI(),
		Method:  r.Method,
		Headers: NormalizeHeaders(r.Header),
		Body:    b.captureBody(r),
	}, domain.ContextOptions{
		OperationID: opID,
		Timestamp:   b.now(),
	})
}

func (b *Builder) captureBody(r *http.Request) any {
	if b.maxBody <= 0 || r.Body == nil || r.Body == http.NoBody || r.ContentLength > b.maxBody {
		return nil
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, b.maxBody+1))
	r.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
	if err != nil || len(buf) == 0 || int64(len(buf)) > b.maxBody {
		return nil
	}

	if isJSON(r.Header.Get("Content-Type")) {
		var v any
		if json.Unmarshal(buf, &v) == nil {
			return v
		}
	}
	return string(buf)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// replayBody serves the bytes already read followed by the rest of the
// original body.
type replayBody struct {
	io.Reader
	io.Closer
}

// Response attaches the outcome of resp to hc.
func (b *Builder) Response(hc *domain.HookContext, resp *http.Response) *domain.HookContext {
	if resp == nil {
		return hc.WithOutcome(domain.Outcome{})
	}
	return b.ResponseFromStatus(hc, resp.StatusCode, resp.Header)
}

// ResponseFromStatus attaches a response outcome built from a status and
// headers.
func (b *Builder) ResponseFromStatus(hc *domain.HookContext, status int, headers http.Header) *domain.HookContext {
	return hc.WithOutcome(domain.Outcome{Response: &domain.Response{
		Status:  status,
		Headers: NormalizeHeaders(headers),
	}})
}

// Failure attaches an error outcome to hc.
func (b *Builder) Failure(hc *domain.HookContext, err error) *domain.HookContext {
	return hc.WithOutcome(domain.Outcome{Err: err})
}

// Aggregate merges params, query and data from the root of the chain down
// to leaf. Values set by deeper segments replace their ancestors' values.
func Aggregate(leaf *RouteSegment) (params, query map[string]string, data map[string]any) {
	var chain []*RouteSegment
	for s := leaf; s != nil; s = s.Parent {
		chain = append(chain, s)
	}

	params = map[string]string{}
	query = map[string]string{}
	data = map[string]any{}
	for i := len(chain) - 1; i >= 0; i-- {
		maps.Copy(params, chain[i].Params)
		maps.Copy(query, chain[i].Query)
		maps.Copy(data, chain[i].Data)
	}
	return params, query, data
}

// NormalizeHeaders lower-cases header names and keeps the first non-empty
// value of each.
func NormalizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		if _, ok := out[key]; ok {
			continue
		}
		for _, v := range values {
			if v != "" {
				out[key] = v
				break
			}
		}
	}
	return out
}
