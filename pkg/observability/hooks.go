// Package observability lets the binary attach instrumentation to the
// pipeline, cache and HTTP server without those packages importing a
// metrics or tracing library.
//
// Libraries report events through [Pipeline], [Cache] and [HTTP]. Until
// something is registered these return no-op implementations. The CLI's
// --trace flag registers a logger-backed implementation of all three:
//
//	observability.Register(&traceHooks{logger: logger})
//
// Registration is meant for startup. Swapping hooks while requests are in
// flight is safe but events may go to either set.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from the decode, sort and encode stages.
type PipelineHooks interface {
	OnDecode(ctx context.Context, format string, width, height int, duration time.Duration, err error)

	// OnSortStart fires before the first line is gathered; axis is one of
	// rows, rotated-rows or columns.
	OnSortStart(ctx context.Context, axis string, lines int)
	OnSortComplete(ctx context.Context, axis string, pixels int, duration time.Duration, err error)

	OnEncode(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// CacheHooks receives artifact cache lookups and writes.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)

	// OnError fires once per request that ends in an error response.
	OnError(ctx context.Context, method, path string, err error)
}

// NoopPipelineHooks ignores every pipeline event.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnDecode(context.Context, string, int, int, time.Duration, error)  {}
func (NoopPipelineHooks) OnSortStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnSortComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnEncode(context.Context, string, int, time.Duration, error)       {}

// NoopCacheHooks ignores every cache event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every HTTP event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// hookSet is replaced as a whole so readers never see a partial update.
type hookSet struct {
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var noop = hookSet{
	pipeline: NoopPipelineHooks{},
	cache:    NoopCacheHooks{},
	http:     NoopHTTPHooks{},
}

var current atomic.Pointer[hookSet]

func init() { Reset() }

// update copies the current set, applies fn and stores the result.
func update(fn func(*hookSet)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetPipelineHooks registers pipeline hooks. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(s *hookSet) { s.pipeline = h })
	}
}

// SetCacheHooks registers cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(s *hookSet) { s.cache = h })
	}
}

// SetHTTPHooks registers HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(s *hookSet) { s.http = h })
	}
}

// Register installs h for every hook interface it implements and reports
// how many it matched.
func Register(h any) int {
	n := 0
	update(func(s *hookSet) {
		if p, ok := h.(PipelineHooks); ok {
			s.pipeline = p
			n++
		}
		if c, ok := h.(CacheHooks); ok {
			s.cache = c
			n++
		}
		if x, ok := h.(HTTPHooks); ok {
			s.http = x
			n++
		}
	})
	return n
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks { return current.Load().pipeline }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return current.Load().cache }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	s := noop
	current.Store(&s)
}
