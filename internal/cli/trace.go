package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixelsort/pkg/observability"
)

// traceHooks logs every observability event at info level.
type traceHooks struct {
	logger *log.Logger
}

var (
	_ observability.PipelineHooks = (*traceHooks)(nil)
	_ observability.CacheHooks    = (*traceHooks)(nil)
	_ observability.HTTPHooks     = (*traceHooks)(nil)
)

func (h *traceHooks) OnDecode(_ context.Context, format string, width, height int, d time.Duration, err error) {
	h.result("decode", err, "format", format, "width", width, "height", height, "duration", d)
}

func (h *traceHooks) OnSortStart(_ context.Context, axis string, lines int) {
	h.logger.Info("trace", "event", "sort.start", "axis", axis, "lines", lines)
}

func (h *traceHooks) OnSortComplete(_ context.Context, axis string, pixels int, d time.Duration, err error) {
	h.result("sort.complete", err, "axis", axis, "pixels", pixels, "duration", d)
}

func (h *traceHooks) OnEncode(_ context.Context, format string, size int, d time.Duration, err error) {
	h.result("encode", err, "format", format, "bytes", size, "duration", d)
}

func (h *traceHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Info("trace", "event", "cache.hit", "type", keyType)
}

func (h *traceHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Info("trace", "event", "cache.miss", "type", keyType)
}

func (h *traceHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Info("trace", "event", "cache.set", "type", keyType, "bytes", size)
}

func (h *traceHooks) OnRequest(_ context.Context, method, path string) {
	h.logger.Info("trace", "event", "http.request", "method", method, "path", path)
}

func (h *traceHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.logger.Info("trace", "event", "http.response", "method", method, "path", path, "status", status, "duration", d)
}

func (h *traceHooks) OnError(_ context.Context, method, path string, err error) {
	h.logger.Warn("trace", "event", "http.error", "method", method, "path", path, "error", err)
}

func (h *traceHooks) result(event string, err error, kv ...any) {
	kv = append([]any{"event", event}, kv...)
	if err != nil {
		h.logger.Warn("trace", append(kv, "error", err)...)
		return
	}
	h.logger.Info("trace", kv...)
}
