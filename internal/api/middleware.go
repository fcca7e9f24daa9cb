package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Surfaces group request log lines by the kind of client behind them.
const (
	surfaceControl  = "control"
	surfaceMessages = "messages"
	surfaceEvents   = "events"
	surfaceStream   = "stream"
	surfaceHealth   = "health"
	surfaceDocs     = "docs"
)

func surfaceOf(path string) string {
	switch {
	case path == "/api/health":
		return surfaceHealth
	case path == "/api/v1/messages":
		return surfaceMessages
	case path == "/api/v1/events":
		return surfaceEvents
	case strings.HasPrefix(path, "/api/v1/tabs/") && strings.HasSuffix(path, "/stream"):
		return surfaceStream
	case strings.HasPrefix(path, "/docs"), strings.HasPrefix(path, "/openapi"), strings.HasPrefix(path, "/schemas"):
		return surfaceDocs
	}
	return surfaceControl
}

// requestLogger writes one line per request after the handler returns, so
// event and stream lines carry the full connection lifetime. Tab routes
// log the tab ID. Health polls log at debug.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		surface := surfaceOf(r.URL.Path)
		status := ww.Status()
		if status == 0 && surface == surfaceStream {
			// Upgraded connections are hijacked before a status is recorded.
			status = http.StatusSwitchingProtocols
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"surface", surface,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if tabID := rctx.URLParam("tab_id"); tabID != "" {
				attrs = append(attrs, "tab_id", tabID)
			}
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelWarn
		case surface == surfaceHealth:
			level = slog.LevelDebug
		}
		slog.Log(r.Context(), level, "http request", attrs...)
	})
}
