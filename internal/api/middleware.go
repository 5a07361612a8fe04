package api

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gaspardpetit/mcpwrap/internal/logx"
	"github.com/gaspardpetit/mcpwrap/internal/metrics"
)

// RouteFunc names the route a request resolves to, for logs and metrics labels.
type RouteFunc func(*http.Request) string

// MiddlewareChain returns the middlewares every wrapper request passes through, outermost first.
func MiddlewareChain(route RouteFunc) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		chiMiddleware.RequestID,
		chiMiddleware.Recoverer,
		observe(route),
	}
}

func observe(route RouteFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			name := route(r)
			elapsed := time.Since(start)
			metrics.RecordRequest(name, status, elapsed)
			logx.Log.Debug().
				Str("request_id", chiMiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", name).
				Int("status", status).
				Dur("elapsed", elapsed).
				Msg("request")
		})
	}
}
