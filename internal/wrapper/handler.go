package wrapper

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/gaspardpetit/mcpwrap/internal/api"
	"github.com/gaspardpetit/mcpwrap/internal/logx"
)

// Fixed CORS header values sent on every response unless origins are restricted.
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, POST, OPTIONS"
	AllowHeaders = "Content-Type"
)

// Options configures the status handler.
type Options struct {
	Descriptor Descriptor
	// AllowedOrigins restricts CORS to the listed origins. Empty keeps the
	// permissive fixed headers.
	AllowedOrigins []string
}

type page struct {
	status int
	body   []byte
}

func (p page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(p.status)
	if len(p.body) == 0 {
		return
	}
	if _, err := w.Write(p.body); err != nil {
		logx.Log.Debug().Err(err).Str("path", r.URL.Path).Msg("write response")
	}
}

// table is the immutable route table of one descriptor. Pages are rendered once.
type table struct {
	preflight page
	health    page
	index     page
	notFound  page
}

func newTable(d Descriptor) table {
	return table{
		preflight: page{status: http.StatusOK},
		health:    page{status: http.StatusOK, body: encode(d.Health())},
		index:     page{status: http.StatusOK, body: encode(d.Index())},
		notFound:  page{status: http.StatusNotFound, body: encode(NotFound())},
	}
}

// Route resolves the route name of r. OPTIONS wins over any target. Otherwise
// the raw request target must equal a path exactly, so a query string, a
// percent-encoded path or an absolute-form target never matches.
func Route(r *http.Request) string {
	if r.Method == http.MethodOptions {
		return RoutePreflight
	}
	switch requestTarget(r) {
	case PathHealth:
		return RouteHealth
	case PathMCP:
		return RouteMCP
	default:
		return RouteNotFound
	}
}

// requestTarget is the target as sent on the request line. Requests built
// client side carry no RequestURI and fall back to the escaped URL.
func requestTarget(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

func (t table) pageFor(route string) page {
	switch route {
	case RoutePreflight:
		return t.preflight
	case RouteHealth:
		return t.health
	case RouteMCP:
		return t.index
	default:
		return t.notFound
	}
}

// dispatch answers every request that reaches the router, including methods
// chi does not know.
func (t table) dispatch(w http.ResponseWriter, r *http.Request) {
	t.pageFor(Route(r)).ServeHTTP(w, r)
}

func (t table) preflightFirst(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			t.preflight.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", AllowOrigin)
		h.Set("Access-Control-Allow-Methods", AllowMethods)
		h.Set("Access-Control-Allow-Headers", AllowHeaders)
		next.ServeHTTP(w, r)
	})
}

// NewHandler constructs the HTTP handler of a wrapper.
func NewHandler(opts Options) http.Handler {
	t := newTable(opts.Descriptor)

	r := chi.NewRouter()
	for _, m := range api.MiddlewareChain(Route) {
		r.Use(m)
	}
	r.Use(jsonContent)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{AllowHeaders},
		}))
	} else {
		r.Use(permissiveCORS)
	}
	r.Use(t.preflightFirst)

	r.Handle("/*", http.HandlerFunc(t.dispatch))
	r.NotFound(t.dispatch)
	r.MethodNotAllowed(t.dispatch)
	return r
}
