// Package wrapper serves the static status endpoints of an MCP HTTP wrapper:
// /health, /mcp, a CORS preflight answer and a JSON 404 for everything else.
package wrapper

import (
	"bytes"
	"encoding/json"
)

// Fixed paths answered by every wrapper.
const (
	PathHealth = "/health"
	PathMCP    = "/mcp"
)

// Route names used in logs and metrics.
const (
	RoutePreflight = "preflight"
	RouteHealth    = "health"
	RouteMCP       = "mcp"
	RouteNotFound  = "not_found"
)

// Endpoints returns the paths advertised by the /mcp descriptor.
func Endpoints() []string {
	return []string{PathHealth, PathMCP}
}

// Descriptor is the identity a wrapper reports about the MCP server it fronts.
type Descriptor struct {
	Name string
	Note string
}

// HealthBody is the payload of /health.
type HealthBody struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// IndexBody is the payload of /mcp.
type IndexBody struct {
	Message   string   `json:"message"`
	Endpoints []string `json:"endpoints"`
	Note      string   `json:"note"`
}

// ErrorBody is the payload of every unmatched route.
type ErrorBody struct {
	Error string `json:"error"`
}

// Health returns the /health payload of d.
func (d Descriptor) Health() HealthBody {
	return HealthBody{Status: "healthy", Service: d.Name}
}

// Index returns the /mcp payload of d.
func (d Descriptor) Index() IndexBody {
	return IndexBody{Message: d.Name, Endpoints: Endpoints(), Note: d.Note}
}

// NotFound is the payload answered for unmatched routes.
func NotFound() ErrorBody {
	return ErrorBody{Error: "Not found"}
}

// encode renders v compactly, without HTML escaping and without a trailing newline.
func encode(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
