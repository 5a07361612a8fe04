package config

import "sort"

// Profile is the built-in identity of one wrapper instance.
type Profile struct {
	Name        string
	ServiceName string
	Note        string
	Port        int
}

// Built-in profile names.
const (
	ProfileMCP        = "mcp"
	ProfileFilesystem = "filesystem"
	ProfileDatabase   = "database"
)

var profiles = map[string]Profile{
	ProfileMCP: {
		Name:        ProfileMCP,
		ServiceName: "MCP HTTP Wrapper",
		Note:        "This is a wrapper for MCP servers that use stdio transport",
		Port:        8082,
	},
	ProfileFilesystem: {
		Name:        ProfileFilesystem,
		ServiceName: "Filesystem MCP HTTP Wrapper",
		Note:        "Filesystem MCP available via stdio transport",
		Port:        8082,
	},
	ProfileDatabase: {
		Name:        ProfileDatabase,
		ServiceName: "Database MCP HTTP Wrapper",
		Note:        "Database MCP available via stdio transport",
		Port:        8083,
	},
}

// LookupProfile returns the built-in profile registered under name.
func LookupProfile(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// ProfileNames lists the built-in profiles in lexical order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
