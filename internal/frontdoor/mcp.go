package frontdoor

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPOptions selects the streamable HTTP transport behaviour.
type MCPOptions struct {
	// Stateless skips session tracking; every request stands alone.
	Stateless bool
	// JSONResponse answers with application/json instead of an SSE stream.
	JSONResponse bool
}

// NewMCPHandler wraps server in the MCP streamable HTTP transport, ready to
// be mounted.
func NewMCPHandler(server *mcp.Server, opts MCPOptions) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		Stateless:    opts.Stateless,
		JSONResponse: opts.JSONResponse,
	})
}
