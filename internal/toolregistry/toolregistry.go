// Package toolregistry defines the ToolRegistry external contract (§6)
// and its concrete github.com/mark3labs/mcp-go backing.
package toolregistry

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// HandlerFunc is the MCP tool invocation handler, matching mcp-go's
// server.ToolHandlerFunc so adapters need no wrapping.
type HandlerFunc func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Handle is a live tool registration. Remove unregisters the tool by
// name (mcp-go's DeleteTools), so calling Remove on a handle that has
// been superseded by a later Register of the same id deletes the newer
// registration as well. ReloadEngine's dual-swap avoids this by only
// calling Remove on ids that are NOT in the new registration set, per
// §4.8 step 8.
type Handle interface {
	Remove()
}

// Registry is the ToolRegistry external contract: Register always
// succeeds and atomically replaces any existing tool of the same name
// (§6) — this is what gives the dual-swap its no-downtime guarantee
// over the real transport.
type Registry interface {
	Register(id string, tool mcp.Tool, handler HandlerFunc) Handle
}

// mcpRegistry backs Registry with a real server.MCPServer.
type mcpRegistry struct {
	srv *server.MCPServer
}

// NewMCPRegistry wraps srv as a Registry.
func NewMCPRegistry(srv *server.MCPServer) Registry {
	return &mcpRegistry{srv: srv}
}

func (r *mcpRegistry) Register(id string, tool mcp.Tool, handler HandlerFunc) Handle {
	r.srv.AddTool(tool, server.ToolHandlerFunc(handler))
	return &mcpHandle{srv: r.srv, id: id}
}

type mcpHandle struct {
	srv *server.MCPServer
	id  string
}

func (h *mcpHandle) Remove() {
	h.srv.DeleteTools(h.id)
}
