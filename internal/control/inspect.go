package control

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
)

// InspectTool handles the inspect MCP tool.
type InspectTool struct {
	store *runtimestate.Store
}

// NewInspectTool creates an InspectTool backed by store.
func NewInspectTool(store *runtimestate.Store) *InspectTool {
	return &InspectTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *InspectTool) Definition() mcp.Tool {
	return mcp.NewTool("inspect",
		mcp.WithDescription("Full runtime record for one prompt id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt id to inspect")),
	)
}

type inspectResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Version      string   `json:"version"`
	Status       string   `json:"status"`
	RuntimeState string   `json:"runtime_state"`
	Source       string   `json:"source"`
	Tags         []string `json:"tags"`
	UseCases     []string `json:"use_cases"`
	Group        string   `json:"group"`
	Visibility   string   `json:"visibility"`
	Notes        string   `json:"notes"`
	FilePath     string   `json:"file_path"`
	LoadedAt     int64    `json:"loaded_at"`
}

// Handle processes the inspect tool call.
func (t *InspectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	rt, ok := t.store.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("prompt %q not found", id)), nil
	}
	return jsonResult(inspectResponse{
		ID: rt.ID, Title: rt.Title, Version: rt.Version,
		Status: string(rt.Status), RuntimeState: string(rt.RuntimeState),
		Source: string(rt.Source), Tags: rt.Tags, UseCases: rt.UseCases,
		Group: rt.Group, Visibility: string(rt.Visibility),
		Notes: rt.Notes, FilePath: rt.FilePath, LoadedAt: rt.LoadedAt,
	})
}
