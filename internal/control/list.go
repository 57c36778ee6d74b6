package control

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
)

// ListTool handles the list MCP tool.
type ListTool struct {
	store *runtimestate.Store
}

// NewListTool creates a ListTool backed by store.
func NewListTool(store *runtimestate.Store) *ListTool {
	return &ListTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("list",
		mcp.WithDescription("Filtered projection of the prompt catalogue's RuntimeState."),
		mcp.WithString("status", mcp.Description("Filter by authored status: draft, stable, deprecated, legacy")),
		mcp.WithString("group", mcp.Description("Filter by group")),
		mcp.WithString("tag", mcp.Description("Filter by tag membership")),
		mcp.WithString("runtime_state", mcp.Description("Filter by runtime state: active, legacy, invalid, disabled, warning")),
	)
}

type listItem struct {
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
}

type listResponse struct {
	Total   int        `json:"total"`
	Prompts []listItem `json:"prompts"`
}

// Handle processes the list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := req.GetString("status", "")
	group := req.GetString("group", "")
	tag := req.GetString("tag", "")
	runtimeState := req.GetString("runtime_state", "")

	var out []listItem
	for _, rt := range t.store.All() {
		if status != "" && string(rt.Status) != status {
			continue
		}
		if group != "" && rt.Group != group {
			continue
		}
		if runtimeState != "" && string(rt.RuntimeState) != runtimeState {
			continue
		}
		if tag != "" && !containsTag(rt.Tags, tag) {
			continue
		}
		out = append(out, listItem{
			ID: rt.ID, Title: rt.Title, Version: rt.Version,
			Status: string(rt.Status), RuntimeState: string(rt.RuntimeState),
			Source: string(rt.Source), Tags: rt.Tags, UseCases: rt.UseCases,
			Group: rt.Group, Visibility: string(rt.Visibility),
		})
	}
	return jsonResult(listResponse{Total: len(out), Prompts: out})
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
