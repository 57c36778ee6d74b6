package control

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kvanta-dev/promptmesh/internal/promptdoc"
	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
)

// StatsTool handles the stats MCP tool.
type StatsTool struct {
	store          *runtimestate.Store
	basicToolCount int
}

// NewStatsTool creates a StatsTool backed by store. basicToolCount is
// the number of Control Surface tools actually registered by the
// composition root (reload, stats, list, inspect, groups,
// switch_source, ...), passed in rather than hardcoded so it can never
// drift out of sync with what's really registered.
func NewStatsTool(store *runtimestate.Store, basicToolCount int) *StatsTool {
	return &StatsTool{store: store, basicToolCount: basicToolCount}
}

// Definition returns the MCP tool definition for registration.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("stats",
		mcp.WithDescription("Snapshot of the prompt catalogue's RuntimeState, broken down by state, plus tool counts."),
	)
}

type statsResponse struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Legacy    int `json:"legacy"`
	Invalid   int `json:"invalid"`
	Disabled  int `json:"disabled"`
	Warning   int `json:"warning"`
	Tools     toolCounts `json:"tools"`
}

type toolCounts struct {
	Basic  int `json:"basic"`
	Prompt int `json:"prompt"`
	Total  int `json:"total"`
}

// Handle processes the stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := t.store.All()
	resp := statsResponse{Total: len(all)}
	for _, rt := range all {
		switch rt.RuntimeState {
		case promptdoc.StateActive:
			resp.Active++
		case promptdoc.StateLegacy:
			resp.Legacy++
		case promptdoc.StateInvalid:
			resp.Invalid++
		case promptdoc.StateDisabled:
			resp.Disabled++
		case promptdoc.StateWarning:
			resp.Warning++
		}
	}
	promptTools := t.store.HandleCount()
	resp.Tools = toolCounts{Basic: t.basicToolCount, Prompt: promptTools, Total: t.basicToolCount + promptTools}
	return jsonResult(resp)
}
