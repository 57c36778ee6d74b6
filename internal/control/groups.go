package control

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
)

// GroupsTool handles the supplemental groups MCP tool (SPEC_FULL.md §4.9):
// returns the set of groups actually observed across loaded documents,
// distinct from the operator-configured MCP_GROUPS active set.
type GroupsTool struct {
	store *runtimestate.Store
}

// NewGroupsTool creates a GroupsTool backed by store.
func NewGroupsTool(store *runtimestate.Store) *GroupsTool {
	return &GroupsTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *GroupsTool) Definition() mcp.Tool {
	return mcp.NewTool("groups",
		mcp.WithDescription("List every group observed across loaded documents, regardless of which groups are currently active."),
	)
}

type groupsResponse struct {
	Groups []string `json:"groups"`
}

// Handle processes the groups tool call.
func (t *GroupsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seen := map[string]bool{}
	for _, rt := range t.store.All() {
		if rt.Group != "" {
			seen[rt.Group] = true
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return jsonResult(groupsResponse{Groups: groups})
}
