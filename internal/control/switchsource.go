package control

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kvanta-dev/promptmesh/internal/reload"
	"github.com/kvanta-dev/promptmesh/internal/source"
)

// SwitchSourceTool handles the switch_source MCP tool: switching the
// active source goes through Manager.SwitchActive and then re-enters
// FullReload rather than a separate ad hoc sync.
type SwitchSourceTool struct {
	manager      *source.Manager
	engine       *reload.Engine
	defaultBranch string
	maxRetries   int
	pollInterval time.Duration
	log          *slog.Logger
}

// NewSwitchSourceTool creates a SwitchSourceTool.
func NewSwitchSourceTool(manager *source.Manager, engine *reload.Engine, defaultBranch string, maxRetries int, pollInterval time.Duration, log *slog.Logger) *SwitchSourceTool {
	if log == nil {
		log = slog.Default()
	}
	return &SwitchSourceTool{manager: manager, engine: engine, defaultBranch: defaultBranch, maxRetries: maxRetries, pollInterval: pollInterval, log: log}
}

// Definition returns the MCP tool definition for registration.
func (t *SwitchSourceTool) Definition() mcp.Tool {
	return mcp.NewTool("switch_source",
		mcp.WithDescription("Replace the active source configuration at runtime, then trigger a full reload."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Git URL or absolute local path")),
		mcp.WithString("branch", mcp.Description("Branch override, for Git sources")),
	)
}

type switchSourceResponse struct {
	Loaded int `json:"loaded"`
}

// Handle processes the switch_source tool call.
func (t *SwitchSourceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := req.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("'url' is required"), nil
	}
	branch := req.GetString("branch", "")

	strategy := newStrategy(url, t.defaultBranch, branch, t.maxRetries, t.pollInterval, t.log)
	if err := t.manager.SwitchActive(strategy); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.engine.FullReload()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(switchSourceResponse{Loaded: result.Loaded})
}

func newStrategy(url, defaultBranch, branch string, maxRetries int, pollInterval time.Duration, log *slog.Logger) source.Strategy {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "git@") {
		return source.NewGit(url, defaultBranch, branch, maxRetries, pollInterval, log)
	}
	return source.NewLocal(url, log)
}
