// Package control implements the Control Surface: a fixed set of
// built-in tools registered once at startup, bypassing group filtering
// (§4.9).
package control

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kvanta-dev/promptmesh/internal/reload"
)

// ReloadTool handles the reload MCP tool.
type ReloadTool struct {
	engine *reload.Engine
}

// NewReloadTool creates a ReloadTool backed by engine.
func NewReloadTool(engine *reload.Engine) *ReloadTool {
	return &ReloadTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ReloadTool) Definition() mcp.Tool {
	return mcp.NewTool("reload",
		mcp.WithDescription("Force a full reload of the prompt catalogue: re-sync the active source, re-scan, re-parse, re-rank, and re-register every tool."),
	)
}

// Handle processes the reload tool call.
func (t *ReloadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := t.engine.FullReload()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(reloadResponse{
		Loaded: result.Loaded,
		Errors: toErrorEntries(result.Errors),
	})
}

// jsonResult marshals v and wraps it as a text tool result; the Control
// Surface's responses are all small JSON objects, and mcp-go's text
// result type is the one surface attested across the example corpus.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

type reloadResponse struct {
	Loaded int            `json:"loaded"`
	Errors []errorEntry   `json:"errors"`
}

type errorEntry struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

func toErrorEntries(errs []reload.FileError) []errorEntry {
	out := make([]errorEntry, 0, len(errs))
	for _, e := range errs {
		out = append(out, errorEntry{File: e.File, Message: e.Message})
	}
	return out
}
