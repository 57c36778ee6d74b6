// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/resources that depend on abstractions. No
// reload or ranking logic lives here — only wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kvanta-dev/promptmesh/internal/config"
	"github.com/kvanta-dev/promptmesh/internal/control"
	"github.com/kvanta-dev/promptmesh/internal/filecache"
	"github.com/kvanta-dev/promptmesh/internal/hbtemplate"
	"github.com/kvanta-dev/promptmesh/internal/health"
	"github.com/kvanta-dev/promptmesh/internal/partials"
	"github.com/kvanta-dev/promptmesh/internal/promptdoc"
	"github.com/kvanta-dev/promptmesh/internal/reload"
	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
	"github.com/kvanta-dev/promptmesh/internal/source"
	"github.com/kvanta-dev/promptmesh/internal/toolregistry"
)

// Version is set at build time via ldflags.
var Version = "dev"

const fileCacheTTL = 2 * time.Second

// New creates and configures the MCP server with every control tool and
// the health resource registered, loads the initial catalogue, and
// starts watch mode if configured. The returned cleanup function stops
// the watcher, poller, and cache sweeper; it is always non-nil and safe
// to call even if Load failed partway through.
func New(cfg *config.Config, log *slog.Logger) (*server.MCPServer, func(), error) {
	if log == nil {
		log = slog.Default()
	}

	cache := filecache.New(fileCacheTTL)
	sweepInterval := 30 * time.Second
	if cfg.CacheCleanupInterval > 0 {
		sweepInterval = cfg.CacheCleanupInterval
	}
	cache.StartSweeper(sweepInterval, nil)

	users := make([]source.UserSource, 0, len(cfg.UserSources))
	for _, spec := range cfg.UserSources {
		users = append(users, source.UserSource{
			Priority: spec.Priority,
			Strategy: newStrategyFromConfig(spec.URL, cfg, log),
		})
	}
	var system source.Strategy
	if cfg.SystemRepoURL != "" {
		system = newStrategyFromConfig(cfg.SystemRepoURL, cfg, log)
	}

	manager := source.New(users, system, cfg.StorageDir, log)
	cleanup := func() {
		manager.StopWatch()
		cache.StopSweeper()
	}

	if err := manager.Load(); err != nil {
		return nil, cleanup, fmt.Errorf("initial source load: %w", err)
	}

	store := runtimestate.New()
	partialRegistry := partials.New()

	s := server.NewMCPServer(
		"promptmesh",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)
	registry := toolregistry.NewMCPRegistry(s)

	engine := reload.New(manager, cache, partialRegistry, store, registry, bindPromptTool, log).
		WithActiveGroups(cfg.ActiveGroups)

	if _, err := engine.FullReload(); err != nil {
		return nil, cleanup, fmt.Errorf("initial reload: %w", err)
	}

	registerControlTools(s, engine, store, manager, cfg, log)

	startedAt := time.Now()
	hasRegistry := func() bool {
		if _, err := os.Stat(filepath.Join(manager.TargetDir(), "registry.yaml")); err == nil {
			return true
		}
		if manager.HasSystemSource() {
			_, err := os.Stat(filepath.Join(manager.SystemDir(), "registry.yaml"))
			return err == nil
		}
		return false
	}
	healthHandler := health.NewHandler(manager, store, cache, cfg, startedAt, hasRegistry)
	s.AddResource(healthHandler.Resource(), healthHandler.Handle)

	if cfg.WatchMode {
		onChange := func(path string) {
			var result reload.Result
			var err error
			if path == "" {
				result, err = engine.FullReload()
			} else {
				result, err = engine.SingleReload(path)
			}
			if err != nil {
				log.Warn("reload failed", "path", path, "err", err)
				return
			}
			log.Info("reload completed", "path", path, "loaded", result.Loaded, "errors", len(result.Errors))
		}
		if err := manager.StartWatch(onChange); err != nil {
			log.Warn("watch mode could not be started", "err", err)
		}
	}

	return s, cleanup, nil
}

func newStrategyFromConfig(url string, cfg *config.Config, log *slog.Logger) source.Strategy {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "git@") {
		return source.NewGit(url, cfg.GitBranch, "", cfg.GitMaxRetries, cfg.GitPollingInterval, log)
	}
	return source.NewLocal(url, log)
}

// toolReg pairs a tool definition with its handler, so the Control
// Surface's own size can be counted off the slice below instead of
// carried as a separate literal that could drift out of sync with it.
type toolReg struct {
	def     mcp.Tool
	handler toolregistry.HandlerFunc
}

func registerControlTools(s *server.MCPServer, engine *reload.Engine, store *runtimestate.Store, manager *source.Manager, cfg *config.Config, log *slog.Logger) {
	reloadTool := control.NewReloadTool(engine)
	listTool := control.NewListTool(store)
	inspectTool := control.NewInspectTool(store)
	groupsTool := control.NewGroupsTool(store)
	switchSourceTool := control.NewSwitchSourceTool(manager, engine, cfg.GitBranch, cfg.GitMaxRetries, cfg.GitPollingInterval, log)

	others := []toolReg{
		{reloadTool.Definition(), reloadTool.Handle},
		{listTool.Definition(), listTool.Handle},
		{inspectTool.Definition(), inspectTool.Handle},
		{groupsTool.Definition(), groupsTool.Handle},
		{switchSourceTool.Definition(), switchSourceTool.Handle},
	}

	// stats itself is part of the Control Surface, so its own tool count
	// is the rest of the surface plus one.
	statsTool := control.NewStatsTool(store, len(others)+1)
	s.AddTool(statsTool.Definition(), server.ToolHandlerFunc(statsTool.Handle))
	for _, t := range others {
		s.AddTool(t.def, server.ToolHandlerFunc(t.handler))
	}
}

// bindPromptTool is the reload.ToolBinder: it builds the mcp.Tool
// definition (description embedding triggers, rules, tags, and
// use-cases per §1) and the invocation handler (resolve args, render,
// return text) for one eligible runtime.
func bindPromptTool(rt promptdoc.Runtime, tpl *hbtemplate.Template, schemas []promptdoc.ArgSchema) (mcp.Tool, toolregistry.HandlerFunc) {
	opts := []mcp.ToolOption{mcp.WithDescription(buildDescription(rt))}
	for _, schema := range schemas {
		opts = append(opts, argOption(schema))
	}
	tool := mcp.NewTool(rt.ID, opts...)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := promptdoc.ResolveArgs(schemas, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := tpl.Render(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
	return tool, handler
}

func buildDescription(rt promptdoc.Runtime) string {
	desc := rt.Title
	if rt.Description != "" {
		desc += "\n\n" + rt.Description
	}
	if len(rt.Triggers) > 0 {
		desc += "\n\nTriggers: " + joinComma(rt.Triggers)
	}
	if len(rt.Rules) > 0 {
		desc += "\n\nRules:"
		for _, r := range rt.Rules {
			desc += "\n- " + r
		}
	}
	if len(rt.Tags) > 0 {
		desc += "\n\nTags: " + joinComma(rt.Tags)
	}
	if len(rt.UseCases) > 0 {
		desc += "\n\nUse cases: " + joinComma(rt.UseCases)
	}
	return desc
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}

func argOption(schema promptdoc.ArgSchema) mcp.ToolOption {
	var propOpts []mcp.PropertyOption
	if schema.Description != "" {
		propOpts = append(propOpts, mcp.Description(schema.Description))
	}
	if schema.Required {
		propOpts = append(propOpts, mcp.Required())
	}
	switch schema.Kind {
	case promptdoc.KindNumber:
		return mcp.WithNumber(schema.Name, propOpts...)
	case promptdoc.KindBoolean:
		return mcp.WithBoolean(schema.Name, propOpts...)
	default:
		return mcp.WithString(schema.Name, propOpts...)
	}
}

// serverInstructions returns the system instructions that tell the agent
// how to use promptmesh effectively.
func serverInstructions() string {
	return `promptmesh exposes a hot-reloaded catalogue of parameterised prompt
templates as invocable tools. Each tool's description embeds its
trigger keywords, usage rules, tags, and use-cases — read them to
decide which prompt fits the current task before calling it.

Control tools:
- reload: force a full re-sync, re-scan, re-parse, re-rank, re-register pass.
- stats: a snapshot of the catalogue broken down by runtime state.
- list: a filtered projection of the catalogue (status, group, tag, runtime_state).
- inspect: the full runtime record for one prompt id, including its source file and load time.
- groups: every group observed across loaded documents.
- switch_source: replace the active source at runtime and trigger a full reload.

Read system://health for a git/prompts/registry/cache/process snapshot.`
}
