// Package health implements the system://health MCP resource (§6),
// adapted from the teacher's resource-handler pattern
// (internal/resources/resources.go): a Handler struct wired with its
// dependencies, one method building the mcp.Resource definition and one
// building its contents.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kvanta-dev/promptmesh/internal/config"
	"github.com/kvanta-dev/promptmesh/internal/filecache"
	"github.com/kvanta-dev/promptmesh/internal/promptdoc"
	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
	"github.com/kvanta-dev/promptmesh/internal/source"
)

// Handler serves the system://health resource.
type Handler struct {
	manager     *source.Manager
	store       *runtimestate.Store
	cache       *filecache.Cache
	cfg         *config.Config
	startedAt   time.Time
	hasRegistry func() bool
}

// NewHandler creates a Handler with its dependencies. hasRegistry
// reports whether a parseable registry.yaml is currently present.
func NewHandler(manager *source.Manager, store *runtimestate.Store, cache *filecache.Cache, cfg *config.Config, startedAt time.Time, hasRegistry func() bool) *Handler {
	return &Handler{manager: manager, store: store, cache: cache, cfg: cfg, startedAt: startedAt, hasRegistry: hasRegistry}
}

// Resource returns the MCP resource definition for registration.
func (h *Handler) Resource() mcp.Resource {
	return mcp.NewResource(
		"system://health",
		"System Health",
		mcp.WithResourceDescription("Git, prompt catalogue, registry, cache, and process health snapshot"),
		mcp.WithMIMEType("application/json"),
	)
}

type healthResponse struct {
	Git      gitHealth      `json:"git"`
	Prompts  promptsHealth  `json:"prompts"`
	Registry registryHealth `json:"registry"`
	Cache    cacheHealth    `json:"cache"`
	System   systemHealth   `json:"system"`
}

type gitHealth struct {
	RepoURL    string `json:"repoUrl"`
	RepoPath   string `json:"repoPath"`
	HeadCommit string `json:"headCommit,omitempty"`
}

type promptsHealth struct {
	Total       int      `json:"total"`
	Active      int      `json:"active"`
	Legacy      int      `json:"legacy"`
	Invalid     int      `json:"invalid"`
	Disabled    int      `json:"disabled"`
	LoadedCount int      `json:"loadedCount"`
	Groups      []string `json:"groups"`
}

type registryHealth struct {
	Enabled bool   `json:"enabled"`
	Source  string `json:"source"`
}

type cacheHealth struct {
	Size            int   `json:"size"`
	CleanupInterval int64 `json:"cleanupInterval,omitempty"`
}

type systemHealth struct {
	UptimeMs int64      `json:"uptime_ms"`
	Memory   memoryStat `json:"memory"`
}

// Handle builds the health resource's JSON contents.
func (h *Handler) Handle(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	resp := healthResponse{
		Git:      h.gitSnapshot(),
		Prompts:  h.promptsSnapshot(),
		Registry: h.registrySnapshot(),
		Cache:    cacheHealth{Size: h.cache.Len(), CleanupInterval: h.cfg.CacheCleanupInterval.Milliseconds()},
		System:   systemHealth{UptimeMs: time.Since(h.startedAt).Milliseconds(), Memory: readMemoryStat()},
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling health snapshot: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *Handler) gitSnapshot() gitHealth {
	var url string
	if active := h.manager.Active(); active != nil {
		url = active.URL()
	}
	return gitHealth{RepoURL: url, RepoPath: h.manager.TargetDir()}
}

func (h *Handler) promptsSnapshot() promptsHealth {
	all := h.store.All()
	resp := promptsHealth{Total: len(all)}
	seenGroups := map[string]bool{}
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
		}
		if rt.Group != "" {
			seenGroups[rt.Group] = true
		}
	}
	resp.LoadedCount = h.store.HandleCount()
	for g := range seenGroups {
		resp.Groups = append(resp.Groups, g)
	}
	return resp
}

func (h *Handler) registrySnapshot() registryHealth {
	enabled := h.hasRegistry != nil && h.hasRegistry()
	source := "none"
	if enabled {
		source = "registry.yaml"
	}
	return registryHealth{Enabled: enabled, Source: source}
}
