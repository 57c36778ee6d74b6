package health

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/kvanta-dev/promptmesh/internal/config"
	"github.com/kvanta-dev/promptmesh/internal/filecache"
	"github.com/kvanta-dev/promptmesh/internal/promptdoc"
	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
	"github.com/kvanta-dev/promptmesh/internal/source"
)

func TestHandler_Resource_HasExpectedURIAndMIMEType(t *testing.T) {
	store := runtimestate.New()
	cfg := &config.Config{CacheCleanupInterval: time.Minute}
	h := NewHandler(source.New(nil, nil, t.TempDir(), nil), store, filecache.New(time.Minute), cfg, time.Now(), func() bool { return false })

	res := h.Resource()
	require.Equal(t, "system://health", res.URI)
	require.Equal(t, "application/json", res.MIMEType)
}

func TestHandler_Handle_ReportsPromptCountsByState(t *testing.T) {
	store := runtimestate.New()
	store.ReplaceAll(map[string]promptdoc.Runtime{
		"a": {ID: "a", FilePath: "a.yaml", RuntimeState: promptdoc.StateActive, Group: "root"},
		"b": {ID: "b", FilePath: "b.yaml", RuntimeState: promptdoc.StateInvalid},
	}, map[string]string{"a.yaml": "a", "b.yaml": "b"}, nil)

	cfg := &config.Config{CacheCleanupInterval: 30 * time.Second}
	cache := filecache.New(time.Minute)
	dir := t.TempDir()
	if _, err := cache.List(dir, true); err != nil {
		t.Fatalf("priming cache: %v", err)
	}
	h := NewHandler(source.New(nil, nil, t.TempDir(), nil), store, cache, cfg, time.Now().Add(-5*time.Second), func() bool { return true })

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "system://health"
	contents, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text := contents[0].(mcp.TextResourceContents)
	require.Equal(t, "system://health", text.URI)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(text.Text), &resp))
	require.Equal(t, 2, resp.Prompts.Total)
	require.Equal(t, 1, resp.Prompts.Active)
	require.Equal(t, 1, resp.Prompts.Invalid)
	require.True(t, resp.Registry.Enabled)
	require.Equal(t, "registry.yaml", resp.Registry.Source)
	require.GreaterOrEqual(t, resp.System.UptimeMs, int64(0))
	require.Equal(t, 1, resp.Cache.Size)
}
