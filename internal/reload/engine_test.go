package reload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvanta-dev/promptmesh/internal/filecache"
	"github.com/kvanta-dev/promptmesh/internal/hbtemplate"
	"github.com/kvanta-dev/promptmesh/internal/partials"
	"github.com/kvanta-dev/promptmesh/internal/promptdoc"
	"github.com/kvanta-dev/promptmesh/internal/runtimestate"
	"github.com/kvanta-dev/promptmesh/internal/source"
	"github.com/kvanta-dev/promptmesh/internal/toolregistry"
)

type localDirSource struct{ dir string }

func (l *localDirSource) Kind() source.Kind          { return source.KindLocal }
func (l *localDirSource) URL() string                { return l.dir }
func (l *localDirSource) Validate() bool             { return true }
func (l *localDirSource) Sync(targetDir string) error { return nil }

type fakeHandle struct{ removed *bool }

func (h *fakeHandle) Remove() { *h.removed = true }

type fakeRegistry struct {
	registered map[string]*bool
}

func newFakeRegistry() *fakeRegistry { return &fakeRegistry{registered: map[string]*bool{}} }

func (r *fakeRegistry) Register(id string, tool mcp.Tool, handler toolregistry.HandlerFunc) toolregistry.Handle {
	removed := false
	r.registered[id] = &removed
	return &fakeHandle{removed: &removed}
}

func (r *fakeRegistry) isRemoved(id string) bool {
	p, ok := r.registered[id]
	return ok && *p
}

func testBinder(rt promptdoc.Runtime, tpl *hbtemplate.Template, schemas []promptdoc.ArgSchema) (mcp.Tool, toolregistry.HandlerFunc) {
	tool := mcp.NewTool(rt.ID, mcp.WithDescription(rt.Title))
	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}
}

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestEngine(t *testing.T, dir string) (*Engine, *fakeRegistry) {
	sm := source.New([]source.UserSource{{Priority: 0, Strategy: &localDirSource{dir: dir}}}, nil, dir, nil)
	require.NoError(t, sm.Load())

	reg := newFakeRegistry()
	e := New(sm, filecache.New(filecache.DefaultTTL), partials.New(), runtimestate.New(), reg, testBinder, nil)
	e.WithActiveGroups(map[string]bool{})
	return e, reg
}

const scenarioA = `
id: code-review
title: Code Review
version: 1.0.0
status: stable
template: "Review: {{code}}"
args:
  code:
    type: string
`

func TestFullReload_ScenarioA_RegistersActivePrompt(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "code-review.yaml", scenarioA)

	e, reg := newTestEngine(t, dir)
	result, err := e.FullReload()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Loaded)
	assert.Empty(t, result.Errors)
	_ = reg
}

func TestFullReload_SchemaErrorNotRegistered(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "bad.yaml", "id: \"\"\ntitle: \"\"\ntemplate: \"\"\n")

	e, _ := newTestEngine(t, dir)
	result, err := e.FullReload()
	require.NoError(t, err)
	assert.Equal(t, 0, result.Loaded)
	assert.Len(t, result.Errors, 1)
}

func TestFullReload_DualSwap_OldHandleRemovedOnlyIfSuperseded(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "code-review.yaml", scenarioA)

	e, reg := newTestEngine(t, dir)
	_, err := e.FullReload()
	require.NoError(t, err)
	assert.False(t, reg.isRemoved("code-review"))

	updated := strings.Replace(scenarioA, "Code Review", "Code Review v2", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	_, err = e.FullReload()
	require.NoError(t, err)
	assert.False(t, reg.isRemoved("code-review"), "re-registration must not leave a gap; old handle only removed if the id disappears entirely")
}

func TestFullReload_RemovesHandleWhenDocumentDisappears(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "code-review.yaml", scenarioA)

	e, reg := newTestEngine(t, dir)
	_, err := e.FullReload()
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	_, err = e.FullReload()
	require.NoError(t, err)
	assert.True(t, reg.isRemoved("code-review"))
}

func TestSingleReload_FileRemovedDropsRuntimeAndHandle(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "code-review.yaml", scenarioA)

	e, reg := newTestEngine(t, dir)
	_, err := e.FullReload()
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	result, err := e.SingleReload(path)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Loaded)
	assert.True(t, reg.isRemoved("code-review"))
}

const scenarioWarningUndeclaredPartial = `
id: greet
title: Greet
version: 1.0.0
status: stable
template: "Hi {{> sig}}"
`

func TestFullReload_RegistryOverlayPromotingWarningToActiveGetsATool(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "greet.yaml", scenarioWarningUndeclaredPartial)
	writeDoc(t, dir, "registry.yaml", "prompts:\n  - id: greet\n")

	e, reg := newTestEngine(t, dir)
	result, err := e.FullReload()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Loaded)
	assert.Empty(t, result.Errors, "a registry-promoted warning document must compile cleanly, not surface as a load error")
	if _, ok := reg.registered["greet"]; !ok {
		t.Fatal("expected registry.yaml to promote the warning document to active and register its tool")
	}
}

func TestSingleReload_RegistryOverlayPromotingWarningToActiveGetsATool(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "registry.yaml", "prompts:\n  - id: greet\n")
	path := writeDoc(t, dir, "greet.yaml", scenarioWarningUndeclaredPartial)

	e, reg := newTestEngine(t, dir)
	_, err := e.FullReload()
	require.NoError(t, err)

	result, err := e.SingleReload(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Loaded)
	if _, ok := reg.registered["greet"]; !ok {
		t.Fatal("expected SingleReload to register a tool for a registry-promoted warning document")
	}
}

func TestSingleReload_UpdatesInPlaceWithoutFullReload(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "code-review.yaml", scenarioA)

	e, _ := newTestEngine(t, dir)
	_, err := e.FullReload()
	require.NoError(t, err)

	updated := strings.Replace(scenarioA, "Code Review", "Code Review v2", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	result, err := e.SingleReload(path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Loaded)
}
