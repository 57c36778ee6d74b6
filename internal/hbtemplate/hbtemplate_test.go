package hbtemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvanta-dev/promptmesh/internal/partials"
)

func TestCompileAndRender_Basic(t *testing.T) {
	tpl, err := Compile("code-review.yaml", "Review: {{code}}")
	require.NoError(t, err)

	out, err := tpl.Render(map[string]any{"code": "x = 1"})
	require.NoError(t, err)
	assert.Equal(t, "Review: x = 1", out)
}

func TestCompile_MalformedTemplateIsCompileError(t *testing.T) {
	_, err := Compile("bad.yaml", "{{#if}}")
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
}

func TestRender_StringArgsAreNotHTMLEscaped(t *testing.T) {
	tpl, err := Compile("t.yaml", "{{body}}")
	require.NoError(t, err)

	out, err := tpl.Render(map[string]any{"body": "<b>bold</b> & more"})
	require.NoError(t, err)
	assert.Equal(t, "<b>bold</b> & more", out)
}

func TestRender_NonStringArgsPassThrough(t *testing.T) {
	tpl, err := Compile("t.yaml", "{{#if verbose}}v{{/if}}{{n}}")
	require.NoError(t, err)

	out, err := tpl.Render(map[string]any{"verbose": true, "n": 3})
	require.NoError(t, err)
	assert.Equal(t, "v3", out)
}

func TestWithPartials_RendersRegisteredFragment(t *testing.T) {
	reg := partials.New()
	reg.Replace(map[string]string{"role-expert": "You are an expert."})

	tpl, err := Compile("t.yaml", "{{> role-expert}} Review: {{code}}")
	require.NoError(t, err)
	tpl.WithPartials(reg)

	out, err := tpl.Render(map[string]any{"code": "x"})
	require.NoError(t, err)
	assert.Equal(t, "You are an expert. Review: x", out)
}
