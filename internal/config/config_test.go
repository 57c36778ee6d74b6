package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv([]string{"PROMPT_REPO_URL=/abs/path"})
	require.NoError(t, err)
	assert.Equal(t, "./.prompts_cache", cfg.StorageDir)
	assert.Equal(t, "main", cfg.GitBranch)
	assert.Equal(t, 3, cfg.GitMaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.GitPollingInterval)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.False(t, cfg.WatchMode)
	assert.False(t, cfg.ActiveGroups["common"])
}

func TestLoadFromEnv_NoSources_IsConfigError(t *testing.T) {
	_, err := LoadFromEnv(nil)
	require.Error(t, err)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestLoadFromEnv_MultipleSourcesPriorityOrder(t *testing.T) {
	cfg, err := LoadFromEnv([]string{"PROMPT_REPO_URLS=/a,/b,/c"})
	require.NoError(t, err)
	require.Len(t, cfg.UserSources, 3)
	assert.Equal(t, "/a", cfg.UserSources[0].URL)
	assert.Equal(t, 0, cfg.UserSources[0].Priority)
	assert.Equal(t, "/c", cfg.UserSources[2].URL)
	assert.Equal(t, 2, cfg.UserSources[2].Priority)
}

func TestLoadFromEnv_RejectsDotDot(t *testing.T) {
	_, err := LoadFromEnv([]string{"PROMPT_REPO_URL=/a/../b"})
	require.Error(t, err)
}

func TestLoadFromEnv_RejectsRelativeLocalPath(t *testing.T) {
	_, err := LoadFromEnv([]string{"PROMPT_REPO_URL=relative/path"})
	require.Error(t, err)
}

func TestLoadFromEnv_AcceptsGitURLs(t *testing.T) {
	for _, u := range []string{"https://example.com/x.git", "http://example.com/x.git", "git@example.com:x.git"} {
		cfg, err := LoadFromEnv([]string{"PROMPT_REPO_URL=" + u})
		require.NoError(t, err)
		assert.Equal(t, u, cfg.UserSources[0].URL)
	}
}

func TestLoadFromEnv_SystemSourceImpliesCommonGroup(t *testing.T) {
	cfg, err := LoadFromEnv([]string{
		"PROMPT_REPO_URL=/a",
		"SYSTEM_REPO_URL=https://example.com/sys.git",
	})
	require.NoError(t, err)
	assert.True(t, cfg.ActiveGroups["common"])
}

func TestLoadFromEnv_MCPGroups(t *testing.T) {
	cfg, err := LoadFromEnv([]string{
		"PROMPT_REPO_URL=/a",
		"MCP_GROUPS= foo , bar ,",
	})
	require.NoError(t, err)
	assert.True(t, cfg.ActiveGroups["foo"])
	assert.True(t, cfg.ActiveGroups["bar"])
	assert.False(t, cfg.ActiveGroups["common"])
}

func TestLoadFromEnv_InvalidTransport(t *testing.T) {
	_, err := LoadFromEnv([]string{"PROMPT_REPO_URL=/a", "TRANSPORT_TYPE=carrier-pigeon"})
	require.Error(t, err)
}

func TestLoadFromEnv_InvalidGitMaxRetries(t *testing.T) {
	_, err := LoadFromEnv([]string{"PROMPT_REPO_URL=/a", "GIT_MAX_RETRIES=0"})
	require.Error(t, err)
}
