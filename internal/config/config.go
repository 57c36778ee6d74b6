// Package config loads and validates the environment-variable configuration
// contract that drives promptmesh's sources, watch mode, and transport.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Transport is the recognised MCP transport kind.
type Transport string

// Recognised transports. Only Stdio is actually wired end to end; Http and
// Sse are accepted by validation but rejected at startup with a clear
// "not implemented" ConfigError, matching the enumerated-but-unimplemented
// surface in the configuration contract.
const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
	TransportSSE   Transport = "sse"
)

// Language is the recognised MCP_LANGUAGE value.
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// SourceSpec is one entry of PROMPT_REPO_URLS, in ascending priority order.
type SourceSpec struct {
	Priority int
	URL      string
}

// Config is the fully parsed and validated configuration surface from §6.
type Config struct {
	UserSources         []SourceSpec
	SystemRepoURL       string
	StorageDir          string
	ActiveGroups        map[string]bool
	GitBranch           string
	GitMaxRetries       int
	GitPollingInterval  time.Duration
	WatchMode           bool
	CacheCleanupInterval time.Duration
	Transport           Transport
	LogLevel            string
	LogFile             string
	Language            Language
}

// ConfigError marks a fatal, startup-time misconfiguration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func newConfigError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Load reads and validates configuration from the process environment.
func Load() (*Config, error) {
	return LoadFromEnv(os.Environ())
}

// LoadFromEnv parses configuration from a KEY=VALUE slice, as returned by
// os.Environ. Exposed separately from Load so tests never touch the real
// process environment.
func LoadFromEnv(environ []string) (*Config, error) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	get := func(key string) string { return env[key] }

	cfg := &Config{
		StorageDir:    "./.prompts_cache",
		GitBranch:     "main",
		GitMaxRetries: 3,
		GitPollingInterval:  5 * time.Minute,
		Transport:     TransportStdio,
		Language:      LangEN,
		ActiveGroups:  map[string]bool{},
	}

	sources, err := parseSources(get("PROMPT_REPO_URLS"), get("PROMPT_REPO_URL"))
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, newConfigError("PROMPT_REPO_URL(S)", "at least one source must be configured")
	}
	cfg.UserSources = sources

	if v := get("SYSTEM_REPO_URL"); v != "" {
		if err := validateSourceValue(v); err != nil {
			return nil, newConfigError("SYSTEM_REPO_URL", "%v", err)
		}
		cfg.SystemRepoURL = v
	}

	if v := get("STORAGE_DIR"); v != "" {
		cfg.StorageDir = v
	}

	hasSystem := cfg.SystemRepoURL != ""
	for _, g := range splitCSV(get("MCP_GROUPS")) {
		cfg.ActiveGroups[g] = true
	}
	if hasSystem {
		cfg.ActiveGroups["common"] = true
	}

	if v := get("GIT_BRANCH"); v != "" {
		cfg.GitBranch = v
	}

	if v := get("GIT_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, newConfigError("GIT_MAX_RETRIES", "must be a positive integer, got %q", v)
		}
		cfg.GitMaxRetries = n
	}

	if v := get("GIT_POLLING_INTERVAL"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return nil, newConfigError("GIT_POLLING_INTERVAL", "must be a non-negative integer (ms), got %q", v)
		}
		cfg.GitPollingInterval = time.Duration(ms) * time.Millisecond
	}

	cfg.WatchMode = parseBool(get("WATCH_MODE"))

	if v := get("CACHE_CLEANUP_INTERVAL"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return nil, newConfigError("CACHE_CLEANUP_INTERVAL", "must be a non-negative integer (ms), got %q", v)
		}
		cfg.CacheCleanupInterval = time.Duration(ms) * time.Millisecond
	}

	if v := get("TRANSPORT_TYPE"); v != "" {
		t := Transport(v)
		switch t {
		case TransportStdio, TransportHTTP, TransportSSE:
			cfg.Transport = t
		default:
			return nil, newConfigError("TRANSPORT_TYPE", "must be one of stdio, http, sse, got %q", v)
		}
	}

	cfg.LogLevel = get("LOG_LEVEL")
	cfg.LogFile = get("LOG_FILE")

	if v := get("MCP_LANGUAGE"); v != "" {
		l := Language(v)
		switch l {
		case LangEN, LangZH:
			cfg.Language = l
		default:
			return nil, newConfigError("MCP_LANGUAGE", "must be one of en, zh, got %q", v)
		}
	}

	return cfg, nil
}

func parseSources(multi, single string) ([]SourceSpec, error) {
	raw := splitCSV(multi)
	if len(raw) == 0 && single != "" {
		raw = []string{single}
	}
	specs := make([]SourceSpec, 0, len(raw))
	for i, v := range raw {
		if err := validateSourceValue(v); err != nil {
			return nil, newConfigError("PROMPT_REPO_URL(S)", "%v", err)
		}
		specs = append(specs, SourceSpec{Priority: i, URL: v})
	}
	return specs, nil
}

// validateSourceValue rejects values containing ".." or NUL, and requires
// local paths to be absolute, per the §6 validation contract.
func validateSourceValue(v string) error {
	if strings.Contains(v, "..") {
		return fmt.Errorf("value %q must not contain '..'", v)
	}
	if strings.ContainsRune(v, 0) {
		return fmt.Errorf("value %q must not contain a NUL byte", v)
	}
	if looksLikeGitURL(v) {
		return nil
	}
	if !filepath.IsAbs(v) {
		return fmt.Errorf("local path %q must be absolute", v)
	}
	return nil
}

func looksLikeGitURL(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") || strings.HasPrefix(v, "git@")
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
