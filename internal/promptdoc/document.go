// Package promptdoc parses, validates, classifies, and ranks prompt
// documents per §4.4–§4.7.
package promptdoc

// Document is a prompt document exactly as authored on disk (§3).
type Document struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Notes       string `yaml:"notes"`

	Triggers struct {
		Patterns []string `yaml:"patterns"`
	} `yaml:"triggers"`

	Rules []string `yaml:"rules"`

	Args map[string]ArgDecl `yaml:"args"`

	Template string `yaml:"template"`

	Version  string   `yaml:"version"`
	Status   string   `yaml:"status"`
	Tags     []string `yaml:"tags"`
	UseCases []string `yaml:"use_cases"`

	Dependencies struct {
		Partials []string `yaml:"partials"`
	} `yaml:"dependencies"`
}

// ArgDecl is one entry of the args mapping.
type ArgDecl struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Default     any    `yaml:"default"`
	Required    *bool  `yaml:"required"`
}

// PromptStatus is the status carried by a PromptRuntime: the authored
// status for metadata prompts, or "legacy" for legacy prompts (§3).
type PromptStatus string

const (
	StatusDraft      PromptStatus = "draft"
	StatusStable     PromptStatus = "stable"
	StatusDeprecated PromptStatus = "deprecated"
	StatusLegacy     PromptStatus = "legacy"
)

// RuntimeState is the classified in-memory lifecycle state (§3).
type RuntimeState string

const (
	StateActive   RuntimeState = "active"
	StateLegacy   RuntimeState = "legacy"
	StateInvalid  RuntimeState = "invalid"
	StateDisabled RuntimeState = "disabled"
	StateWarning  RuntimeState = "warning"
)

// Source is the provenance of the final classification (§3).
type Source string

const (
	SourceEmbedded Source = "embedded"
	SourceRegistry Source = "registry"
	SourceLegacy   Source = "legacy"
)

// Visibility is the optional registry-overlay visibility.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
)

// Runtime is the in-memory record of everything known about one prompt id
// (§3's PromptRuntime).
type Runtime struct {
	ID           string
	Title        string
	Description  string
	Triggers     []string
	Rules        []string
	Version      string
	Status       PromptStatus
	Tags         []string
	UseCases     []string
	RuntimeState RuntimeState
	Source       Source
	Group        string
	Visibility   Visibility
	Notes        string
	FilePath     string
	LoadedAt     int64 // unix nanos; stamped by the caller, never time.Now() inside this package
}

// IsToolEligible reports whether this runtime state should carry a tool
// handle (§3 invariant: runtime_state ∈ {active, legacy}).
func (r Runtime) IsToolEligible() bool {
	return r.RuntimeState == StateActive || r.RuntimeState == StateLegacy
}
