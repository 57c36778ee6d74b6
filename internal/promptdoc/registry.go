package promptdoc

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RegistryEntry is one entry of registry.yaml (§3).
type RegistryEntry struct {
	ID         string     `yaml:"id"`
	Group      string     `yaml:"group"`
	Visibility Visibility `yaml:"visibility"`
	Deprecated bool       `yaml:"deprecated"`
}

// RegistryDocument is the optional registry.yaml at the repository root.
type RegistryDocument struct {
	Prompts []RegistryEntry `yaml:"prompts"`
}

// LoadRegistry reads and parses registry.yaml from root. A missing file
// is reported via os.IsNotExist on the returned error so callers can
// treat it as "absent" without logging a warning; any other read or
// parse failure is wrapped in RegistryError, which callers must treat as
// absent too (logged at warn), per §4.5.
func LoadRegistry(path string) (*RegistryDocument, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is caller-controlled, not request-controlled
	if err != nil {
		return nil, err
	}
	var doc RegistryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &RegistryError{File: path, Err: err}
	}
	return &doc, nil
}

// ByID indexes a RegistryDocument's entries by id for overlay lookup.
func (d *RegistryDocument) ByID() map[string]RegistryEntry {
	out := make(map[string]RegistryEntry, len(d.Prompts))
	for _, e := range d.Prompts {
		out[e.ID] = e
	}
	return out
}

// Overlay applies the registry-overlay precedence from §4.5: if an entry
// exists for rt.ID, source becomes registry; deprecated:true forces
// disabled; otherwise runtime_state is coerced to active (the only path
// that can upgrade a warning to active); group/visibility override when
// provided.
func Overlay(rt Runtime, entries map[string]RegistryEntry) Runtime {
	entry, ok := entries[rt.ID]
	if !ok {
		return rt
	}
	rt.Source = SourceRegistry
	if entry.Deprecated {
		rt.RuntimeState = StateDisabled
	} else {
		rt.RuntimeState = StateActive
	}
	if entry.Group != "" {
		rt.Group = entry.Group
	}
	if entry.Visibility != "" {
		rt.Visibility = entry.Visibility
	}
	return rt
}
