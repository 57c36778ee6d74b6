package promptdoc

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExcludedFiles are basenames ignored even when they carry a .yaml/.yml
// extension (§4.4 step 1) — lockfiles and manifests that commonly sit
// alongside prompt repositories.
var ExcludedFiles = map[string]bool{
	"registry.yaml":      true,
	"pnpm-lock.yaml":      true,
	"yarn.lock":           true,
	"package-lock.json":   true,
	"package.json":        true,
	"composer.lock":       true,
	"go.sum":              true,
	"requirements.txt":    true,
	"poetry.lock":         true,
	"pom.xml":             true,
	"build.gradle":        true,
}

// ShouldSkipFile implements the extension and excluded-basename half of
// the §4.4 step 1 file filter. Group filtering is applied by the caller,
// which alone knows the configured active-group set.
func ShouldSkipFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return true
	}
	return ExcludedFiles[strings.ToLower(filepath.Base(path))]
}

// ParseDocument unmarshals raw YAML and validates the prompt-document
// schema (§4.4 steps 1–2).
func ParseDocument(file string, data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{File: file, Err: err}
	}
	if fields := validateSchema(&doc); len(fields) > 0 {
		return nil, &SchemaError{File: file, Fields: fields}
	}
	return &doc, nil
}

func validateSchema(doc *Document) []FieldError {
	var fields []FieldError
	if strings.TrimSpace(doc.ID) == "" {
		fields = append(fields, FieldError{Path: "id", Message: "must be a non-empty string"})
	}
	if strings.TrimSpace(doc.Title) == "" {
		fields = append(fields, FieldError{Path: "title", Message: "must be a non-empty string"})
	}
	if strings.TrimSpace(doc.Template) == "" {
		fields = append(fields, FieldError{Path: "template", Message: "must be a non-empty string"})
	}
	for name, decl := range doc.Args {
		switch ArgKind(decl.Type) {
		case KindString, KindNumber, KindBoolean:
		default:
			fields = append(fields, FieldError{
				Path:    fmt.Sprintf("args.%s.type", name),
				Message: fmt.Sprintf("must be one of string, number, boolean, got %q", decl.Type),
			})
		}
	}
	return fields
}

// Classified is the result of classifying one successfully-schema-valid
// document (§4.4 steps 3–4), prior to compilation and registry overlay.
type Classified struct {
	Runtime     Runtime
	ArgSchemas  []ArgSchema
	MetaWarning *MetadataError
	PartialWarn bool // true if an undeclared partial was referenced
}

// HasMetadata reports whether both version and status are present and
// non-empty (§3's definition of a metadata prompt).
func HasMetadata(doc *Document) bool {
	return strings.TrimSpace(doc.Version) != "" && strings.TrimSpace(doc.Status) != ""
}

// Classify implements §4.4 steps 3 and 4: metadata classification and the
// partial-dependency check. It never returns an error — every outcome is
// encoded in the returned Classified's fields, because a malformed
// metadata block demotes to "warning" rather than failing the document.
func Classify(file string, doc *Document) Classified {
	schemas, argErr := BuildArgSchemas(doc.Args)
	if argErr != nil {
		// Already caught by validateSchema in the normal path; defensive
		// fallback keeps Classify total.
		schemas = nil
	}

	rt := Runtime{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Triggers:    doc.Triggers.Patterns,
		Rules:       doc.Rules,
		Version:     doc.Version,
		Tags:        doc.Tags,
		UseCases:    doc.UseCases,
		Notes:       doc.Notes,
		FilePath:    file,
	}

	var result Classified
	result.ArgSchemas = schemas

	if HasMetadata(doc) {
		rt.Source = SourceEmbedded
		if err := validateMetadata(doc); err != nil {
			rt.Status = PromptStatus(doc.Status)
			rt.RuntimeState = StateWarning
			result.MetaWarning = err
		} else {
			rt.Status = PromptStatus(doc.Status)
			rt.RuntimeState = StateActive
		}
	} else {
		rt.Source = SourceLegacy
		rt.Status = StatusLegacy
		rt.RuntimeState = StateLegacy
	}

	if rt.RuntimeState == StateActive {
		used := ExtractPartialRefs(doc.Template)
		declared := make(map[string]bool, len(doc.Dependencies.Partials))
		for _, p := range doc.Dependencies.Partials {
			declared[p] = true
		}
		for _, name := range used {
			if !declared[name] {
				rt.RuntimeState = StateWarning
				result.PartialWarn = true
				break
			}
		}
	}

	result.Runtime = rt
	return result
}

func validateMetadata(doc *Document) *MetadataError {
	if !ValidSemver(doc.Version) {
		return &MetadataError{File: doc.ID, Message: fmt.Sprintf("version %q is not valid MAJOR.MINOR.PATCH semver", doc.Version)}
	}
	switch PromptStatus(doc.Status) {
	case StatusDraft, StatusStable, StatusDeprecated:
	default:
		return &MetadataError{File: doc.ID, Message: fmt.Sprintf("status %q is not one of draft, stable, deprecated", doc.Status)}
	}
	return nil
}
