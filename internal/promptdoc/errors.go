package promptdoc

import "fmt"

// FieldError names one schema-violating field path, used by SchemaError.
type FieldError struct {
	Path    string
	Message string
}

// ParseError wraps a YAML-syntax failure.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.File, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports that a document violates the prompt-document schema.
type SchemaError struct {
	File   string
	Fields []FieldError
}

func (e *SchemaError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("schema %s: invalid document", e.File)
	}
	return fmt.Sprintf("schema %s: %s: %s", e.File, e.Fields[0].Path, e.Fields[0].Message)
}

// MetadataError reports present-but-ill-formed version/status
// metadata. Non-fatal: it demotes the document to the warning state.
type MetadataError struct {
	File    string
	Message string
}

func (e *MetadataError) Error() string { return fmt.Sprintf("metadata %s: %s", e.File, e.Message) }

// CompileError reports a template body rejected by the template engine.
type CompileError struct {
	File string
	Err  error
}

func (e *CompileError) Error() string { return fmt.Sprintf("compile %s: %v", e.File, e.Err) }
func (e *CompileError) Unwrap() error { return e.Err }

// RegistryError reports an ill-formed registry.yaml. Treated as absent,
// logged at warn by the caller; never fatal.
type RegistryError struct {
	File string
	Err  error
}

func (e *RegistryError) Error() string { return fmt.Sprintf("registry %s: %v", e.File, e.Err) }
func (e *RegistryError) Unwrap() error { return e.Err }
