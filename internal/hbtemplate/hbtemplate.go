// Package hbtemplate wraps github.com/aymerick/raymond to compile and
// render the Handlebars-style template bodies of prompt documents (§4.4
// step 5), with HTML-escaping disabled so rendered prompt text is not
// mangled with HTML entities.
package hbtemplate

import (
	"fmt"

	"github.com/aymerick/raymond"

	"github.com/kvanta-dev/promptmesh/internal/partials"
)

// CompileError wraps a raymond parse failure with the offending file for
// the Parser & Validator's §7 CompileError taxonomy entry.
type CompileError struct {
	File string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: template compile failed: %v", e.File, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// RenderError wraps a raymond execution failure.
type RenderError struct {
	ID  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: template render failed: %v", e.ID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Template is a compiled prompt template body, bound to the partial set
// that was registered at compile time (§4.8 step 2: partials are rebuilt
// before any document is (re)compiled).
type Template struct {
	id  string
	tpl *raymond.Template
}

// Compile parses source as a Handlebars template. Partial registration
// is a separate, explicit step (see WithPartials) — raymond templates
// look partials up by name from whatever has been registered on the
// *raymond.Template instance at render time, so partials must be
// injected before Render is called.
func Compile(file, source string) (*Template, error) {
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, &CompileError{File: file, Err: err}
	}
	return &Template{id: file, tpl: tpl}, nil
}

// Render executes the template against args, wrapping every string value
// as raymond.SafeString so HTML-escaping never corrupts prompt text —
// these are natural-language prompts, not HTML fragments.
func (t *Template) Render(args map[string]any) (string, error) {
	ctx := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			ctx[k] = raymond.SafeString(s)
			continue
		}
		ctx[k] = v
	}
	out, err := t.tpl.Exec(ctx)
	if err != nil {
		return "", &RenderError{ID: t.id, Err: err}
	}
	return out, nil
}

// WithPartials registers every named fragment in r onto the template's
// underlying raymond instance. raymond adds partials and panics on a
// name that is already registered, so call it once per compiled
// template, after the partial registry is rebuilt and before the
// template is rendered.
func (t *Template) WithPartials(r *partials.Registry) *Template {
	t.tpl.RegisterPartials(r.Snapshot())
	return t
}
