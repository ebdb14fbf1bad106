// Package template implements the template engine of spec.md section
// 4.2: a named template holds a parameter schema (defaults plus
// required variable names) and an opaque rendering function that
// turns an invocation's parameter map into zero or more raw YAML
// documents.
package template

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"text/template"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	hoberrors "github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/model"
)

// Template is a named content + parameter-schema pair, authored as a
// YAML document with type-tag "template" (spec.md section 4.2, 6).
type Template struct {
	Name     string
	Defaults map[string]any
	Required []string
	Content  string
	File     string
	Line     int

	compiled *template.Template
}

// New parses content as a Go text template and returns a Template
// ready for Render. Parsing happens eagerly so a malformed template
// body fails at load time, not at first invocation.
func New(name string, defaults map[string]any, required []string, content, file string, line int) (*Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, hoberrors.NewTemplateError("template document missing name", nil)
	}
	if content == "" {
		return nil, hoberrors.NewTemplateError("template "+name+" has no content", nil)
	}
	compiled, err := template.New(name).Funcs(funcMap).Parse(content)
	if err != nil {
		return nil, hoberrors.NewTemplateError("template "+name+" failed to parse", err).WithField("file", file).WithField("line", line)
	}
	return &Template{
		Name:     name,
		Defaults: defaults,
		Required: required,
		Content:  content,
		File:     file,
		Line:     line,
		compiled: compiled,
	}, nil
}

var funcMap = template.FuncMap{
	"default": func(def, v any) any {
		if v == nil || v == "" {
			return def
		}
		return v
	},
}

// Invocation is a pending template call: the invoking document's raw
// parameter map plus the provenance it passes on to rendered records
// (spec.md section 4.2, "rendered records inherit the invocation's
// __file__/__line__").
type Invocation struct {
	TemplateName string
	Params       map[string]any
	File         string
	Line         int
	Trace        []model.TraceEntry
}

// Render merges inv's params over the template's defaults, validates
// that every required variable is present, executes the template body,
// and parses the result as a stream of YAML documents, each stamped
// with inv's provenance and this template's name appended to the trace.
func (t *Template) Render(inv Invocation) ([]model.Document, error) {
	params := map[string]any{}
	if err := mergo.Merge(&params, t.Defaults); err != nil {
		return nil, hoberrors.NewTemplateError("template "+t.Name+" failed to merge defaults", err)
	}
	if err := mergo.Merge(&params, inv.Params, mergo.WithOverride); err != nil {
		return nil, hoberrors.NewTemplateError("template "+t.Name+" failed to merge invocation params", err)
	}

	for _, req := range t.Required {
		if v, ok := params[req]; !ok || v == nil {
			return nil, hoberrors.NewTemplateError(
				"template "+t.Name+" missing required parameter "+req,
				nil,
			).WithField("file", inv.File).WithField("line", inv.Line)
		}
	}

	var buf bytes.Buffer
	if err := t.compiled.Execute(&buf, params); err != nil {
		return nil, hoberrors.NewTemplateError("template "+t.Name+" failed to render", err).
			WithField("file", inv.File).WithField("line", inv.Line)
	}

	trace := append(append([]model.TraceEntry{}, inv.Trace...), model.TraceEntry{
		Template: t.Name,
		File:     inv.File,
		Line:     inv.Line,
	})

	dec := yaml.NewDecoder(bytes.NewReader(buf.Bytes()))
	var out []model.Document
	for {
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, hoberrors.NewTemplateError("template "+t.Name+" rendered invalid YAML", err)
		}
		if raw == nil {
			continue
		}
		doc, err := documentFromRendered(raw, inv, trace)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func documentFromRendered(raw map[string]any, inv Invocation, trace []model.TraceEntry) (model.Document, error) {
	typ, _ := raw["type"].(string)
	name, _ := raw["name"].(string)
	if typ == "" {
		return model.Document{}, hoberrors.NewTemplateError(
			"template "+inv.TemplateName+" rendered a document with no type",
			nil,
		).WithField("file", inv.File).WithField("line", inv.Line)
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case "type", "name", "__file__", "__line__", "__trace__":
			continue
		default:
			fields[k] = v
		}
	}
	return model.Document{
		Type:   typ,
		Name:   strings.TrimSpace(name),
		Fields: fields,
		File:   inv.File,
		Line:   inv.Line,
		Trace:  trace,
	}, nil
}
