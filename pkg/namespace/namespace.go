// Package namespace implements the deferred-expansion fixed-point
// loop of spec.md section 4.3: authored objects and templates
// accumulate as raw documents stream in, and template invocations are
// held on a feed line until their template registers or the run
// deadlocks.
package namespace

import (
	"strconv"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/model"
	"github.com/obriencj/koji-habitude-go/pkg/template"
)

// RedefinitionPolicy controls what happens when a second object or
// template arrives under a key/name already present (spec.md section 3).
type RedefinitionPolicy int

const (
	RedefinitionError RedefinitionPolicy = iota
	RedefinitionIgnore
	RedefinitionIgnoreWarn
	RedefinitionAllowSilently
	RedefinitionAllowWarn
)

// MaxExpansionDepth bounds recursive template expansion within a single
// feed-line pass, catching templates whose rendering invokes themselves
// directly or transitively (spec.md section 4.3).
const MaxExpansionDepth = 100

// deferred is one pending feed-line entry: either a concrete document
// waiting behind an earlier deferral (to preserve declaration order) or
// a template invocation whose template isn't registered yet.
type deferred struct {
	doc        model.Document
	invocation bool
}

// Namespace accumulates authored objects and templates and drives the
// deferred-expansion fixed point (spec.md section 4.3).
type Namespace struct {
	policy    RedefinitionPolicy
	objects   map[key.Key]model.Object
	templates map[string]*template.Template
	feedLine  []deferred
	onWarn    func(string)
}

// New constructs an empty Namespace under the given redefinition policy.
func New(policy RedefinitionPolicy) *Namespace {
	return &Namespace{
		policy:    policy,
		objects:   make(map[key.Key]model.Object),
		templates: make(map[string]*template.Template),
	}
}

// OnWarn installs a callback invoked for ignore-with-warning and
// allow-with-warning redefinitions. Structured logging is the caller's
// responsibility; the namespace itself stays logger-agnostic.
func (n *Namespace) OnWarn(fn func(string)) { n.onWarn = fn }

// Feed dispatches one raw document per spec.md section 4.3: a core
// kind is validated and added as an authored object, "template" is
// registered as a template, anything else becomes a template
// invocation appended to the feed line.
func (n *Namespace) Feed(d model.Document) error {
	switch {
	case d.Type == "template":
		return n.feedTemplate(d)
	case key.IsCoreKind(d.Type):
		obj, err := model.Build(d)
		if err != nil {
			return err
		}
		return n.addObject(obj)
	default:
		n.feedLine = append(n.feedLine, deferred{doc: d, invocation: true})
		return nil
	}
}

func (n *Namespace) feedTemplate(d model.Document) error {
	defaults, required := templateSchema(d.Fields)
	content, err := templateContent(d)
	if err != nil {
		return err
	}
	tmpl, err := template.New(d.Name, defaults, required, content, d.File, d.Line)
	if err != nil {
		return err
	}
	if _, ok := n.templates[tmpl.Name]; ok {
		if err := n.handleRedefinition("template", tmpl.Name); err != nil {
			return err
		}
		if n.policy == RedefinitionAllowSilently || n.policy == RedefinitionAllowWarn {
			n.templates[tmpl.Name] = tmpl
		}
		return nil
	}
	n.templates[tmpl.Name] = tmpl
	return nil
}

func templateContent(d model.Document) (string, error) {
	if c, ok := d.Fields["content"].(string); ok && c != "" {
		return c, nil
	}
	if f, ok := d.Fields["file"].(string); ok && f != "" {
		return "", errors.NewTemplateError(
			"template "+d.Name+" references external file "+f+"; file-based templates are resolved by the loader before reaching the namespace",
			nil,
		)
	}
	return "", errors.NewTemplateError("template "+d.Name+" has neither content nor file", nil)
}

func templateSchema(fields map[string]any) (map[string]any, []string) {
	schema, ok := fields["schema"].(map[string]any)
	if !ok {
		return nil, nil
	}
	defaults := map[string]any{}
	var required []string
	for k, v := range schema {
		if v == nil {
			required = append(required, k)
			continue
		}
		if m, ok := v.(map[string]any); ok {
			if req, ok := m["required"].(bool); ok && req {
				required = append(required, k)
				continue
			}
			if def, ok := m["default"]; ok {
				defaults[k] = def
				continue
			}
		}
		defaults[k] = v
	}
	return defaults, required
}

func (n *Namespace) addObject(obj model.Object) error {
	k := obj.Key()
	if _, ok := n.objects[k]; ok {
		if err := n.handleRedefinition("object", k.String()); err != nil {
			return err
		}
		if n.policy == RedefinitionAllowSilently || n.policy == RedefinitionAllowWarn {
			n.objects[k] = obj
		}
		return nil
	}
	n.objects[k] = obj
	return nil
}

func (n *Namespace) handleRedefinition(kind, name string) error {
	switch n.policy {
	case RedefinitionError:
		return errors.NewRedefinitionError(kind+" "+name+" redefined", nil)
	case RedefinitionIgnore:
		return nil
	case RedefinitionIgnoreWarn:
		n.warn(kind + " " + name + " redefined; ignoring")
		return nil
	case RedefinitionAllowSilently:
		return nil
	case RedefinitionAllowWarn:
		n.warn(kind + " " + name + " redefined; allowing")
		return nil
	default:
		return errors.NewRedefinitionError(kind+" "+name+" redefined", nil)
	}
}

func (n *Namespace) warn(msg string) {
	if n.onWarn != nil {
		n.onWarn(msg)
	}
}

// Expand drives the feed line to a fixed point (spec.md section 4.3).
// It returns an error if expansion deadlocks: the feed line is
// non-empty but no pass made progress.
func (n *Namespace) Expand() error {
	for len(n.feedLine) > 0 {
		work := n.feedLine
		n.feedLine = nil
		var deferals []deferred
		progressed := false

		for _, item := range work {
			if !item.invocation {
				if len(deferals) > 0 {
					deferals = append(deferals, item)
					continue
				}
				obj, err := model.Build(item.doc)
				if err != nil {
					return err
				}
				if err := n.addObject(obj); err != nil {
					return err
				}
				progressed = true
				continue
			}

			tmpl, ok := n.templates[item.doc.Type]
			if !ok {
				deferals = append(deferals, item)
				continue
			}

			rendered, err := n.expandInvocation(tmpl, item.doc, 0)
			if err != nil {
				return err
			}
			deferals = append(deferals, rendered...)
			progressed = true
		}

		if !progressed {
			return n.deadlockError(deferals)
		}
		n.feedLine = deferals
	}
	return nil
}

// expandInvocation renders one invocation against tmpl, and recursively
// re-dispatches any rendered "template" documents or invocations of
// templates now known, within this same pass, bounded by depth.
func (n *Namespace) expandInvocation(tmpl *template.Template, doc model.Document, depth int) ([]deferred, error) {
	if depth >= MaxExpansionDepth {
		return nil, errors.NewDeadlockError(
			"template "+tmpl.Name+" exceeded max expansion depth "+strconv.Itoa(MaxExpansionDepth)+" (likely self-referential)",
			nil,
		).WithField("file", doc.File).WithField("line", doc.Line)
	}

	rendered, err := tmpl.Render(template.Invocation{
		TemplateName: doc.Type,
		Params:       doc.Fields,
		File:         doc.File,
		Line:         doc.Line,
		Trace:        doc.Trace,
	})
	if err != nil {
		return nil, err
	}

	var out []deferred
	for _, rd := range rendered {
		switch {
		case rd.Type == "template":
			if err := n.feedTemplate(rd); err != nil {
				return nil, err
			}
		case key.IsCoreKind(rd.Type):
			out = append(out, deferred{doc: rd})
		default:
			if next, ok := n.templates[rd.Type]; ok {
				nested, err := n.expandInvocation(next, rd, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, nested...)
			} else {
				out = append(out, deferred{doc: rd, invocation: true})
			}
		}
	}
	return out, nil
}

func (n *Namespace) deadlockError(deferals []deferred) error {
	if len(deferals) == 0 {
		return nil
	}
	first := deferals[0]
	return errors.NewDeadlockError(
		"expansion deadlocked on invocation of undefined template "+first.doc.Type,
		nil,
	).WithField("file", first.doc.File).WithField("line", first.doc.Line)
}

// Objects returns every authored object accumulated so far, keyed by
// its identity. Valid to call once Expand has reached a fixed point.
func (n *Namespace) Objects() map[key.Key]model.Object {
	return n.objects
}

// Templates returns every registered template, keyed by name. Used to
// seed a data namespace from a template-only namespace (spec.md section
// 4.9, "LOADING").
func (n *Namespace) Templates() map[string]*template.Template {
	return n.templates
}

// SeedTemplates copies every template from another namespace into this
// one (spec.md section 4.9: template dirs load into a template-only
// namespace first, then data paths load into a namespace seeded with them).
func (n *Namespace) SeedTemplates(other *Namespace) {
	for name, tmpl := range other.templates {
		n.templates[name] = tmpl
	}
}

// Get resolves a key directly against authored objects only (no
// placeholder synthesis); pkg/resolver wraps this with placeholder
// fallback.
func (n *Namespace) Get(k key.Key) (model.Object, bool) {
	obj, ok := n.objects[k]
	return obj, ok
}
