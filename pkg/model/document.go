// Package model implements the typed per-kind object records of
// spec.md section 4.1: each kind knows its key, its dependency keys,
// whether and how it splits, and how to build a change.Report against
// a resolved hub session.
package model

import (
	"strings"

	"github.com/obriencj/koji-habitude-go/pkg/key"
)

// TraceEntry records one template expansion that produced a Document
// (spec.md section 3, "trace": ordered list of template expansions).
type TraceEntry struct {
	Template string
	File     string
	Line     int
}

// Document is a raw parsed YAML document, dispatched by the namespace
// and consumed by Build. Fields holds every key except type/name/the
// reserved __file__/__line__/__trace__ triple (spec.md section 6,
// "Input YAML grammar"), whose values are dropped. The loader sets File
// and Line from the source path and node position and leaves Trace
// empty; template rendering fills Trace.
type Document struct {
	Type   string
	Name   string
	Fields map[string]any
	File   string
	Line   int
	Trace  []TraceEntry
}

// Provenance is the source-position and expansion-trace metadata every
// authored Object carries (spec.md section 3, "Authored object").
type Provenance struct {
	File  string
	Line  int
	Trace []TraceEntry
}

func provenanceOf(d Document) Provenance {
	return Provenance{File: d.File, Line: d.Line, Trace: d.Trace}
}

// stringField reads a string field, trimmed, defaulting to "".
func stringField(f map[string]any, name string) string {
	v, ok := f[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// boolField reads a bool field, defaulting to false.
func boolField(f map[string]any, name string) bool {
	v, ok := f[name]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// stringListField reads a field as a list of strings, tolerating a bare
// string or a YAML-decoded []any of strings.
func stringListField(f map[string]any, name string) []string {
	v, ok := f[name]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		return []string{t}
	default:
		return nil
	}
}

func floatField(f map[string]any, name string) (float64, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}

// dependencyKeysFor builds the Key slice for a type tag + name list,
// preserving order (spec.md section 4.1, "deterministic ordering per kind").
func dependencyKeysFor(typeTag string, names []string) []key.Key {
	out := make([]key.Key, 0, len(names))
	for _, n := range names {
		out = append(out, key.New(typeTag, n))
	}
	return out
}
