// Package loader reads YAML files and directories off disk into
// model.Document values, populating the __file__/__line__/__trace__
// provenance triple spec.md section 6 reserves (file and line come
// from the loader; trace starts empty and is extended by template
// expansion).
package loader

import (
	"bytes"
	goerrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/model"
)

// Sink receives documents as they're parsed; pkg/namespace.Namespace.Feed
// satisfies this, keeping the loader ignorant of namespace internals.
type Sink interface {
	Feed(d model.Document) error
}

// LoadPath loads path into sink: a single file is parsed directly; a
// directory is walked recursively for .yaml/.yml files in
// lexicographic order, for deterministic feed-line ordering across
// runs (spec.md section 4.3 tolerates any order, but determinism aids
// debugging and test reproducibility).
func LoadPath(path string, sink Sink) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewYAMLError("cannot stat "+path, err)
	}
	if !info.IsDir() {
		return LoadFile(path, sink)
	}

	var files []string
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isYAMLFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if walkErr != nil {
		return errors.NewYAMLError("walking "+path, walkErr)
	}
	sort.Strings(files)

	for _, f := range files {
		if err := LoadFile(f, sink); err != nil {
			return err
		}
	}
	return nil
}

func isYAMLFile(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".yaml" || ext == ".yml"
}

// LoadFile parses one YAML file as a multi-document stream and feeds
// each document to sink with __file__/line provenance attached.
func LoadFile(path string, sink Sink) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewYAMLError("reading "+path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if goerrors.Is(err, io.EOF) {
				break
			}
			return errors.NewYAMLError("parsing "+path, err).WithField("file", path)
		}
		doc, err := documentFromNode(&node, path)
		if err != nil {
			return err
		}
		if doc == nil {
			continue
		}
		if err := sink.Feed(*doc); err != nil {
			return err
		}
	}
	return nil
}

// documentFromNode converts a decoded YAML document node into a
// model.Document, reading the line number of the document's mapping
// node as __line__ (spec.md section 6). A nil node (the empty document
// at end of a "---\n" separated stream) yields a nil *model.Document.
func documentFromNode(node *yaml.Node, path string) (*model.Document, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return nil, errors.NewYAMLError("decoding document in "+path, err).WithField("file", path)
	}
	if raw == nil {
		return nil, nil
	}

	typ, _ := raw["type"].(string)
	name, _ := raw["name"].(string)
	if typ == "" {
		return nil, errors.NewValidationError("document in "+path+" missing required field 'type'", nil).WithField("file", path)
	}
	name = strings.TrimSpace(name)

	line := node.Line
	if line == 0 && len(node.Content) > 0 {
		line = node.Content[0].Line
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

	return &model.Document{
		Type:   typ,
		Name:   name,
		Fields: fields,
		File:   path,
		Line:   line,
	}, nil
}
