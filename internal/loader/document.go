package loader

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/metaschema-go/metaschema/internal/model"
	"github.com/metaschema-go/metaschema/internal/nodeitem"
)

// ErrUnknownRoot is returned when a document's top-level property matches
// no root assembly of the schema
var ErrUnknownRoot = errors.New("no root assembly matches the document")

// LoadDocument reads a JSON or YAML instance document and builds its
// value-bearing node tree. The root assembly is chosen by the document's
// single top-level property. The tree is checked for data-shape errors
// before it is returned.
func (l *Loader) LoadDocument(path string, schema *model.Schema) (*nodeitem.Node, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == FormatTOML {
		return nil, fmt.Errorf("%w: instance documents are JSON or YAML", ErrUnsupportedFormat)
	}
	value, _, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return l.document(path, value, schema, fileURI(path))
}

// ParseDocument is LoadDocument for in-memory data
func (l *Loader) ParseDocument(name string, data []byte, format Format, schema *model.Schema, baseURI *url.URL) (*nodeitem.Node, error) {
	if format == FormatTOML {
		return nil, fmt.Errorf("%w: instance documents are JSON or YAML", ErrUnsupportedFormat)
	}
	value, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return l.document(name, value, schema, baseURI)
}

func (l *Loader) document(file string, value any, schema *model.Schema, baseURI *url.URL) (*nodeitem.Node, error) {
	root, err := RootOf(schema, value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	doc, err := nodeitem.NewFactory(schema).NewDocumentNode(root, value, baseURI)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := nodeitem.Check(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	l.logger.Debug("loaded document",
		zap.String("file", file),
		zap.String("root", root.RootName()))
	return doc, nil
}

// RootOf finds the root assembly named by the single top-level property of
// a decoded document
func RootOf(schema *model.Schema, document any) (*model.Definition, error) {
	object, ok := document.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document must be an object, got %T", document)
	}
	keys := make([]string, 0, len(object))
	for key := range object {
		if key == "$schema" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) != 1 {
		return nil, fmt.Errorf("document must have exactly one root property, found [%s]", strings.Join(keys, ", "))
	}
	root, ok := schema.Root(keys[0])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoot, keys[0])
	}
	return root, nil
}

func fileURI(path string) *url.URL {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
}
