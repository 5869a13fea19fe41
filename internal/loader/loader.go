// Package loader reads schema descriptions, external constraint sets and
// instance documents from YAML, TOML or JSON files.
//
// Every description is decoded into generic values, normalized to JSON,
// checked against an embedded CUE shape and only then turned into a
// model.Schema with compiled constraints.
package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/metaschema-go/metaschema/internal/datatype"
	"github.com/metaschema-go/metaschema/internal/metapath"
)

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the logger used to report loading progress
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithStaticContext sets the static context constraint expressions are
// compiled with
func WithStaticContext(static *metapath.StaticContext) Option {
	return func(l *Loader) {
		if static != nil {
			l.static = static
		}
	}
}

// Loader turns description files into schemas and instance files into
// node-item documents
type Loader struct {
	logger *zap.Logger
	static *metapath.StaticContext
}

// New creates a loader
func New(opts ...Option) *Loader {
	l := &Loader{
		logger: zap.NewNop(),
		static: metapath.NewStaticContext(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) dataTypes() *datatype.Registry {
	if l.static.DataTypes != nil {
		return l.static.DataTypes
	}
	return datatype.Default()
}

// readFile reads path and decodes it in the format given by its extension
func readFile(path string) (any, Format, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, FormatUnknown, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, format, fmt.Errorf("failed to read %s: %w", path, err)
	}
	value, err := decode(data, format)
	if err != nil {
		return nil, format, fmt.Errorf("%s: %w", path, err)
	}
	return value, format, nil
}

// decodeChecked normalizes value, checks it against the named shape and
// decodes it into out
func decodeChecked(file, shape string, value any, out any) error {
	data, err := canonical(value)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if err := defaultChecker().check(file, shape, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	return nil
}
