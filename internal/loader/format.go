package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a serialization format of an input file
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatYAML
	FormatTOML
)

// ErrUnsupportedFormat is returned for an unknown file extension or a format
// that cannot carry the requested content
var ErrUnsupportedFormat = errors.New("unsupported format")

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatOf detects the format of path from its extension
func FormatOf(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return FormatUnknown, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// decode reads data into generic maps, slices and scalars. JSON numbers are
// kept as json.Number so decimal values keep their lexical form.
func decode(data []byte, format Format) (any, error) {
	var value any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, errors.New("failed to parse JSON: trailing data after document")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		var table map[string]any
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		value = table
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return value, nil
}

// canonical re-encodes a decoded value as JSON, the form the shape check
// and the typed descriptions are read from
func canonical(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	return data, nil
}
