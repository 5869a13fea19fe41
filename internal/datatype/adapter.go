// Package datatype provides the data-type adapters that turn the raw values
// of fields and flags into typed atomic items.
package datatype

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// Adapter converts lexical values of one schema data type into atomic items
// and checks them against the data type's lexical rules.
type Adapter struct {
	name         string
	itemType     item.AtomicType
	jsonValueKey string
	pattern      *regexp.Regexp
	check        func(item.AtomicItem) error
}

// NewAdapter creates an adapter for a custom data type whose values are
// atomic items of type t restricted to lexical forms matching pattern. A nil
// pattern accepts every form item.Parse accepts.
func NewAdapter(name string, t item.AtomicType, pattern *regexp.Regexp) *Adapter {
	return &Adapter{name: name, itemType: t, jsonValueKey: "value", pattern: pattern}
}

// Name returns the schema name of the data type
func (a *Adapter) Name() string { return a.name }

// ItemType returns the atomic type produced by Parse
func (a *Adapter) ItemType() item.AtomicType { return a.itemType }

// DefaultJSONValueKey is the property holding a field's value when the field
// also has flags and declares no value key of its own.
func (a *Adapter) DefaultJSONValueKey() string { return a.jsonValueKey }

// Parse converts the lexical form s into an atomic item
func (a *Adapter) Parse(s string) (item.AtomicItem, error) {
	if a.pattern != nil && !a.pattern.MatchString(s) {
		return nil, &InvalidValueError{DataType: a.name, Value: s}
	}
	value, err := item.Parse(a.itemType, s)
	if err != nil {
		return nil, &InvalidValueError{DataType: a.name, Value: s, Cause: err}
	}
	if a.check != nil {
		if err := a.check(value); err != nil {
			return nil, &InvalidValueError{DataType: a.name, Value: s, Cause: err}
		}
	}
	return value, nil
}

// ParseValue converts a decoded document value (string, bool, number or
// timestamp) into an atomic item
func (a *Adapter) ParseValue(value any) (item.AtomicItem, error) {
	s, err := Lexical(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	return a.Parse(s)
}

// Valid reports whether s is a valid lexical value of the data type
func (a *Adapter) Valid(s string) bool {
	_, err := a.Parse(s)
	return err == nil
}

// Lexical returns the lexical form of a decoded document value
func Lexical(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", fmt.Errorf("missing value")
	}
	return "", fmt.Errorf("unsupported value of type %T", value)
}

// InvalidValueError reports a value that does not conform to a data type
type InvalidValueError struct {
	DataType string
	Value    string
	Cause    error
}

func (e *InvalidValueError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("value %q is not a valid %s: %v", e.Value, e.DataType, e.Cause)
	}
	return fmt.Sprintf("value %q is not a valid %s", e.Value, e.DataType)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Cause
}
