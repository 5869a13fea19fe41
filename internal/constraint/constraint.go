// Package constraint models the declarative rules attached to definitions:
// allowed values, matches, unique, index, index-has-key, cardinality and
// expect. Targets, key fields and tests are compiled Metapath expressions.
package constraint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/metaschema-go/metaschema/internal/metapath"
)

// Level is the significance of a constraint violation
type Level int

const (
	LevelInformational Level = iota
	LevelWarning
	LevelError
	LevelCritical
	// LevelInvalidConstraint is reserved for findings produced when a
	// constraint itself cannot be evaluated.
	LevelInvalidConstraint
)

var levelNames = map[Level]string{
	LevelInformational:     "informational",
	LevelWarning:           "warning",
	LevelError:             "error",
	LevelCritical:          "critical",
	LevelInvalidConstraint: "invalid-constraint",
}

// String returns the string representation of the level
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLevel parses a level name case-insensitively
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "info" {
		return LevelInformational, nil
	}
	for level, levelName := range levelNames {
		if levelName == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// Source records where a constraint was declared
type Source int

const (
	SourceInternal Source = iota
	SourceExternal
)

// String returns the string representation of the source
func (s Source) String() string {
	switch s {
	case SourceInternal:
		return "internal"
	case SourceExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Kind identifies the variant of a constraint
type Kind int

const (
	KindAllowedValues Kind = iota
	KindMatches
	KindUnique
	KindIndex
	KindIndexHasKey
	KindCardinality
	KindExpect
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAllowedValues:
		return "allowed-values"
	case KindMatches:
		return "matches"
	case KindUnique:
		return "unique"
	case KindIndex:
		return "index"
	case KindIndexHasKey:
		return "index-has-key"
	case KindCardinality:
		return "cardinality"
	case KindExpect:
		return "expect"
	default:
		return "unknown"
	}
}

// selfTarget is used for constraints declared without a target
var selfTarget = metapath.MustCompile(".")

// Common holds the properties every constraint carries
type Common struct {
	ID      string
	Level   Level
	Source  Source
	Target  *metapath.Expression
	Remarks string
}

// Meta returns the common properties of the constraint
func (c *Common) Meta() *Common { return c }

// TargetExpression returns the target, defaulting to the context node
func (c *Common) TargetExpression() *metapath.Expression {
	if c.Target == nil {
		return selfTarget
	}
	return c.Target
}

// Constraint is implemented by the constraint kinds of this package
type Constraint interface {
	Kind() Kind
	Meta() *Common
}

var (
	// ErrNoKeyFields is returned for key constraints without key fields
	ErrNoKeyFields = errors.New("key constraint requires at least one key field")
	// ErrInvalidConstraint is wrapped by every Validate error
	ErrInvalidConstraint = errors.New("invalid constraint")
)

// Validate checks the structural invariants of a constraint
func Validate(c Constraint) error {
	if c.Meta().Level == LevelInvalidConstraint {
		return invalid(c, "level %s is reserved", LevelInvalidConstraint)
	}

	switch v := c.(type) {
	case *AllowedValues:
		if len(v.Values) == 0 && !v.AllowOthers {
			return invalid(c, "no allowed values and others are not allowed")
		}
	case *Matches:
		if v.Pattern == nil && v.DataType == nil {
			return invalid(c, "a pattern or a data type is required")
		}
	case *Unique:
		return validateKeyFields(c, v.KeyFields)
	case *Index:
		if v.Name == "" {
			return invalid(c, "index name is required")
		}
		return validateKeyFields(c, v.KeyFields)
	case *IndexHasKey:
		if v.IndexName == "" {
			return invalid(c, "index name is required")
		}
		return validateKeyFields(c, v.KeyFields)
	case *Cardinality:
		if v.MinOccurs < 0 {
			return invalid(c, "min occurs %d is negative", v.MinOccurs)
		}
		if v.MaxOccurs != Unbounded && v.MaxOccurs < v.MinOccurs {
			return invalid(c, "max occurs %d is less than min occurs %d", v.MaxOccurs, v.MinOccurs)
		}
	case *Expect:
		if v.Test == nil {
			return invalid(c, "test expression is required")
		}
	}
	return nil
}

func validateKeyFields(c Constraint, fields []KeyField) error {
	if len(fields) == 0 {
		return fmt.Errorf("%s: %w: %w", Describe(c), ErrInvalidConstraint, ErrNoKeyFields)
	}
	for i, field := range fields {
		if field.Target == nil {
			return invalid(c, "key field %d has no target", i+1)
		}
	}
	return nil
}

func invalid(c Constraint, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", Describe(c), ErrInvalidConstraint, fmt.Sprintf(format, args...))
}

// Describe returns a short label such as "expect constraint 'has-title'"
func Describe(c Constraint) string {
	if id := c.Meta().ID; id != "" {
		return fmt.Sprintf("%s constraint '%s'", c.Kind(), id)
	}
	return fmt.Sprintf("%s constraint", c.Kind())
}
