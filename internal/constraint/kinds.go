package constraint

import (
	"fmt"
	"regexp"

	"github.com/metaschema-go/metaschema/internal/datatype"
	"github.com/metaschema-go/metaschema/internal/metapath"
)

// Unbounded is the MaxOccurs of a cardinality without an upper bound
const Unbounded = -1

// Pattern is a regular expression that must match a whole value
type Pattern struct {
	text string
	re   *regexp.Regexp
}

// NewPattern compiles text anchored at both ends
func NewPattern(text string) (*Pattern, error) {
	re, err := regexp.Compile("^(?:" + text + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", text, err)
	}
	return &Pattern{text: text, re: re}, nil
}

// MustPattern is like NewPattern but panics on error
func MustPattern(text string) *Pattern {
	p, err := NewPattern(text)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern as declared
func (p *Pattern) String() string { return p.text }

// MatchString reports whether the whole of s matches
func (p *Pattern) MatchString(s string) bool { return p.re.MatchString(s) }

// extract returns the first capture group of a match, or the whole match
// when the pattern has no groups
func (p *Pattern) extract(s string) (string, bool) {
	match := p.re.FindStringSubmatch(s)
	if match == nil {
		return "", false
	}
	if len(match) > 1 {
		return match[1], true
	}
	return match[0], true
}

// AllowedValue is one enumerated value of an AllowedValues constraint
type AllowedValue struct {
	Value       string
	Description string
}

// AllowedValues restricts the value of the target to an enumeration
type AllowedValues struct {
	Common
	Values      []AllowedValue
	AllowOthers bool
}

func (*AllowedValues) Kind() Kind { return KindAllowedValues }

// Allows reports whether value is one of the enumerated values
func (c *AllowedValues) Allows(value string) bool {
	for _, v := range c.Values {
		if v.Value == value {
			return true
		}
	}
	return false
}

// Matches requires the value of the target to match Pattern and/or parse as
// DataType
type Matches struct {
	Common
	Pattern  *Pattern
	DataType *datatype.Adapter
}

func (*Matches) Kind() Kind { return KindMatches }

// KeyField selects one component of a key relative to the target node
type KeyField struct {
	Target *metapath.Expression
	// Pattern optionally extracts the component from the selected value.
	Pattern *Pattern
	Remarks string
}

// Unique requires the keys of all targets of the constraint to be distinct
type Unique struct {
	Common
	KeyFields []KeyField
}

func (*Unique) Kind() Kind { return KindUnique }

// Index builds a named key index over its targets. Keys must be distinct.
type Index struct {
	Common
	Name      string
	KeyFields []KeyField
}

func (*Index) Kind() Kind { return KindIndex }

// IndexHasKey requires the key of each target to exist in a named index
type IndexHasKey struct {
	Common
	IndexName string
	KeyFields []KeyField
}

func (*IndexHasKey) Kind() Kind { return KindIndexHasKey }

// Cardinality bounds the number of targets selected from each node
type Cardinality struct {
	Common
	MinOccurs int
	// MaxOccurs is Unbounded when there is no upper bound.
	MaxOccurs int
}

func (*Cardinality) Kind() Kind { return KindCardinality }

// Allows reports whether count is within the bounds
func (c *Cardinality) Allows(count int) bool {
	if count < c.MinOccurs {
		return false
	}
	return c.MaxOccurs == Unbounded || count <= c.MaxOccurs
}

// Expect requires Test to have a true effective boolean value for every
// target
type Expect struct {
	Common
	Test *metapath.Expression
	// Message is reported on failure. A nil message produces a default.
	Message *Message
}

func (*Expect) Kind() Kind { return KindExpect }

// KeyFieldsOf returns the key fields of a key-based constraint
func KeyFieldsOf(c Constraint) []KeyField {
	switch v := c.(type) {
	case *Unique:
		return v.KeyFields
	case *Index:
		return v.KeyFields
	case *IndexHasKey:
		return v.KeyFields
	}
	return nil
}
