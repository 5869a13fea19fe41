// Package model provides the definition graph of a Metaschema: assembly,
// field and flag definitions stored in an arena and referenced by DefID, so
// self-referential schemas are plain index cycles.
package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/datatype"
)

// DefID identifies a definition within its Schema
type DefID int

// Kind is the variant of a definition
type Kind int

const (
	KindAssembly Kind = iota
	KindField
	KindFlag
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAssembly:
		return "assembly"
	case KindField:
		return "field"
	case KindFlag:
		return "flag"
	default:
		return "unknown"
	}
}

var (
	// ErrDuplicateDefinition is returned when a name is defined twice for a kind
	ErrDuplicateDefinition = errors.New("duplicate definition")
	// ErrInvalidInstance is returned when an instance does not fit its parent
	ErrInvalidInstance = errors.New("invalid instance")
	// ErrConstraintNotAllowed is returned when a constraint kind cannot be
	// attached to a definition kind
	ErrConstraintNotAllowed = errors.New("constraint not allowed on definition")
)

type defKey struct {
	kind Kind
	name string
}

// Schema is the arena owning every definition of one Metaschema
type Schema struct {
	Name      string
	Namespace string
	defs      []*Definition
	byName    map[defKey]DefID
}

// NewSchema creates an empty schema
func NewSchema(name string) *Schema {
	return &Schema{
		Name:   name,
		byName: make(map[defKey]DefID),
	}
}

// DefinitionOption configures a definition when it is added
type DefinitionOption func(*Definition)

// WithUseName overrides the name used in instances and paths
func WithUseName(name string) DefinitionOption {
	return func(d *Definition) { d.useName = name }
}

// WithRootName marks an assembly as a document root
func WithRootName(name string) DefinitionOption {
	return func(d *Definition) { d.rootName = name }
}

// WithFormalName sets the human-readable name
func WithFormalName(name string) DefinitionOption {
	return func(d *Definition) { d.formalName = name }
}

// WithDescription sets the description
func WithDescription(description string) DefinitionOption {
	return func(d *Definition) { d.description = description }
}

// WithJSONValueKey overrides the property holding a field's value when the
// field is written as an object
func WithJSONValueKey(key string) DefinitionOption {
	return func(d *Definition) { d.jsonValueKey = key }
}

// AddAssembly defines an assembly
func (s *Schema) AddAssembly(name string, opts ...DefinitionOption) (*Definition, error) {
	return s.add(KindAssembly, name, nil, opts)
}

// AddField defines a field holding values of dataType
func (s *Schema) AddField(name string, dataType *datatype.Adapter, opts ...DefinitionOption) (*Definition, error) {
	return s.add(KindField, name, dataType, opts)
}

// AddFlag defines a flag holding values of dataType
func (s *Schema) AddFlag(name string, dataType *datatype.Adapter, opts ...DefinitionOption) (*Definition, error) {
	return s.add(KindFlag, name, dataType, opts)
}

func (s *Schema) add(kind Kind, name string, dataType *datatype.Adapter, opts []DefinitionOption) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("%s definition requires a name", kind)
	}
	key := defKey{kind: kind, name: name}
	if _, exists := s.byName[key]; exists {
		return nil, fmt.Errorf("%s %q: %w", kind, name, ErrDuplicateDefinition)
	}
	if kind != KindAssembly && dataType == nil {
		dataType = datatype.Default().MustLookup(datatype.String)
	}

	def := &Definition{
		id:          DefID(len(s.defs)),
		schema:      s,
		kind:        kind,
		name:        name,
		dataType:    dataType,
		constraints: &constraint.Set{},
	}
	for _, opt := range opts {
		opt(def)
	}
	if def.rootName != "" && kind != KindAssembly {
		return nil, fmt.Errorf("%s %q: only assemblies can be roots", kind, name)
	}

	s.defs = append(s.defs, def)
	s.byName[key] = def.id
	return def, nil
}

// Definition returns the definition with the given id, or nil
func (s *Schema) Definition(id DefID) *Definition {
	if id < 0 || int(id) >= len(s.defs) {
		return nil
	}
	return s.defs[id]
}

// Lookup finds a definition by kind and name
func (s *Schema) Lookup(kind Kind, name string) (*Definition, bool) {
	id, ok := s.byName[defKey{kind: kind, name: name}]
	if !ok {
		return nil, false
	}
	return s.defs[id], true
}

// Definitions returns all definitions in the order they were added
func (s *Schema) Definitions() []*Definition {
	result := make([]*Definition, len(s.defs))
	copy(result, s.defs)
	return result
}

// Roots returns the root assemblies in the order they were added
func (s *Schema) Roots() []*Definition {
	var roots []*Definition
	for _, def := range s.defs {
		if def.IsRoot() {
			roots = append(roots, def)
		}
	}
	return roots
}

// Root finds a root assembly by its root name
func (s *Schema) Root(rootName string) (*Definition, bool) {
	for _, def := range s.defs {
		if def.rootName == rootName {
			return def, true
		}
	}
	return nil, false
}

// Names returns the sorted names of definitions of one kind
func (s *Schema) Names(kind Kind) []string {
	var names []string
	for key := range s.byName {
		if key.kind == kind {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names
}

// Definition is an assembly, field or flag definition. Apart from
// constraint attachment it is immutable once its instances are added.
type Definition struct {
	id           DefID
	schema       *Schema
	kind         Kind
	name         string
	useName      string
	rootName     string
	formalName   string
	description  string
	dataType     *datatype.Adapter
	jsonValueKey string
	flags        []*Instance
	model        []*Instance
	constraints  *constraint.Set
}

func (d *Definition) ID() DefID           { return d.id }
func (d *Definition) Schema() *Schema     { return d.schema }
func (d *Definition) Kind() Kind          { return d.kind }
func (d *Definition) Name() string        { return d.name }
func (d *Definition) FormalName() string  { return d.formalName }
func (d *Definition) Description() string { return d.description }

// EffectiveName returns the use name if one is set, otherwise the name
func (d *Definition) EffectiveName() string {
	if d.useName != "" {
		return d.useName
	}
	return d.name
}

// IsRoot reports whether the assembly can be a document root
func (d *Definition) IsRoot() bool { return d.rootName != "" }

// RootName returns the name of the root element, or "" for non-roots
func (d *Definition) RootName() string { return d.rootName }

// DataType returns the adapter for field and flag values, nil for assemblies
func (d *Definition) DataType() *datatype.Adapter { return d.dataType }

// JSONValueKey returns the property holding a field value in object form
func (d *Definition) JSONValueKey() string {
	if d.jsonValueKey != "" {
		return d.jsonValueKey
	}
	if d.dataType != nil {
		return d.dataType.DefaultJSONValueKey()
	}
	return ""
}

// FlagInstances returns the flags in declaration order
func (d *Definition) FlagInstances() []*Instance { return d.flags }

// ModelInstances returns the model children of an assembly in declaration
// order
func (d *Definition) ModelInstances() []*Instance { return d.model }

// FlagInstance finds a flag instance by effective name
func (d *Definition) FlagInstance(name string) (*Instance, bool) {
	for _, inst := range d.flags {
		if inst.EffectiveName() == name {
			return inst, true
		}
	}
	return nil, false
}

// ModelInstance finds a model instance by effective name
func (d *Definition) ModelInstance(name string) (*Instance, bool) {
	for _, inst := range d.model {
		if inst.EffectiveName() == name {
			return inst, true
		}
	}
	return nil, false
}

// Constraints returns the attached constraints
func (d *Definition) Constraints() *constraint.Set { return d.constraints }

// AddConstraint attaches c after checking that its kind fits the definition.
// Flags and fields accept allowed-values, matches, index-has-key and expect
// constraints; assemblies accept every kind.
func (d *Definition) AddConstraint(c constraint.Constraint) error {
	if d.kind != KindAssembly {
		switch c.Kind() {
		case constraint.KindUnique, constraint.KindIndex, constraint.KindCardinality:
			return fmt.Errorf("%s on %s %q: %w", constraint.Describe(c), d.kind, d.name, ErrConstraintNotAllowed)
		}
	}
	if err := d.constraints.Add(c); err != nil {
		return fmt.Errorf("%s %q: %w", d.kind, d.name, err)
	}
	return nil
}

// String returns a label such as "assembly control"
func (d *Definition) String() string {
	return d.kind.String() + " " + d.name
}
