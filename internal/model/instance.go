package model

import (
	"errors"
	"fmt"
)

// Unbounded is the MaxOccurs of an instance without an upper bound
const Unbounded = -1

// ErrInvalidValue is returned when an instance value does not have the shape
// the instance describes
var ErrInvalidValue = errors.New("invalid instance value")

// GroupBehavior controls how repeated occurrences are written
type GroupBehavior int

const (
	// GroupAsList always writes an array
	GroupAsList GroupBehavior = iota
	// GroupAsSingletonOrList writes a single occurrence as a bare value
	GroupAsSingletonOrList
)

// String returns the string representation of the behavior
func (b GroupBehavior) String() string {
	switch b {
	case GroupAsList:
		return "list"
	case GroupAsSingletonOrList:
		return "singleton-or-list"
	default:
		return "unknown"
	}
}

// ParseGroupBehavior parses "list" or "singleton-or-list"
func ParseGroupBehavior(s string) (GroupBehavior, error) {
	switch s {
	case "", "list":
		return GroupAsList, nil
	case "singleton-or-list":
		return GroupAsSingletonOrList, nil
	default:
		return 0, fmt.Errorf("unknown group-as behavior %q", s)
	}
}

// GroupAs names the property grouping repeated occurrences
type GroupAs struct {
	Name     string
	Behavior GroupBehavior
}

// Instance is an occurrence of a definition inside an assembly (model
// instances) or inside an assembly or field (flag instances)
type Instance struct {
	parent    *Definition
	def       DefID
	useName   string
	minOccurs int
	maxOccurs int
	groupAs   GroupAs
}

// InstanceOption configures an instance when it is added
type InstanceOption func(*Instance)

// Occurs sets the occurrence bounds. Use Unbounded for no upper bound.
func Occurs(min, max int) InstanceOption {
	return func(i *Instance) {
		i.minOccurs = min
		i.maxOccurs = max
	}
}

// Required sets the minimum occurrence to one
func Required() InstanceOption {
	return func(i *Instance) { i.minOccurs = 1 }
}

// WithInstanceName overrides the effective name of the definition
func WithInstanceName(name string) InstanceOption {
	return func(i *Instance) { i.useName = name }
}

// WithGroupAs groups repeated occurrences under name
func WithGroupAs(name string, behavior GroupBehavior) InstanceOption {
	return func(i *Instance) { i.groupAs = GroupAs{Name: name, Behavior: behavior} }
}

// AddFlagInstance adds a flag to an assembly or field
func (d *Definition) AddFlagInstance(flag *Definition, opts ...InstanceOption) (*Instance, error) {
	if d.kind == KindFlag {
		return nil, fmt.Errorf("%s cannot have flags: %w", d, ErrInvalidInstance)
	}
	if flag.kind != KindFlag {
		return nil, fmt.Errorf("%s is not a flag: %w", flag, ErrInvalidInstance)
	}
	inst, err := d.newInstance(flag, opts)
	if err != nil {
		return nil, err
	}
	if inst.maxOccurs != 1 {
		return nil, fmt.Errorf("flag %q on %s must occur at most once: %w", inst.EffectiveName(), d, ErrInvalidInstance)
	}
	if _, exists := d.FlagInstance(inst.EffectiveName()); exists {
		return nil, fmt.Errorf("flag %q on %s: %w", inst.EffectiveName(), d, ErrDuplicateDefinition)
	}
	d.flags = append(d.flags, inst)
	return inst, nil
}

// AddModelInstance adds an assembly or field occurrence to an assembly
func (d *Definition) AddModelInstance(child *Definition, opts ...InstanceOption) (*Instance, error) {
	if d.kind != KindAssembly {
		return nil, fmt.Errorf("%s cannot have model instances: %w", d, ErrInvalidInstance)
	}
	if child.kind == KindFlag {
		return nil, fmt.Errorf("%s must be added as a flag instance: %w", child, ErrInvalidInstance)
	}
	inst, err := d.newInstance(child, opts)
	if err != nil {
		return nil, err
	}
	if _, exists := d.ModelInstance(inst.EffectiveName()); exists {
		return nil, fmt.Errorf("model instance %q on %s: %w", inst.EffectiveName(), d, ErrDuplicateDefinition)
	}
	d.model = append(d.model, inst)
	return inst, nil
}

func (d *Definition) newInstance(def *Definition, opts []InstanceOption) (*Instance, error) {
	if def.schema != d.schema {
		return nil, fmt.Errorf("%s belongs to another schema: %w", def, ErrInvalidInstance)
	}
	inst := &Instance{parent: d, def: def.id, maxOccurs: 1}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.minOccurs < 0 {
		return nil, fmt.Errorf("%s in %s: min occurs %d is negative: %w", def, d, inst.minOccurs, ErrInvalidInstance)
	}
	if inst.maxOccurs != Unbounded && inst.maxOccurs < max(inst.minOccurs, 1) {
		return nil, fmt.Errorf("%s in %s: max occurs %d is less than min occurs %d: %w",
			def, d, inst.maxOccurs, inst.minOccurs, ErrInvalidInstance)
	}
	return inst, nil
}

// Parent returns the definition containing the instance
func (i *Instance) Parent() *Definition { return i.parent }

// DefinitionID returns the id of the instantiated definition
func (i *Instance) DefinitionID() DefID { return i.def }

// Definition returns the instantiated definition
func (i *Instance) Definition() *Definition { return i.parent.schema.Definition(i.def) }

// Kind returns the kind of the instantiated definition
func (i *Instance) Kind() Kind { return i.Definition().kind }

// EffectiveName returns the instance name, falling back to the definition's
// effective name
func (i *Instance) EffectiveName() string {
	if i.useName != "" {
		return i.useName
	}
	return i.Definition().EffectiveName()
}

func (i *Instance) MinOccurs() int   { return i.minOccurs }
func (i *Instance) MaxOccurs() int   { return i.maxOccurs }
func (i *Instance) GroupAs() GroupAs { return i.groupAs }

// IsRequired reports whether at least one occurrence is required
func (i *Instance) IsRequired() bool { return i.minOccurs > 0 }

// IsMultiple reports whether more than one occurrence is allowed
func (i *Instance) IsMultiple() bool { return i.maxOccurs != 1 }

// JSONName returns the property name holding the instance's value in its
// parent object
func (i *Instance) JSONName() string {
	if i.IsMultiple() && i.groupAs.Name != "" {
		return i.groupAs.Name
	}
	return i.EffectiveName()
}

// Value returns the value of the instance within the value of its parent
func (i *Instance) Value(parent any) (any, bool) {
	object, ok := parent.(map[string]any)
	if !ok {
		return nil, false
	}
	value, ok := object[i.JSONName()]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// ItemValues expands an instance value to one value per occurrence
func (i *Instance) ItemValues(value any) ([]any, error) {
	if value == nil {
		return nil, nil
	}
	list, isList := value.([]any)
	if !i.IsMultiple() {
		if isList {
			return nil, fmt.Errorf("%q expects a single value, got an array: %w", i.JSONName(), ErrInvalidValue)
		}
		return []any{value}, nil
	}
	if isList {
		return list, nil
	}
	if i.groupAs.Behavior == GroupAsSingletonOrList {
		return []any{value}, nil
	}
	return nil, fmt.Errorf("%q is grouped as a list and expects an array: %w", i.JSONName(), ErrInvalidValue)
}

// FieldValue returns the scalar value of a field, which is either the value
// itself or, when the field has flags, the JSONValueKey property of an object
func (d *Definition) FieldValue(value any) (any, bool) {
	if object, ok := value.(map[string]any); ok {
		v, ok := object[d.JSONValueKey()]
		return v, ok && v != nil
	}
	return value, value != nil
}
