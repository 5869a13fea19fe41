package loader

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/model"
)

// DescriptionError reports a definition, instance or constraint that could
// not be built. Location names the offending element inside File.
type DescriptionError struct {
	File     string
	Location string
	Err      error
}

func (e *DescriptionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Location, e.Err)
}

func (e *DescriptionError) Unwrap() error { return e.Err }

// constraintBuilder compiles constraint descriptions of one file
type constraintBuilder struct {
	loader *Loader
	file   string
	source constraint.Source
}

func (b *constraintBuilder) compile(location, text string) (*metapath.Expression, error) {
	return metapath.Compile(text,
		metapath.WithSource(fmt.Sprintf("%s: %s", b.file, location)),
		metapath.WithStaticContext(b.loader.static))
}

func (b *constraintBuilder) build(location string, desc ConstraintDescription) (constraint.Constraint, error) {
	common := constraint.Common{
		ID:      desc.ID,
		Level:   constraint.LevelError,
		Source:  b.source,
		Remarks: desc.Remarks,
	}
	if desc.Level != "" {
		level, err := constraint.ParseLevel(desc.Level)
		if err != nil {
			return nil, err
		}
		common.Level = level
	}
	if desc.Target != "" {
		target, err := b.compile(location+" target", desc.Target)
		if err != nil {
			return nil, err
		}
		common.Target = target
	}

	var c constraint.Constraint
	switch desc.Type {
	case "allowed-values":
		values := make([]constraint.AllowedValue, 0, len(desc.Values))
		for _, v := range desc.Values {
			values = append(values, constraint.AllowedValue{Value: v.Value, Description: v.Description})
		}
		c = &constraint.AllowedValues{Common: common, Values: values, AllowOthers: desc.AllowOthers}

	case "matches":
		m := &constraint.Matches{Common: common}
		if desc.Pattern != "" {
			pattern, err := constraint.NewPattern(desc.Pattern)
			if err != nil {
				return nil, err
			}
			m.Pattern = pattern
		}
		if desc.DataType != "" {
			adapter, ok := b.loader.dataTypes().Lookup(desc.DataType)
			if !ok {
				return nil, fmt.Errorf("unknown data type %q", desc.DataType)
			}
			m.DataType = adapter
		}
		c = m

	case "unique", "index", "index-has-key":
		fields, err := b.keyFields(location, desc.KeyFields)
		if err != nil {
			return nil, err
		}
		switch desc.Type {
		case "unique":
			c = &constraint.Unique{Common: common, KeyFields: fields}
		case "index":
			c = &constraint.Index{Common: common, Name: desc.Name, KeyFields: fields}
		default:
			c = &constraint.IndexHasKey{Common: common, IndexName: desc.Index, KeyFields: fields}
		}

	case "cardinality":
		card := &constraint.Cardinality{Common: common, MaxOccurs: constraint.Unbounded}
		if desc.MinOccurs != nil {
			card.MinOccurs = *desc.MinOccurs
		}
		if desc.MaxOccurs != nil && *desc.MaxOccurs >= 0 {
			card.MaxOccurs = int(*desc.MaxOccurs)
		}
		c = card

	case "expect":
		if desc.Test == "" {
			return nil, errors.New("expect constraint requires a test")
		}
		test, err := b.compile(location+" test", desc.Test)
		if err != nil {
			return nil, err
		}
		expect := &constraint.Expect{Common: common, Test: test}
		if desc.Message != "" {
			msg, err := constraint.ParseMessage(desc.Message,
				metapath.WithSource(fmt.Sprintf("%s: %s message", b.file, location)),
				metapath.WithStaticContext(b.loader.static))
			if err != nil {
				return nil, err
			}
			expect.Message = msg
		}
		c = expect

	default:
		return nil, fmt.Errorf("unknown constraint type %q", desc.Type)
	}

	if err := constraint.Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *constraintBuilder) keyFields(location string, descs []KeyFieldDescription) ([]constraint.KeyField, error) {
	fields := make([]constraint.KeyField, 0, len(descs))
	for i, kf := range descs {
		target, err := b.compile(fmt.Sprintf("%s key-fields[%d]", location, i), kf.Target)
		if err != nil {
			return nil, err
		}
		field := constraint.KeyField{Target: target, Remarks: kf.Remarks}
		if kf.Pattern != "" {
			pattern, err := constraint.NewPattern(kf.Pattern)
			if err != nil {
				return nil, err
			}
			field.Pattern = pattern
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// attach builds descs and adds them to def, collecting every failure
func (b *constraintBuilder) attach(def *model.Definition, descs []ConstraintDescription) []error {
	var errs []error
	for i, desc := range descs {
		location := fmt.Sprintf("%s constraints[%d]", def, i)
		if desc.ID != "" {
			location = fmt.Sprintf("%s constraint '%s'", def, desc.ID)
		}
		c, err := b.build(location, desc)
		if err == nil {
			err = def.AddConstraint(c)
		}
		if err != nil {
			errs = append(errs, &DescriptionError{File: b.file, Location: location, Err: err})
		}
	}
	return errs
}

// attachTargeted resolves each target definition by kind and name. The kind
// defaults to assembly.
func (b *constraintBuilder) attachTargeted(schema *model.Schema, targets []TargetedConstraints) []error {
	var errs []error
	for i, t := range targets {
		kind, err := ParseKind(t.Kind)
		if err != nil {
			errs = append(errs, &DescriptionError{File: b.file, Location: fmt.Sprintf("targets[%d]", i), Err: err})
			continue
		}
		def, ok := schema.Lookup(kind, t.Definition)
		if !ok {
			errs = append(errs, &DescriptionError{
				File:     b.file,
				Location: fmt.Sprintf("targets[%d]", i),
				Err:      fmt.Errorf("%w: %s %q", ErrUnknownDefinition, kind, t.Definition),
			})
			continue
		}
		errs = append(errs, b.attach(def, t.Constraints)...)
	}
	return errs
}

// ParseKind maps a definition kind name to its model.Kind. An empty name
// means assembly.
func ParseKind(name string) (model.Kind, error) {
	switch name {
	case "", "assembly":
		return model.KindAssembly, nil
	case "field":
		return model.KindField, nil
	case "flag":
		return model.KindFlag, nil
	default:
		return 0, fmt.Errorf("unknown definition kind %q", name)
	}
}

// LoadConstraints reads an external constraint set and attaches its
// constraints to the definitions of schema with SourceExternal provenance
func (l *Loader) LoadConstraints(path string, schema *model.Schema) error {
	value, _, err := readFile(path)
	if err != nil {
		return err
	}
	return l.applyConstraints(path, value, schema)
}

// ParseConstraints is LoadConstraints for in-memory data
func (l *Loader) ParseConstraints(name string, data []byte, format Format, schema *model.Schema) error {
	value, err := decode(data, format)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return l.applyConstraints(name, value, schema)
}

func (l *Loader) applyConstraints(file string, value any, schema *model.Schema) error {
	var set ConstraintSetDescription
	if err := decodeChecked(file, shapeConstraintSet, value, &set); err != nil {
		return err
	}
	b := &constraintBuilder{loader: l, file: file, source: constraint.SourceExternal}
	if err := errors.Join(b.attachTargeted(schema, set.Targets)...); err != nil {
		return err
	}
	l.logger.Debug("loaded constraint set",
		zap.String("file", file),
		zap.String("name", set.Name),
		zap.Int("targets", len(set.Targets)))
	return nil
}
