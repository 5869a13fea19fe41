package loader

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/datatype"
	"github.com/metaschema-go/metaschema/internal/model"
)

// ErrUnknownDefinition is returned when a reference names no definition
var ErrUnknownDefinition = errors.New("unknown definition")

// LoadSchema reads a schema description file
func (l *Loader) LoadSchema(path string) (*model.Schema, error) {
	value, _, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return l.buildSchema(path, value)
}

// ParseSchema reads a schema description from data. Name is used in error
// messages and expression sources.
func (l *Loader) ParseSchema(name string, data []byte, format Format) (*model.Schema, error) {
	value, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return l.buildSchema(name, value)
}

func (l *Loader) buildSchema(file string, value any) (*model.Schema, error) {
	var desc Description
	if err := decodeChecked(file, shapeDescription, value, &desc); err != nil {
		return nil, err
	}
	schema, err := l.build(file, &desc)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded schema",
		zap.String("file", file),
		zap.String("name", schema.Name),
		zap.Int("definitions", len(schema.Definitions())))
	return schema, nil
}

// build creates every definition first so that instances may reference
// definitions declared later in the file, then wires instances, then
// compiles constraints
func (l *Loader) build(file string, desc *Description) (*model.Schema, error) {
	schema := model.NewSchema(desc.Name)
	schema.Namespace = desc.Namespace

	var errs []error
	fail := func(location string, err error) {
		errs = append(errs, &DescriptionError{File: file, Location: location, Err: err})
	}

	for _, f := range desc.Flags {
		adapter, err := l.adapter(f.Type)
		if err == nil {
			_, err = schema.AddFlag(f.Name, adapter, definitionOptions(f.DefinitionDescription)...)
		}
		if err != nil {
			fail("flag "+f.Name, err)
		}
	}
	for _, f := range desc.Fields {
		adapter, err := l.adapter(f.Type)
		if err == nil {
			opts := definitionOptions(f.DefinitionDescription)
			if f.JSONValueKey != "" {
				opts = append(opts, model.WithJSONValueKey(f.JSONValueKey))
			}
			_, err = schema.AddField(f.Name, adapter, opts...)
		}
		if err != nil {
			fail("field "+f.Name, err)
		}
	}
	for _, a := range desc.Assemblies {
		opts := definitionOptions(a.DefinitionDescription)
		if a.RootName != "" {
			opts = append(opts, model.WithRootName(a.RootName))
		}
		if _, err := schema.AddAssembly(a.Name, opts...); err != nil {
			fail("assembly "+a.Name, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, f := range desc.Fields {
		def, _ := schema.Lookup(model.KindField, f.Name)
		errs = append(errs, flagInstances(file, schema, def, f.Flags)...)
	}
	for _, a := range desc.Assemblies {
		def, _ := schema.Lookup(model.KindAssembly, a.Name)
		errs = append(errs, flagInstances(file, schema, def, a.Flags)...)
		errs = append(errs, modelInstances(file, schema, def, a.Model)...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	b := &constraintBuilder{loader: l, file: file, source: constraint.SourceInternal}
	for _, f := range desc.Flags {
		def, _ := schema.Lookup(model.KindFlag, f.Name)
		errs = append(errs, b.attach(def, f.Constraints)...)
	}
	for _, f := range desc.Fields {
		def, _ := schema.Lookup(model.KindField, f.Name)
		errs = append(errs, b.attach(def, f.Constraints)...)
	}
	for _, a := range desc.Assemblies {
		def, _ := schema.Lookup(model.KindAssembly, a.Name)
		errs = append(errs, b.attach(def, a.Constraints)...)
	}
	errs = append(errs, b.attachTargeted(schema, desc.Constraints)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return schema, nil
}

func (l *Loader) adapter(name string) (*datatype.Adapter, error) {
	if name == "" {
		return nil, nil
	}
	adapter, ok := l.dataTypes().Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown data type %q (known: %s)", name, l.dataTypes().Suggest())
	}
	return adapter, nil
}

func definitionOptions(d DefinitionDescription) []model.DefinitionOption {
	var opts []model.DefinitionOption
	if d.FormalName != "" {
		opts = append(opts, model.WithFormalName(d.FormalName))
	}
	if d.Description != "" {
		opts = append(opts, model.WithDescription(d.Description))
	}
	if d.UseName != "" {
		opts = append(opts, model.WithUseName(d.UseName))
	}
	return opts
}

func flagInstances(file string, schema *model.Schema, parent *model.Definition, refs []FlagReference) []error {
	var errs []error
	for i, ref := range refs {
		location := fmt.Sprintf("%s flags[%d]", parent, i)
		flag, ok := schema.Lookup(model.KindFlag, ref.Ref)
		if !ok {
			errs = append(errs, &DescriptionError{File: file, Location: location,
				Err: fmt.Errorf("%w: flag %q", ErrUnknownDefinition, ref.Ref)})
			continue
		}
		var opts []model.InstanceOption
		if ref.Required {
			opts = append(opts, model.Required())
		}
		if ref.UseName != "" {
			opts = append(opts, model.WithInstanceName(ref.UseName))
		}
		if _, err := parent.AddFlagInstance(flag, opts...); err != nil {
			errs = append(errs, &DescriptionError{File: file, Location: location, Err: err})
		}
	}
	return errs
}

func modelInstances(file string, schema *model.Schema, parent *model.Definition, refs []ModelReference) []error {
	var errs []error
	for i, ref := range refs {
		location := fmt.Sprintf("%s model[%d]", parent, i)
		child, err := modelTarget(schema, ref)
		if err != nil {
			errs = append(errs, &DescriptionError{File: file, Location: location, Err: err})
			continue
		}

		minOccurs, maxOccurs := 0, 1
		if ref.MinOccurs != nil {
			minOccurs = *ref.MinOccurs
		}
		if ref.MaxOccurs != nil {
			maxOccurs = int(*ref.MaxOccurs)
			if maxOccurs < 0 {
				maxOccurs = model.Unbounded
			}
		}
		opts := []model.InstanceOption{model.Occurs(minOccurs, maxOccurs)}
		if ref.UseName != "" {
			opts = append(opts, model.WithInstanceName(ref.UseName))
		}
		if ref.GroupAs != nil {
			behavior, err := model.ParseGroupBehavior(ref.GroupAs.InJSON)
			if err != nil {
				errs = append(errs, &DescriptionError{File: file, Location: location, Err: err})
				continue
			}
			opts = append(opts, model.WithGroupAs(ref.GroupAs.Name, behavior))
		}
		if _, err := parent.AddModelInstance(child, opts...); err != nil {
			errs = append(errs, &DescriptionError{File: file, Location: location, Err: err})
		}
	}
	return errs
}

func modelTarget(schema *model.Schema, ref ModelReference) (*model.Definition, error) {
	var (
		kind model.Kind
		name string
	)
	switch {
	case ref.Assembly != "" && ref.Field != "":
		return nil, errors.New("a model reference names either an assembly or a field, not both")
	case ref.Assembly != "":
		kind, name = model.KindAssembly, ref.Assembly
	case ref.Field != "":
		kind, name = model.KindField, ref.Field
	default:
		return nil, errors.New("a model reference must name an assembly or a field")
	}
	def, ok := schema.Lookup(kind, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownDefinition, kind, name)
	}
	return def, nil
}
