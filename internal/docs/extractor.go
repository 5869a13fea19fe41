package docs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/model"
)

// documentedKinds is the order definitions appear in
var documentedKinds = []model.Kind{model.KindAssembly, model.KindField, model.KindFlag}

// Extractor extracts documentation from a schema
type Extractor struct {
	examples   bool
	exampleGen *ExampleGenerator
}

// NewExtractor creates a new documentation extractor
func NewExtractor(config *Config) *Extractor {
	return &Extractor{
		examples:   config.Examples,
		exampleGen: NewExampleGenerator(),
	}
}

// Extract documents every definition of schema, assemblies first, each
// kind sorted by name
func (e *Extractor) Extract(schema *model.Schema, title string) *Documentation {
	if title == "" {
		title = schema.Name
	}
	doc := &Documentation{
		Title:     title,
		Schema:    schema.Name,
		Namespace: schema.Namespace,
	}

	usedBy := make(map[*model.Definition][]string)
	for _, def := range schema.Definitions() {
		for _, inst := range append(append([]*model.Instance{}, def.FlagInstances()...), def.ModelInstances()...) {
			child := inst.Definition()
			page := pageName(def.Kind().String(), def.Name())
			if !contains(usedBy[child], page) {
				usedBy[child] = append(usedBy[child], page)
			}
		}
	}

	for _, kind := range documentedKinds {
		for _, name := range schema.Names(kind) {
			def, _ := schema.Lookup(kind, name)
			d := e.extractDefinition(def)
			d.UsedBy = usedBy[def]
			sort.Strings(d.UsedBy)
			doc.Definitions = append(doc.Definitions, d)
		}
	}
	return doc
}

func (e *Extractor) extractDefinition(def *model.Definition) *DefinitionDoc {
	d := &DefinitionDoc{
		Kind:        def.Kind().String(),
		Name:        def.Name(),
		FormalName:  def.FormalName(),
		Description: cleanDocumentation(def.Description()),
		RootName:    def.RootName(),
	}
	if dt := def.DataType(); dt != nil {
		d.DataType = dt.Name()
	}
	if def.Kind() == model.KindField && len(def.FlagInstances()) > 0 {
		d.JSONValueKey = def.JSONValueKey()
	}

	for _, inst := range def.FlagInstances() {
		d.Flags = append(d.Flags, extractInstance(inst))
	}
	for _, inst := range def.ModelInstances() {
		d.Model = append(d.Model, extractInstance(inst))
	}
	for _, c := range def.Constraints().All() {
		d.Constraints = append(d.Constraints, extractConstraint(c))
	}

	if e.examples && def.Kind() != model.KindFlag {
		d.Example = e.exampleGen.GenerateForDefinition(def)
	}
	return d
}

func extractInstance(inst *model.Instance) *InstanceDoc {
	doc := &InstanceDoc{
		Name:       inst.EffectiveName(),
		Kind:       inst.Kind().String(),
		Definition: inst.Definition().Name(),
		JSONName:   inst.JSONName(),
		Occurs:     formatOccurs(inst.MinOccurs(), inst.MaxOccurs()),
		Required:   inst.IsRequired(),
	}
	if group := inst.GroupAs(); group.Name != "" {
		doc.GroupAs = fmt.Sprintf("%s (%s)", group.Name, group.Behavior)
	}
	return doc
}

func extractConstraint(c constraint.Constraint) *ConstraintDoc {
	meta := c.Meta()
	doc := &ConstraintDoc{
		ID:      meta.ID,
		Kind:    c.Kind().String(),
		Level:   meta.Level.String(),
		Source:  meta.Source.String(),
		Target:  meta.TargetExpression().Text(),
		Remarks: cleanDocumentation(meta.Remarks),
	}

	switch v := c.(type) {
	case *constraint.AllowedValues:
		values := make([]string, len(v.Values))
		for i, av := range v.Values {
			values[i] = "`" + av.Value + "`"
		}
		doc.Detail = "values " + strings.Join(values, ", ")
		if v.AllowOthers {
			doc.Detail += " (others allowed)"
		}
	case *constraint.Matches:
		var parts []string
		if v.Pattern != nil {
			parts = append(parts, "pattern `"+v.Pattern.String()+"`")
		}
		if v.DataType != nil {
			parts = append(parts, "datatype "+v.DataType.Name())
		}
		doc.Detail = strings.Join(parts, ", ")
	case *constraint.Index:
		doc.Detail = "index `" + v.Name + "` keyed by " + formatKeys(v.KeyFields)
	case *constraint.Unique:
		doc.Detail = "unique by " + formatKeys(v.KeyFields)
	case *constraint.IndexHasKey:
		doc.Detail = "key " + formatKeys(v.KeyFields) + " in index `" + v.IndexName + "`"
	case *constraint.Cardinality:
		doc.Detail = "occurs " + formatOccurs(v.MinOccurs, v.MaxOccurs)
	case *constraint.Expect:
		doc.Detail = "test `" + v.Test.Text() + "`"
		if v.Message != nil {
			doc.Detail += ", message \"" + v.Message.String() + "\""
		}
	}
	return doc
}

func formatKeys(fields []constraint.KeyField) string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = "`" + f.Target.Text() + "`"
		if f.Pattern != nil {
			keys[i] += " matching `" + f.Pattern.String() + "`"
		}
	}
	return strings.Join(keys, ", ")
}

// formatOccurs renders bounds as "1", "0..1" or "1..*"
func formatOccurs(min, max int) string {
	upper := strconv.Itoa(max)
	if max == model.Unbounded {
		upper = "*"
	}
	if upper == strconv.Itoa(min) {
		return upper
	}
	return strconv.Itoa(min) + ".." + upper
}

// cleanDocumentation collapses whitespace runs and trims the text
func cleanDocumentation(doc string) string {
	return strings.Join(strings.Fields(doc), " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
