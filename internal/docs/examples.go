package docs

import (
	"github.com/metaschema-go/metaschema/internal/datatype"
	"github.com/metaschema-go/metaschema/internal/model"
)

// ExampleGenerator generates example JSON values for definitions. Every
// instance appears once; recursive assemblies are expanded once per path.
type ExampleGenerator struct{}

// NewExampleGenerator creates a new example generator
func NewExampleGenerator() *ExampleGenerator {
	return &ExampleGenerator{}
}

// GenerateForDefinition generates an example value for def. Root
// assemblies are wrapped in an object keyed by their root name, so the
// result is a complete instance document.
func (g *ExampleGenerator) GenerateForDefinition(def *model.Definition) any {
	value := g.generate(def, map[*model.Definition]bool{})
	if def.IsRoot() {
		return map[string]any{def.RootName(): value}
	}
	return value
}

func (g *ExampleGenerator) generate(def *model.Definition, onPath map[*model.Definition]bool) any {
	switch def.Kind() {
	case model.KindFlag:
		return g.generateScalar(def)
	case model.KindField:
		if len(def.FlagInstances()) == 0 {
			return g.generateScalar(def)
		}
		object := g.generateFlags(def)
		object[def.JSONValueKey()] = g.generateScalar(def)
		return object
	}

	onPath[def] = true
	defer delete(onPath, def)

	object := g.generateFlags(def)
	for _, inst := range def.ModelInstances() {
		child := inst.Definition()
		if onPath[child] {
			continue
		}
		value := g.generate(child, onPath)
		if inst.IsMultiple() {
			object[inst.JSONName()] = []any{value}
		} else {
			object[inst.JSONName()] = value
		}
	}
	return object
}

func (g *ExampleGenerator) generateFlags(def *model.Definition) map[string]any {
	object := make(map[string]any, len(def.FlagInstances()))
	for _, inst := range def.FlagInstances() {
		object[inst.JSONName()] = g.generateScalar(inst.Definition())
	}
	return object
}

// generateScalar prefers the first enumerated value of the definition's own
// allowed-values constraint over a sample of its data type
func (g *ExampleGenerator) generateScalar(def *model.Definition) any {
	for _, c := range def.Constraints().AllowedValues() {
		if c.TargetExpression().Text() == "." && len(c.Values) > 0 {
			return c.Values[0].Value
		}
	}
	if def.DataType() == nil {
		return "example"
	}
	return GenerateForType(def.DataType().Name())
}

// GenerateForType returns a valid sample value of the named data type
func GenerateForType(name string) any {
	switch name {
	case datatype.Boolean:
		return true
	case datatype.Integer, datatype.PositiveInteger:
		return 1
	case datatype.NonNegativeInteger:
		return 0
	case datatype.Decimal:
		return 1.5
	case datatype.Date:
		return "2024-01-15"
	case datatype.DateWithTimezone:
		return "2024-01-15Z"
	case datatype.DateTime:
		return "2024-01-15T09:30:00"
	case datatype.DateTimeWithTimezone:
		return "2024-01-15T09:30:00Z"
	case datatype.URI:
		return "https://example.com/"
	case datatype.URIReference:
		return "#example"
	case datatype.UUID:
		return "550e8400-e29b-41d4-a716-446655440000"
	case datatype.EmailAddress:
		return "user@example.com"
	case datatype.Token:
		return "example-token"
	default:
		return "example"
	}
}
