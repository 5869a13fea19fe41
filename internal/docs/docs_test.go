package docs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/datatype"
	"github.com/metaschema-go/metaschema/internal/loader"
	"github.com/metaschema-go/metaschema/internal/model"
	"github.com/metaschema-go/metaschema/internal/validation"
)

func loadCatalog(t *testing.T) *model.Schema {
	t.Helper()
	schema, err := loader.New().LoadSchema("../loader/testdata/catalog.yaml")
	require.NoError(t, err)
	return schema
}

func findDefinition(t *testing.T, doc *Documentation, kind, name string) *DefinitionDoc {
	t.Helper()
	for _, d := range doc.Definitions {
		if d.Kind == kind && d.Name == name {
			return d
		}
	}
	t.Fatalf("definition %s %s not documented", kind, name)
	return nil
}

func TestExtract(t *testing.T) {
	doc := NewExtractor(&Config{}).Extract(loadCatalog(t), "")

	assert.Equal(t, "catalog", doc.Title)
	assert.Equal(t, "http://example.com/ns/catalog", doc.Namespace)

	var order []string
	for _, d := range doc.Definitions {
		order = append(order, d.Kind+" "+d.Name)
	}
	assert.Equal(t, []string{
		"assembly catalog", "assembly control",
		"field ref", "field title", "field weight",
		"flag id", "flag status",
	}, order)

	catalog := findDefinition(t, doc, "assembly", "catalog")
	assert.Equal(t, "catalog", catalog.RootName)
	assert.Nil(t, catalog.Example)
	require.Len(t, catalog.Model, 3)
	control := catalog.Model[2]
	assert.Equal(t, "control", control.Name)
	assert.Equal(t, "controls", control.JSONName)
	assert.Equal(t, "0..*", control.Occurs)
	assert.Equal(t, "controls (singleton-or-list)", control.GroupAs)
	assert.Equal(t, "1", catalog.Model[0].Occurs)

	require.Len(t, catalog.Constraints, 3)
	assert.Equal(t, "index `controls` keyed by `@id`", catalog.Constraints[0].Detail)
	assert.Equal(t, "key `.` in index `controls`", catalog.Constraints[1].Detail)
	assert.Equal(t, "occurs 1..*", catalog.Constraints[2].Detail)

	status := findDefinition(t, doc, "flag", "status")
	require.Len(t, status.Constraints, 1)
	assert.Equal(t, "values `draft`, `final`", status.Constraints[0].Detail)
	assert.Equal(t, []string{"assembly-control.md"}, status.UsedBy)

	title := findDefinition(t, doc, "field", "title")
	assert.Equal(t, "Title", title.Title())
	assert.Equal(t, []string{"assembly-catalog.md", "assembly-control.md"}, title.UsedBy)

	weight := findDefinition(t, doc, "assembly", "control").Constraints[0]
	assert.Equal(t, "weight", weight.Target)
	assert.Equal(t, "error", weight.Level)
	assert.Equal(t, "test `. > 0`, message \"Weight of {../@id} must be positive\"", weight.Detail)
}

func TestFormatOccurs(t *testing.T) {
	tests := []struct {
		min, max int
		expected string
	}{
		{0, 1, "0..1"},
		{1, 1, "1"},
		{0, model.Unbounded, "0..*"},
		{2, 5, "2..5"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatOccurs(tt.min, tt.max))
	}
}

func TestGenerateForType_Valid(t *testing.T) {
	registry := datatype.Default()
	for _, name := range registry.Names() {
		t.Run(name, func(t *testing.T) {
			_, err := registry.MustLookup(name).ParseValue(GenerateForType(name))
			assert.NoError(t, err)
		})
	}
}

func TestExample_IsValidDocument(t *testing.T) {
	schema := loadCatalog(t)
	catalog, ok := schema.Lookup(model.KindAssembly, "catalog")
	require.True(t, ok)

	example := NewExampleGenerator().GenerateForDefinition(catalog)
	data, err := json.Marshal(example)
	require.NoError(t, err)

	doc, err := loader.New().ParseDocument("example.json", data, loader.FormatJSON, schema, nil)
	require.NoError(t, err, string(data))

	collector, err := validation.Run(doc)
	require.NoError(t, err)
	for _, f := range collector.Findings() {
		assert.Less(t, f.Level, constraint.LevelError, f.String())
	}
	assert.True(t, collector.IsPassing())
}

func TestExample_FieldWithFlags(t *testing.T) {
	schema := model.NewSchema("notes")
	str := datatype.Default().MustLookup(datatype.String)
	lang, err := schema.AddFlag("lang", str)
	require.NoError(t, err)
	note, err := schema.AddField("note", str)
	require.NoError(t, err)
	_, err = note.AddFlagInstance(lang)
	require.NoError(t, err)

	example := NewExampleGenerator().GenerateForDefinition(note)
	assert.Equal(t, map[string]any{"lang": "example", note.JSONValueKey(): "example"}, example)
}

func TestExample_Recursive(t *testing.T) {
	schema := model.NewSchema("outline")
	part, err := schema.AddAssembly("part", model.WithRootName("part"))
	require.NoError(t, err)
	_, err = part.AddModelInstance(part, model.Occurs(0, model.Unbounded), model.WithGroupAs("parts", model.GroupAsList))
	require.NoError(t, err)

	example := NewExampleGenerator().GenerateForDefinition(part)
	assert.Equal(t, map[string]any{"part": map[string]any{}}, example)
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	files, err := Generate(loadCatalog(t), &Config{Title: "Catalog Model", OutputDir: dir, Examples: true})
	require.NoError(t, err)
	assert.Len(t, files, 8)

	index, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "# Catalog Model\n")
	assert.Contains(t, string(index), "**Namespace:** `http://example.com/ns/catalog`")
	assert.Contains(t, string(index), "- `catalog`: [catalog](assembly-catalog.md)")
	assert.Contains(t, string(index), "## Assemblies")
	assert.Contains(t, string(index), "| [`title`](field-title.md) | Title | 0 |")

	page, err := os.ReadFile(filepath.Join(dir, "assembly-catalog.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "- **Root name:** `catalog`")
	assert.Contains(t, string(page), "| `control` | [assembly control](assembly-control.md) | `controls` | 0..* | controls (singleton-or-list) |")
	assert.Contains(t, string(page), "| control-index | index | error | `control` | index `controls` keyed by `@id` |")
	assert.Contains(t, string(page), "## Example\n\n```json\n{\n  \"catalog\": {")

	page, err = os.ReadFile(filepath.Join(dir, "flag-status.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "- **Data type:** `string`")
	assert.Contains(t, string(page), "- [assembly-control](assembly-control.md)")
	assert.NotContains(t, string(page), "## Example")
}

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, `a \| b`, escapeCell("a | b"))
}
