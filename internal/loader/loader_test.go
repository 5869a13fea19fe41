package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/model"
	"github.com/metaschema-go/metaschema/internal/validation"
)

func loadCatalog(t *testing.T) *model.Schema {
	t.Helper()
	schema, err := New().LoadSchema(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	return schema
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
		wantErr  bool
	}{
		{"schema.yaml", FormatYAML, false},
		{"schema.YML", FormatYAML, false},
		{"schema.toml", FormatTOML, false},
		{"doc.json", FormatJSON, false},
		{"doc.xml", FormatUnknown, true},
		{"README", FormatUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, err := FormatOf(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestLoadSchema(t *testing.T) {
	schema := loadCatalog(t)

	assert.Equal(t, "catalog", schema.Name)
	assert.Equal(t, "http://example.com/ns/catalog", schema.Namespace)
	assert.Equal(t, []string{"catalog", "control"}, schema.Names(model.KindAssembly))
	assert.Equal(t, []string{"ref", "title", "weight"}, schema.Names(model.KindField))

	root, ok := schema.Root("catalog")
	require.True(t, ok)

	refs, ok := root.ModelInstance("ref")
	require.True(t, ok)
	assert.Equal(t, model.Unbounded, refs.MaxOccurs())
	assert.Equal(t, "refs", refs.JSONName())
	assert.Equal(t, model.GroupAsList, refs.GroupAs().Behavior)

	controls, ok := root.ModelInstance("control")
	require.True(t, ok)
	assert.Equal(t, model.GroupAsSingletonOrList, controls.GroupAs().Behavior)

	title, ok := root.ModelInstance("title")
	require.True(t, ok)
	assert.True(t, title.IsRequired())
	assert.False(t, title.IsMultiple())

	id, ok := root.FlagInstance("id")
	require.True(t, ok)
	assert.True(t, id.IsRequired())

	weight, ok := schema.Lookup(model.KindField, "weight")
	require.True(t, ok)
	assert.Equal(t, "integer", weight.DataType().Name())

	assert.Equal(t, 3, root.Constraints().Len())
	idx := root.Constraints().Indexes()
	require.Len(t, idx, 1)
	assert.Equal(t, "controls", idx[0].Name)
	assert.Equal(t, constraint.SourceInternal, idx[0].Source)

	card := root.Constraints().Cardinality()
	require.Len(t, card, 1)
	assert.Equal(t, 1, card[0].MinOccurs)
	assert.Equal(t, constraint.Unbounded, card[0].MaxOccurs)

	idFlag, _ := schema.Lookup(model.KindFlag, "id")
	matches := idFlag.Constraints().Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, constraint.LevelWarning, matches[0].Level)
}

func TestParseSchema_Formats(t *testing.T) {
	jsonSchema := `{
		"name": "notes",
		"fields": [{"name": "note", "type": "string"}],
		"assemblies": [{
			"name": "notes",
			"root-name": "notes",
			"model": [{"field": "note", "max-occurs": "unbounded", "group-as": {"name": "items"}}]
		}]
	}`
	tomlSchema := `
name = "notes"

[[fields]]
name = "note"
type = "string"

[[assemblies]]
name = "notes"
root-name = "notes"

[[assemblies.model]]
field = "note"
max-occurs = "unbounded"
group-as = { name = "items" }
`
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"json", jsonSchema, FormatJSON},
		{"toml", tomlSchema, FormatTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := New().ParseSchema(tt.name, []byte(tt.data), tt.format)
			require.NoError(t, err)
			root, ok := schema.Root("notes")
			require.True(t, ok)
			inst, ok := root.ModelInstance("note")
			require.True(t, ok)
			assert.Equal(t, "items", inst.JSONName())
			assert.Equal(t, model.Unbounded, inst.MaxOccurs())
		})
	}
}

func TestParseSchema_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing name", `fields: [{name: title}]`},
		{"unknown property", "name: x\ncolour: blue"},
		{"bad constraint type", "name: x\nflags:\n  - name: id\n    constraints:\n      - type: enum"},
		{"bad occurs", "name: x\nassemblies:\n  - name: a\n    model:\n      - field: f\n        max-occurs: many"},
		{"bad level", "name: x\nflags:\n  - name: id\n    constraints:\n      - type: expect\n        test: 'true()'\n        level: fatal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().ParseSchema("bad.yaml", []byte(tt.data), FormatYAML)
			var shapeErr *ShapeError
			require.True(t, errors.As(err, &shapeErr), "got %v", err)
			assert.NotEmpty(t, shapeErr.Problems)
			assert.Equal(t, "bad.yaml", shapeErr.File)
		})
	}
}

func TestParseSchema_BuildErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		contains string
		is       error
	}{
		{
			name:     "unknown flag reference",
			data:     "name: x\nassemblies:\n  - name: a\n    flags:\n      - ref: nope",
			contains: "assembly a flags[0]",
			is:       ErrUnknownDefinition,
		},
		{
			name:     "unknown model reference",
			data:     "name: x\nassemblies:\n  - name: a\n    model:\n      - assembly: b",
			contains: "assembly a model[0]",
			is:       ErrUnknownDefinition,
		},
		{
			name:     "duplicate definition",
			data:     "name: x\nfields:\n  - name: a\n  - name: a",
			contains: "field a",
			is:       model.ErrDuplicateDefinition,
		},
		{
			name:     "unknown data type",
			data:     "name: x\nflags:\n  - name: a\n    type: colour",
			contains: `unknown data type "colour"`,
		},
		{
			name:     "expression does not compile",
			data:     "name: x\nflags:\n  - name: a\n    constraints:\n      - type: expect\n        id: broken\n        test: '1 +'",
			contains: "flag a constraint 'broken'",
		},
		{
			name:     "constraint kind not allowed on a field",
			data:     "name: x\nfields:\n  - name: a\n    constraints:\n      - type: unique\n        key-fields:\n          - target: '.'",
			contains: "field a constraints[0]",
			is:       model.ErrConstraintNotAllowed,
		},
		{
			name:     "allowed values without values",
			data:     "name: x\nflags:\n  - name: a\n    constraints:\n      - type: allowed-values",
			contains: "flag a constraints[0]",
			is:       constraint.ErrInvalidConstraint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().ParseSchema("bad.yaml", []byte(tt.data), FormatYAML)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadConstraints(t *testing.T) {
	schema := loadCatalog(t)
	require.NoError(t, New().LoadConstraints(filepath.Join("testdata", "extra-constraints.toml"), schema))

	control, _ := schema.Lookup(model.KindAssembly, "control")
	expects := control.Constraints().Expect()
	require.Len(t, expects, 2)
	assert.Equal(t, "has-status", expects[1].ID)
	assert.Equal(t, constraint.SourceExternal, expects[1].Source)
	assert.Equal(t, constraint.LevelCritical, expects[1].Level)

	title, _ := schema.Lookup(model.KindField, "title")
	require.Len(t, title.Constraints().Matches(), 1)
}

func TestLoadConstraints_UnknownTarget(t *testing.T) {
	schema := loadCatalog(t)
	data := "targets:\n  - definition: nowhere\n    constraints:\n      - type: expect\n        test: 'true()'"
	err := New().ParseConstraints("extra.yaml", []byte(data), FormatYAML, schema)
	assert.ErrorIs(t, err, ErrUnknownDefinition)
}

func TestLoadDocument_Valid(t *testing.T) {
	schema := loadCatalog(t)
	doc, err := New().LoadDocument(filepath.Join("testdata", "catalog-valid.json"), schema)
	require.NoError(t, err)
	assert.Equal(t, "file", doc.BaseURI().Scheme)

	collector, err := validation.Run(doc)
	require.NoError(t, err)
	assert.Empty(t, collector.Findings())
	assert.True(t, collector.IsPassing())
}

func TestLoadDocument_Invalid(t *testing.T) {
	schema := loadCatalog(t)
	doc, err := New().LoadDocument(filepath.Join("testdata", "catalog-invalid.yaml"), schema)
	require.NoError(t, err)

	collector, err := validation.Run(doc)
	require.NoError(t, err)
	assert.False(t, collector.IsPassing())

	messages := map[string]string{}
	for _, f := range collector.Findings() {
		messages[f.ConstraintID()] = f.Path + " " + f.Message
	}
	assert.Contains(t, messages["status-values"], "/catalog/control[1]/@status")
	assert.Equal(t, "/catalog/control[1]/weight Weight of ac-1 must be positive", messages["weight-positive"])
	assert.Contains(t, messages["refs-resolve"], "/catalog/ref[2]")
	assert.Len(t, collector.Findings(), 3)
}

func TestLoadDocument_WithExternalConstraints(t *testing.T) {
	schema := loadCatalog(t)
	l := New()
	require.NoError(t, l.LoadConstraints(filepath.Join("testdata", "extra-constraints.toml"), schema))

	doc, err := l.LoadDocument(filepath.Join("testdata", "catalog-valid.json"), schema)
	require.NoError(t, err)
	collector, err := validation.Run(doc)
	require.NoError(t, err)

	require.Equal(t, 1, collector.Len())
	finding := collector.Findings()[0]
	assert.Equal(t, "has-status", finding.ConstraintID())
	assert.Equal(t, "/catalog/control[2]", finding.Path)
	highest, ok := collector.HighestLevel()
	require.True(t, ok)
	assert.Equal(t, constraint.LevelCritical, highest)
}

func TestLoadDocument_Errors(t *testing.T) {
	schema := loadCatalog(t)
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		contains string
	}{
		{"unknown root", "doc.json", `{"profile": {}}`, "no root assembly"},
		{"two roots", "doc.json", `{"catalog": {}, "other": {}}`, "exactly one root property"},
		{"not an object", "doc.yaml", "- a\n- b", "must be an object"},
		{"missing required flag", "doc.json", `{"catalog": {"title": "T"}}`, "id"},
		{"unknown property", "doc.json", `{"catalog": {"id": "ct-1", "title": "T", "colour": "red"}}`, "colour"},
		{"toml instance", "doc.toml", "[catalog]\nid = \"ct-1\"", "JSON or YAML"},
		{"malformed json", "doc.json", `{"catalog": `, "failed to parse JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := New().LoadDocument(path, schema)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestOccurs_UnmarshalJSON(t *testing.T) {
	var o Occurs
	require.NoError(t, o.UnmarshalJSON([]byte(`"unbounded"`)))
	assert.Equal(t, Occurs(-1), o)
	require.NoError(t, o.UnmarshalJSON([]byte(`3`)))
	assert.Equal(t, Occurs(3), o)
	assert.Error(t, o.UnmarshalJSON([]byte(`"many"`)))

	data, err := Occurs(-1).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"unbounded"`, string(data))
}
