package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/datatype"
	"github.com/metaschema-go/metaschema/internal/metapath"
)

// catalogSchema builds catalog -> group* -> (group*, control*), with group
// recursive
func catalogSchema(t *testing.T) *Schema {
	t.Helper()
	s := NewSchema("catalog")
	token := datatype.Default().MustLookup(datatype.Token)

	id, err := s.AddFlag("id", token)
	require.NoError(t, err)
	title, err := s.AddField("title", nil)
	require.NoError(t, err)
	catalog, err := s.AddAssembly("catalog", WithRootName("catalog"))
	require.NoError(t, err)
	group, err := s.AddAssembly("group")
	require.NoError(t, err)
	control, err := s.AddAssembly("control")
	require.NoError(t, err)

	for _, def := range []*Definition{catalog, group, control} {
		_, err = def.AddFlagInstance(id, Required())
		require.NoError(t, err)
	}
	_, err = catalog.AddModelInstance(group, Occurs(0, Unbounded), WithGroupAs("groups", GroupAsList))
	require.NoError(t, err)
	_, err = group.AddModelInstance(title, Required())
	require.NoError(t, err)
	_, err = group.AddModelInstance(group, Occurs(0, Unbounded), WithGroupAs("groups", GroupAsList))
	require.NoError(t, err)
	_, err = group.AddModelInstance(control, Occurs(0, Unbounded), WithGroupAs("controls", GroupAsSingletonOrList))
	require.NoError(t, err)
	_, err = control.AddModelInstance(title, Required())
	require.NoError(t, err)
	return s
}

func TestSchema_Definitions(t *testing.T) {
	s := catalogSchema(t)

	assert.Len(t, s.Definitions(), 5)
	assert.Equal(t, []string{"catalog", "control", "group"}, s.Names(KindAssembly))
	assert.Equal(t, []string{"title"}, s.Names(KindField))

	group, ok := s.Lookup(KindAssembly, "group")
	require.True(t, ok)
	assert.Same(t, group, s.Definition(group.ID()))
	assert.Nil(t, s.Definition(DefID(99)))

	_, ok = s.Lookup(KindField, "group")
	assert.False(t, ok)

	roots := s.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "catalog", roots[0].RootName())

	root, ok := s.Root("catalog")
	require.True(t, ok)
	assert.True(t, root.IsRoot())
	assert.False(t, group.IsRoot())
}

func TestSchema_AddErrors(t *testing.T) {
	s := NewSchema("test")
	_, err := s.AddAssembly("a")
	require.NoError(t, err)

	_, err = s.AddAssembly("a")
	assert.True(t, errors.Is(err, ErrDuplicateDefinition))

	_, err = s.AddField("a", nil)
	assert.NoError(t, err, "names are scoped by kind")

	_, err = s.AddAssembly("")
	assert.Error(t, err)

	_, err = s.AddField("f", nil, WithRootName("f"))
	assert.Error(t, err)
}

func TestDefinition_Defaults(t *testing.T) {
	s := NewSchema("test")
	f, err := s.AddField("remarks", nil, WithUseName("note"), WithFormalName("Remarks"), WithDescription("Free text"))
	require.NoError(t, err)

	assert.Equal(t, datatype.String, f.DataType().Name())
	assert.Equal(t, "note", f.EffectiveName())
	assert.Equal(t, "remarks", f.Name())
	assert.Equal(t, "Remarks", f.FormalName())
	assert.Equal(t, "Free text", f.Description())
	assert.Equal(t, "STRVALUE", f.JSONValueKey())
	assert.Equal(t, "field remarks", f.String())

	n, err := s.AddField("weight", datatype.Default().MustLookup(datatype.Integer), WithJSONValueKey("amount"))
	require.NoError(t, err)
	assert.Equal(t, "amount", n.JSONValueKey())
}

func TestInstances(t *testing.T) {
	s := catalogSchema(t)
	group, _ := s.Lookup(KindAssembly, "group")

	require.Len(t, group.FlagInstances(), 1)
	require.Len(t, group.ModelInstances(), 3)

	controls, ok := group.ModelInstance("control")
	require.True(t, ok)
	assert.Equal(t, KindAssembly, controls.Kind())
	assert.True(t, controls.IsMultiple())
	assert.False(t, controls.IsRequired())
	assert.Equal(t, "controls", controls.JSONName())
	assert.Same(t, group, controls.Parent())

	title, ok := group.ModelInstance("title")
	require.True(t, ok)
	assert.True(t, title.IsRequired())
	assert.Equal(t, "title", title.JSONName())

	id, ok := group.FlagInstance("id")
	require.True(t, ok)
	assert.Equal(t, KindFlag, id.Kind())
	assert.Equal(t, 1, id.MaxOccurs())
}

func TestInstance_Errors(t *testing.T) {
	s := NewSchema("test")
	a, _ := s.AddAssembly("a")
	f, _ := s.AddField("f", nil)
	flag, _ := s.AddFlag("x", nil)
	other, _ := NewSchema("other").AddAssembly("b")

	tests := []struct {
		name string
		add  func() (*Instance, error)
	}{
		{"flag as model", func() (*Instance, error) { return a.AddModelInstance(flag) }},
		{"model under field", func() (*Instance, error) { return f.AddModelInstance(a) }},
		{"non flag as flag", func() (*Instance, error) { return a.AddFlagInstance(f) }},
		{"flag under flag", func() (*Instance, error) { return flag.AddFlagInstance(flag) }},
		{"repeated flag", func() (*Instance, error) { return f.AddFlagInstance(flag, Occurs(0, 2)) }},
		{"inverted bounds", func() (*Instance, error) { return a.AddModelInstance(f, Occurs(3, 2)) }},
		{"negative min", func() (*Instance, error) { return a.AddModelInstance(f, Occurs(-1, 1)) }},
		{"foreign schema", func() (*Instance, error) { return a.AddModelInstance(other) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.add()
			assert.True(t, errors.Is(err, ErrInvalidInstance), "got %v", err)
		})
	}

	_, err := a.AddModelInstance(f)
	require.NoError(t, err)
	_, err = a.AddModelInstance(f)
	assert.True(t, errors.Is(err, ErrDuplicateDefinition))

	_, err = a.AddModelInstance(f, WithInstanceName("f2"))
	assert.NoError(t, err)
}

func TestInstance_Values(t *testing.T) {
	s := catalogSchema(t)
	group, _ := s.Lookup(KindAssembly, "group")
	groups, _ := group.ModelInstance("group")
	controls, _ := group.ModelInstance("control")
	title, _ := group.ModelInstance("title")

	value := map[string]any{
		"id":       "g1",
		"title":    "Group",
		"controls": map[string]any{"id": "c1"},
		"groups":   []any{map[string]any{"id": "g2"}},
	}

	v, ok := controls.Value(value)
	require.True(t, ok)
	items, err := controls.ItemValues(v)
	require.NoError(t, err)
	assert.Len(t, items, 1, "singleton-or-list accepts a bare object")

	v, ok = groups.Value(value)
	require.True(t, ok)
	items, err = groups.ItemValues(v)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = groups.ItemValues(map[string]any{"id": "g3"})
	assert.True(t, errors.Is(err, ErrInvalidValue), "list requires an array")

	v, ok = title.Value(value)
	require.True(t, ok)
	items, err = title.ItemValues(v)
	require.NoError(t, err)
	assert.Equal(t, []any{"Group"}, items)

	_, err = title.ItemValues([]any{"a", "b"})
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, ok = groups.Value(map[string]any{})
	assert.False(t, ok)
	_, ok = groups.Value("scalar")
	assert.False(t, ok)

	items, err = groups.ItemValues(nil)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestDefinition_FieldValue(t *testing.T) {
	s := NewSchema("test")
	f, _ := s.AddField("prop", nil)

	v, ok := f.FieldValue("plain")
	assert.True(t, ok)
	assert.Equal(t, "plain", v)

	v, ok = f.FieldValue(map[string]any{"name": "x", "STRVALUE": "wrapped"})
	assert.True(t, ok)
	assert.Equal(t, "wrapped", v)

	_, ok = f.FieldValue(map[string]any{"name": "x"})
	assert.False(t, ok)
	_, ok = f.FieldValue(nil)
	assert.False(t, ok)
}

func TestDefinition_AddConstraint(t *testing.T) {
	s := catalogSchema(t)
	control, _ := s.Lookup(KindAssembly, "control")
	id, _ := s.Lookup(KindFlag, "id")

	key := []constraint.KeyField{{Target: metapath.MustCompile("@id")}}
	unique := &constraint.Unique{KeyFields: key}
	require.NoError(t, control.AddConstraint(unique))
	assert.Equal(t, 1, control.Constraints().Len())

	err := id.AddConstraint(&constraint.Unique{KeyFields: key})
	assert.True(t, errors.Is(err, ErrConstraintNotAllowed))

	err = id.AddConstraint(&constraint.Cardinality{MinOccurs: 1, MaxOccurs: 1})
	assert.True(t, errors.Is(err, ErrConstraintNotAllowed))

	require.NoError(t, id.AddConstraint(&constraint.Matches{Pattern: constraint.MustPattern(`[a-z]+`)}))
	require.NoError(t, id.AddConstraint(&constraint.IndexHasKey{IndexName: "ids", KeyFields: key}))

	err = control.AddConstraint(&constraint.Expect{})
	assert.True(t, errors.Is(err, constraint.ErrInvalidConstraint))
}

func TestDetectCycles(t *testing.T) {
	s := catalogSchema(t)
	cycles := s.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "group -> group", cycles[0].String())

	m := NewSchema("mutual")
	a, _ := m.AddAssembly("a")
	b, _ := m.AddAssembly("b")
	c, _ := m.AddAssembly("c")
	_, err := a.AddModelInstance(b)
	require.NoError(t, err)
	_, err = b.AddModelInstance(a, Occurs(0, 1))
	require.NoError(t, err)
	_, err = b.AddModelInstance(c)
	require.NoError(t, err)

	cycles = m.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "a -> b -> a", cycles[0].String())
	assert.Equal(t, "  Cycle 1: a -> b -> a", FormatCycles(cycles))

	acyclic := NewSchema("acyclic")
	x, _ := acyclic.AddAssembly("x")
	y, _ := acyclic.AddAssembly("y")
	_, err = x.AddModelInstance(y)
	require.NoError(t, err)
	assert.Empty(t, acyclic.DetectCycles())
}

func TestReachable(t *testing.T) {
	s := catalogSchema(t)
	catalog, _ := s.Root("catalog")

	var names []string
	for _, def := range s.Reachable(catalog) {
		names = append(names, def.String())
	}
	assert.Equal(t, []string{"assembly catalog", "flag id", "assembly group", "field title", "assembly control"}, names)
}
