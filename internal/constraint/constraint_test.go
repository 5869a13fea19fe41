package constraint

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaschema-go/metaschema/internal/datatype"
	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"informational", LevelInformational},
		{"info", LevelInformational},
		{"WARNING", LevelWarning},
		{" error ", LevelError},
		{"critical", LevelCritical},
		{"invalid-constraint", LevelInvalidConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}

	_, err := ParseLevel("fatal")
	assert.Error(t, err)

	assert.True(t, LevelError < LevelCritical)
	assert.True(t, LevelCritical < LevelInvalidConstraint)
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "unknown", Level(99).String())
}

func TestKindAndSourceStrings(t *testing.T) {
	assert.Equal(t, "allowed-values", KindAllowedValues.String())
	assert.Equal(t, "index-has-key", KindIndexHasKey.String())
	assert.Equal(t, "external", SourceExternal.String())
	assert.Equal(t, "internal", SourceInternal.String())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "expect constraint 'has-title'",
		Describe(&Expect{Common: Common{ID: "has-title"}}))
	assert.Equal(t, "unique constraint", Describe(&Unique{}))
}

func TestTargetExpression_DefaultsToSelf(t *testing.T) {
	c := &AllowedValues{}
	assert.Equal(t, ".", c.TargetExpression().Text())

	target := metapath.MustCompile("@id")
	c.Target = target
	assert.Same(t, target, c.TargetExpression())
}

func TestValidate(t *testing.T) {
	key := []KeyField{{Target: metapath.MustCompile("@id")}}
	tests := []struct {
		name       string
		constraint Constraint
		wantErr    bool
	}{
		{"allowed values", &AllowedValues{Values: []AllowedValue{{Value: "a"}}}, false},
		{"allowed values only others", &AllowedValues{AllowOthers: true}, false},
		{"allowed values empty", &AllowedValues{}, true},
		{"matches pattern", &Matches{Pattern: MustPattern(`\d+`)}, false},
		{"matches data type", &Matches{DataType: datatype.Default().MustLookup(datatype.UUID)}, false},
		{"matches nothing", &Matches{}, true},
		{"unique", &Unique{KeyFields: key}, false},
		{"unique without keys", &Unique{}, true},
		{"unique key without target", &Unique{KeyFields: []KeyField{{}}}, true},
		{"index", &Index{Name: "ids", KeyFields: key}, false},
		{"index without name", &Index{KeyFields: key}, true},
		{"index has key", &IndexHasKey{IndexName: "ids", KeyFields: key}, false},
		{"index has key without name", &IndexHasKey{KeyFields: key}, true},
		{"cardinality", &Cardinality{MinOccurs: 1, MaxOccurs: Unbounded}, false},
		{"cardinality negative", &Cardinality{MinOccurs: -1, MaxOccurs: 1}, true},
		{"cardinality inverted", &Cardinality{MinOccurs: 2, MaxOccurs: 1}, true},
		{"expect", &Expect{Test: metapath.MustCompile("true()")}, false},
		{"expect without test", &Expect{}, true},
		{"reserved level", &Expect{Common: Common{Level: LevelInvalidConstraint}, Test: metapath.MustCompile("true()")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.constraint)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConstraint))
				return
			}
			assert.NoError(t, err)
		})
	}

	err := Validate(&Index{Name: "ids"})
	assert.True(t, errors.Is(err, ErrNoKeyFields))
}

func TestAllowedValues_Allows(t *testing.T) {
	c := &AllowedValues{Values: []AllowedValue{{Value: "low"}, {Value: "high"}}}
	assert.True(t, c.Allows("low"))
	assert.False(t, c.Allows("medium"))
}

func TestCardinality_Allows(t *testing.T) {
	bounded := &Cardinality{MinOccurs: 1, MaxOccurs: 2}
	assert.False(t, bounded.Allows(0))
	assert.True(t, bounded.Allows(2))
	assert.False(t, bounded.Allows(3))

	open := &Cardinality{MinOccurs: 0, MaxOccurs: Unbounded}
	assert.True(t, open.Allows(1000))
}

func TestPattern(t *testing.T) {
	p := MustPattern(`[a-z]+-\d+`)
	assert.True(t, p.MatchString("ac-1"))
	assert.False(t, p.MatchString("ac-1 extra"))
	assert.Equal(t, `[a-z]+-\d+`, p.String())

	_, err := NewPattern("(")
	assert.Error(t, err)
}

func TestComputeKey(t *testing.T) {
	tests := []struct {
		name     string
		fields   []KeyField
		expected Key
	}{
		{
			name:     "whole value",
			fields:   []KeyField{{Target: metapath.MustCompile(".")}},
			expected: Key{"ac-12"},
		},
		{
			name:     "capture group",
			fields:   []KeyField{{Target: metapath.MustCompile("."), Pattern: MustPattern(`[a-z]+-(\d+)`)}},
			expected: Key{"12"},
		},
		{
			name:     "pattern without group",
			fields:   []KeyField{{Target: metapath.MustCompile("."), Pattern: MustPattern(`ac-\d+`)}},
			expected: Key{"ac-12"},
		},
		{
			name:     "pattern not matching",
			fields:   []KeyField{{Target: metapath.MustCompile("."), Pattern: MustPattern(`\d+`)}},
			expected: Key{""},
		},
		{
			name: "several components",
			fields: []KeyField{
				{Target: metapath.MustCompile("upper-case(.)")},
				{Target: metapath.MustCompile("string-length(.)")},
			},
			expected: Key{"AC-12", "5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ComputeKey(nil, item.NewString("ac-12"), tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, key)
		})
	}
}

func TestComputeKey_MultipleItems(t *testing.T) {
	tests := []struct {
		name     string
		fields   []KeyField
		expected Key
	}{
		{
			name:     "every item joined",
			fields:   []KeyField{{Target: metapath.MustCompile("('b', 'a', 'c')")}},
			expected: Key{"b a c"},
		},
		{
			name:     "pattern applied per item",
			fields:   []KeyField{{Target: metapath.MustCompile("('ac-1', 'x', 'ac-2')"), Pattern: MustPattern(`ac-(\d+)`)}},
			expected: Key{"1 2"},
		},
		{
			name:     "empty items dropped",
			fields:   []KeyField{{Target: metapath.MustCompile("('', 'a')")}, {Target: metapath.MustCompile("()")}},
			expected: Key{"a", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ComputeKey(nil, item.NewString("ac-12"), tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, key)
		})
	}

	first, err := ComputeKey(nil, nil, []KeyField{{Target: metapath.MustCompile("('x', 'y')")}})
	require.NoError(t, err)
	second, err := ComputeKey(nil, nil, []KeyField{{Target: metapath.MustCompile("('x', 'z')")}})
	require.NoError(t, err)
	assert.NotEqual(t, first.Lookup(), second.Lookup())
}

func TestKey(t *testing.T) {
	a := Key{"x", "y"}
	b := Key{"x", "y"}
	c := Key{"xy", ""}
	assert.Equal(t, a.Lookup(), b.Lookup())
	assert.NotEqual(t, a.Lookup(), c.Lookup())
	assert.Equal(t, "{x, y}", a.String())
	assert.True(t, Key{"", ""}.IsEmpty())
	assert.False(t, c.IsEmpty())
}

func TestComputeKey_EvaluationError(t *testing.T) {
	fields := []KeyField{{Target: metapath.MustCompile("@id")}}
	_, err := ComputeKey(nil, item.NewString("not a node"), fields)
	require.Error(t, err)
	var evalErr *metapath.EvaluationError
	assert.True(t, errors.As(err, &evalErr))
}

func TestMessage(t *testing.T) {
	tests := []struct {
		template string
		expected string
	}{
		{"plain text", "plain text"},
		{"value { . } is wrong", "value ac-12 is wrong"},
		{"{upper-case(.)}", "AC-12"},
		{"{ string-length(.) } chars in '{.}'", "5 chars in 'ac-12'"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			msg, err := ParseMessage(tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.template, msg.String())

			rendered, err := msg.Render(nil, item.NewString("ac-12"))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rendered)
		})
	}
}

func TestParseMessage_Errors(t *testing.T) {
	for _, template := range []string{"open { .", "empty {  }", "bad { count( }"} {
		t.Run(template, func(t *testing.T) {
			_, err := ParseMessage(template)
			assert.Error(t, err)
		})
	}
}

func TestSet(t *testing.T) {
	allowed := &AllowedValues{Values: []AllowedValue{{Value: "a"}}}
	expect := &Expect{Test: metapath.MustCompile("true()")}
	index := &Index{Name: "ids", KeyFields: []KeyField{{Target: metapath.MustCompile("@id")}}}

	set, err := NewSet(allowed, expect, index)
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []Constraint{allowed, expect, index}, set.All())
	assert.Equal(t, []*AllowedValues{allowed}, set.AllowedValues())
	assert.Equal(t, []*Expect{expect}, set.Expect())
	assert.Equal(t, []*Index{index}, set.Indexes())
	assert.Empty(t, set.Unique())
	assert.Equal(t, []Constraint{index}, set.OfKind(KindIndex))

	assert.Error(t, set.Add(&Expect{}))
	assert.Error(t, set.Add(nil))
	assert.Equal(t, 3, set.Len())

	var nilSet *Set
	assert.Equal(t, 0, nilSet.Len())
	assert.Empty(t, nilSet.All())
}

func TestSet_ConcurrentReads(t *testing.T) {
	set, err := NewSet(&Expect{Test: metapath.MustCompile("true()")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, set.Expect(), 1)
		}()
	}
	wg.Wait()
}
