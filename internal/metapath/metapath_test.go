package metapath

import (
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

func evaluate(t *testing.T, text string, focus item.Item) *item.Sequence {
	t.Helper()
	expr, err := Compile(text)
	require.NoError(t, err, "compile %q", text)
	result, err := expr.Evaluate(nil, focus)
	require.NoError(t, err, "evaluate %q", text)
	return result
}

func evaluateError(t *testing.T, text string, focus item.Item) error {
	t.Helper()
	expr, err := Compile(text)
	require.NoError(t, err, "compile %q", text)
	_, err = expr.Evaluate(nil, focus)
	require.Error(t, err, "evaluate %q", text)
	return err
}

// lexicals renders a result as the lexical forms of its atomized items
func lexicals(t *testing.T, seq *item.Sequence) []string {
	t.Helper()
	atomics, err := item.AtomizeSequence(seq)
	require.NoError(t, err)
	result := make([]string, len(atomics))
	for i, a := range atomics {
		result[i] = a.String()
	}
	return result
}

func TestEvaluate_Literals(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"'abc'", []string{"abc"}},
		{"42", []string{"42"}},
		{"1.50", []string{"1.50"}},
		{"(1, 'a', 2.5)", []string{"1", "a", "2.5"}},
		{"()", []string{}},
		{"((1, 2), (), 3)", []string{"1", "2", "3"}},
		{"1e3", []string{"1000"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, lexicals(t, evaluate(t, tt.input, nil)))
		})
	}
}

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"10 - 4 - 3", "3"},
		{"7 div 2", "3"},
		{"-7 div 2", "-3"},
		{"7 idiv -2", "-3"},
		{"7.5 div 2", "3"},
		{"7 mod 3", "1"},
		{"-7 mod 2", "-1"},
		{"2 * 1.5", "3.0"},
		{"-(3)", "-3"},
		{"12345678901234567890123456789012345678 + 1", "12345678901234567890123456789012345679"},
		{"12345678901234567890123456789012345678 idiv 2", "6172839450617283945061728394506172839"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, []string{tt.expected}, lexicals(t, evaluate(t, tt.input, nil)))
		})
	}
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	for _, input := range []string{"7 div 0", "7 idiv 0", "7 mod 0"} {
		t.Run(input, func(t *testing.T) {
			err := evaluateError(t, input, nil)
			assert.True(t, errors.Is(err, ErrDivisionByZero))
			assert.True(t, errors.Is(err, item.ErrDivisionByZero))

			var evalErr *EvaluationError
			require.True(t, errors.As(err, &evalErr))
			assert.Equal(t, cerrors.ErrDivisionByZero, evalErr.Code)
		})
	}
}

func TestEvaluate_EmptyPropagation(t *testing.T) {
	inputs := []string{
		"() + 1",
		"1 - ()",
		"() * ()",
		"() div 2",
		"2 div ()",
		"() mod 2",
		"-()",
		"() eq 1",
		"1 lt ()",
		"() = 1",
		"(1, 2) != ()",
		"//missing = 'x'",
	}

	root := catalogTree()
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			result := evaluate(t, input, root)
			assert.True(t, result.IsEmpty())
			assert.True(t, result.Equal(item.Empty()))
		})
	}
}

func TestEvaluate_Comparisons(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"(1, 2, 3) = (2, 4)", true},
		{"(1, 3) = (2, 4)", false},
		{"(1, 2) != (1, 2)", true},
		{"1 eq 1.0", true},
		{"'b' gt 'a'", true},
		{"'10' = 10", true},
		{"2 < 10", true},
		{"'2' < '10'", false},
		{"true() eq true()", true},
		{"'2024-01-02' cast as date gt '2024-01-01' cast as date", true},
		{"('a', 'b') = 'b'", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := evaluate(t, tt.input, nil)
			assert.True(t, result.Equal(item.Singleton(item.NewBoolean(tt.expected))))
		})
	}
}

func TestEvaluate_ValueComparisonRequiresSingletons(t *testing.T) {
	err := evaluateError(t, "(1, 2, 3) eq (2, 4)", nil)
	assert.True(t, errors.Is(err, ErrCardinality))
}

func TestEvaluate_IncomparableValues(t *testing.T) {
	err := evaluateError(t, "true() = 1", nil)
	assert.True(t, errors.Is(err, ErrNotComparable))

	err = evaluateError(t, "'abc' = 1", nil)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestEvaluate_BooleanConnectives(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true() and false()", false},
		{"true() or false()", true},
		{"1 and 'x'", true},
		{"0 or ''", false},
		{"() or (1)", true},
		{"not(())", true},
		{"boolean('')", false},
		{"exists(())", false},
		{"empty(())", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := evaluate(t, tt.input, nil)
			assert.Equal(t, []string{map[bool]string{true: "true", false: "false"}[tt.expected]}, lexicals(t, result))
		})
	}

	err := evaluateError(t, "boolean((1, 2))", nil)
	assert.True(t, errors.Is(err, ErrInvalidBooleanValue))

	err = evaluateError(t, "false() and (1, 2)", nil)
	assert.True(t, errors.Is(err, ErrInvalidBooleanValue), "every operand is evaluated")
}

func TestEvaluate_Paths(t *testing.T) {
	root := catalogTree()

	tests := []struct {
		input    string
		expected []string
	}{
		{"/catalog/@id", []string{"cat"}},
		{"catalog/group/@id", []string{"g1", "g2"}},
		{"//control/@id", []string{"ac-1", "ac-2", "cm-1"}},
		{"//control[@id = 'ac-2']/title", []string{"Audit"}},
		{"catalog/group[2]/@id", []string{"g2"}},
		{"catalog/group[last()]/@id", []string{"g2"}},
		{"catalog/group[1.0]/@id", []string{"g1"}},
		{"//control[position() = 2]/@id", []string{"ac-2"}},
		{"(//control)[position() = 2]/@id", []string{"ac-2"}},
		{"(//control)[3]/@id", []string{"cm-1"}},
		{"//control[weight]/@id", []string{"cm-1"}},
		{"catalog/*/@id", []string{"g1", "g2"}},
		{"catalog/group[1]/control[1]/@*", []string{"ac-1"}},
		{"//@id", []string{"cat", "g1", "ac-1", "ac-2", "g2", "cm-1"}},
		{"catalog/group/control/../@id", []string{"g1", "g2"}},
		{"//title/string()", []string{"Access", "Audit", "Config"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, lexicals(t, evaluate(t, tt.input, root)))
		})
	}
}

func TestEvaluate_RelativeToNode(t *testing.T) {
	root := catalogTree()
	group := root.children[0].children[1]
	control := group.children[0]

	assert.Equal(t, []string{"g2"}, lexicals(t, evaluate(t, "../@id", control)))
	assert.Equal(t, []string{"cm-1"}, lexicals(t, evaluate(t, "@id", control)))
	assert.Equal(t, []string{"cat"}, lexicals(t, evaluate(t, "/catalog/@id", control)))

	result := evaluate(t, "/", control)
	assert.True(t, result.Equal(item.Singleton(root)))

	result = evaluate(t, "..", root)
	assert.True(t, result.IsEmpty())
}

func TestEvaluate_UnionRemovesDuplicates(t *testing.T) {
	root := catalogTree()
	assert.Equal(t, []string{"2"}, lexicals(t, evaluate(t, "count(catalog/group | catalog/group[1])", root)))
	assert.Equal(t, []string{"2"}, lexicals(t, evaluate(t, "count(//control/..)", root)))

	err := evaluateError(t, "catalog | 1", root)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestEvaluate_DocumentOrder(t *testing.T) {
	root := catalogTree()

	tests := []struct {
		input    string
		expected []string
	}{
		{"//control[2]/@id | //control[1]/@id", []string{"ac-1", "ac-2", "cm-1"}},
		{"(catalog/group[2] union catalog/group[1] | catalog)[1]/@id", []string{"cat"}},
		{"(catalog/group[2] | catalog/group[1])[1]/@id", []string{"g1"}},
		{"//control/(title | @id)", []string{"ac-1", "Access", "ac-2", "Audit", "cm-1", "Config"}},
		{"catalog/(group[2], group[1])/@id", []string{"g1", "g2"}},
		{"((//title, //@id)/..)[1]/@id", []string{"cat"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, lexicals(t, evaluate(t, tt.input, root)))
		})
	}
}

func TestEvaluate_Focus(t *testing.T) {
	err := evaluateError(t, ".", nil)
	assert.True(t, errors.Is(err, ErrUndefinedFocus))

	err = evaluateError(t, "title", nil)
	assert.True(t, errors.Is(err, ErrUndefinedFocus))

	err = evaluateError(t, "position()", nil)
	assert.True(t, errors.Is(err, ErrUndefinedFocus))

	err = evaluateError(t, "'x'/title", nil)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestEvaluate_AtomizingValuelessNode(t *testing.T) {
	root := catalogTree()
	err := evaluateError(t, "catalog = 'x'", root)
	assert.True(t, errors.Is(err, ErrNotAtomizable))
	assert.True(t, errors.Is(err, item.ErrNoValue))
}

func TestEvaluate_Cast(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"'12' cast as integer", []string{"12"}},
		{"3.9 cast as integer", []string{"3"}},
		{"1 cast as boolean", []string{"true"}},
		{"('2024-01-02T10:00:00Z' cast as date-time) cast as date", []string{"2024-01-02Z"}},
		{"() cast as integer?", []string{}},
		{"'5' cast as positive-integer", []string{"5"}},
		{"'f47ac10b-58cc-4372-a567-0e02b2c3d479' cast as uuid", []string{"f47ac10b-58cc-4372-a567-0e02b2c3d479"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, lexicals(t, evaluate(t, tt.input, nil)))
		})
	}

	err := evaluateError(t, "'x' cast as integer", nil)
	assert.True(t, errors.Is(err, ErrInvalidCast))

	err = evaluateError(t, "'1e3' cast as decimal", nil)
	assert.True(t, errors.Is(err, ErrInvalidCast))

	err = evaluateError(t, "'0' cast as positive-integer", nil)
	assert.True(t, errors.Is(err, ErrInvalidCast))

	err = evaluateError(t, "() cast as integer", nil)
	assert.True(t, errors.Is(err, ErrCardinality))
}

func TestFunctions(t *testing.T) {
	root := catalogTree()
	control := root.children[0].children[0].children[0]

	tests := []struct {
		input    string
		focus    item.Item
		expected []string
	}{
		{"exists(//control)", root, []string{"true"}},
		{"count(//control)", root, []string{"3"}},
		{"count(())", nil, []string{"0"}},
		{"string(@id)", control, []string{"ac-1"}},
		{"string(())", nil, []string{""}},
		{"data(title)", control, []string{"Access"}},
		{"concat('a', 1, (), 'b')", nil, []string{"a1b"}},
		{"contains('metaschema', 'schema')", nil, []string{"true"}},
		{"contains((), '')", nil, []string{"true"}},
		{"starts-with(@id, 'ac')", control, []string{"true"}},
		{"ends-with(@id, '-2')", control, []string{"false"}},
		{"string-length('héllo')", nil, []string{"5"}},
		{"title/string-length()", control, []string{"6"}},
		{"upper-case('abc')", nil, []string{"ABC"}},
		{"lower-case(())", nil, []string{""}},
		{"normalize-space('  a   b ')", nil, []string{"a b"}},
		{"matches(@id, '^ac-\\d+$')", control, []string{"true"}},
		{"matches('ABC', 'b', 'i')", nil, []string{"true"}},
		{"matches('ABC', 'b')", nil, []string{"false"}},
		{"sum((1, 2.5))", nil, []string{"3.5"}},
		{"sum(())", nil, []string{"0"}},
		{"sum(('1', 2))", nil, []string{"3"}},
		{"static-base-uri()", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, lexicals(t, evaluate(t, tt.input, tt.focus)))
		})
	}
}

func TestFunctions_ArgumentErrors(t *testing.T) {
	err := evaluateError(t, "upper-case(('a', 'b'))", nil)
	assert.True(t, errors.Is(err, ErrCardinality))

	err = evaluateError(t, "matches('x', '(')", nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	err = evaluateError(t, "matches('x', 'x', 'q')", nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	err = evaluateError(t, "sum(true())", nil)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestStaticBaseURI(t *testing.T) {
	base, err := url.Parse("https://example.com/catalog.json")
	require.NoError(t, err)

	static := NewStaticContext().WithBaseURI(base)
	expr, err := Compile("static-base-uri()", WithStaticContext(static))
	require.NoError(t, err)

	result, err := expr.Evaluate(NewDynamicContext(static), nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, "https://example.com/catalog.json", result.First().(item.AtomicItem).String())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		input      string
		code       string
		suggestion string
	}{
		{"exist(.)", cerrors.ErrUndefinedFunction, "exists"},
		{"exists()", cerrors.ErrWrongArgumentCount, ""},
		{"concat('a')", cerrors.ErrWrongArgumentCount, ""},
		{". cast as integr", cerrors.ErrUndefinedType, "integer"},
		{"count(a", cerrors.ErrExpectedParen, ""},
		{"a = = b", cerrors.ErrExpectedExpression, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Compile(tt.input, WithSource("test"))
			require.Error(t, err)

			var compileErr *CompileError
			require.True(t, errors.As(err, &compileErr))
			first := compileErr.Errors.First()
			require.NotNil(t, first)
			assert.Equal(t, tt.code, first.Code)
			assert.Equal(t, "test", first.Location.Source)
			assert.Equal(t, tt.input, first.Context.SourceLine)

			if tt.suggestion != "" {
				require.NotNil(t, first.Suggestion)
				assert.Equal(t, tt.suggestion, first.Suggestion.NewCode)
			}
		})
	}

	assert.Panics(t, func() { MustCompile("exists(") })
}

func TestFunctionLibrary(t *testing.T) {
	lib := DefaultFunctions()

	fn, ok := lib.Lookup("exists", 1)
	require.True(t, ok)
	assert.Equal(t, "exists($arg as item()*) as boolean", fn.Signature())
	assert.True(t, fn.Deterministic)

	_, ok = lib.Lookup("exists", 2)
	assert.False(t, ok)

	concat, ok := lib.Lookup("concat", 5)
	require.True(t, ok)
	assert.True(t, concat.Variadic)

	stringZero, ok := lib.Lookup("string", 0)
	require.True(t, ok)
	assert.True(t, stringZero.FocusDependent)

	baseURI, ok := lib.Lookup("static-base-uri", 0)
	require.True(t, ok)
	assert.True(t, baseURI.ContextDependent)

	custom := lib.With(&Function{
		Name:       "twice",
		Parameters: []Parameter{{Name: "arg", Type: NumericArgument, Occurrence: One}},
		ReturnType: "numeric",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			a := args[0].First().(item.AtomicItem)
			result, err := item.Arithmetic(item.OpMultiply, a, item.NewInteger(2))
			if err != nil {
				return nil, err
			}
			return item.Singleton(result), nil
		},
	})
	_, ok = lib.Lookup("twice", 1)
	assert.False(t, ok, "With must not modify the receiver")

	static := NewStaticContext()
	static.Functions = custom
	expr, err := Compile("twice(21)", WithStaticContext(static))
	require.NoError(t, err)
	result, err := expr.Evaluate(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, lexicals(t, result))
}

func TestFormat_PreservesEvaluation(t *testing.T) {
	root := catalogTree()
	inputs := []string{
		"//control[@id='ac-2']/title",
		"count( catalog/group/control )+1",
		"catalog/group[ last() ]/@id",
		"(//control)[2]/@id | //control[weight]/@id",
		"-7 div 2 * 3",
		"not(exists(//missing)) and 'a'<'b'",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			original := MustCompile(input)
			reparsed := MustCompile(original.String())

			want, err := original.Evaluate(nil, root)
			require.NoError(t, err)
			got, err := reparsed.Evaluate(nil, root)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "%q vs %q", input, original.String())
		})
	}
}

func TestExpression_ConcurrentEvaluation(t *testing.T) {
	expr := MustCompile("count(//control[matches(@id, '^[a-z]+-\\d$')])")
	root := catalogTree()

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := expr.EvaluateString(nil, root)
			if err == nil {
				results[i] = s
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "3", r)
	}
}

func TestExpression_Helpers(t *testing.T) {
	root := catalogTree()

	ok, err := MustCompile("exists(//control)").EvaluateBoolean(nil, root)
	require.NoError(t, err)
	assert.True(t, ok)

	nodes, err := MustCompile("//control").EvaluateNodes(nil, root)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
	assert.Equal(t, "/catalog/group/control", nodes[0].Path())

	_, err = MustCompile("1").EvaluateNodes(nil, root)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	s, err := MustCompile("//missing").EvaluateString(nil, root)
	require.NoError(t, err)
	assert.Empty(t, s)
}
