package metapath

import (
	"strings"
	"unicode/utf8"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

func anyItems(name string) Parameter {
	return Parameter{Name: name, Type: AnyItem, Occurrence: ZeroOrMore}
}

func optionalString(name string) Parameter {
	return Parameter{Name: name, Type: StringArgument, Occurrence: ZeroOrOne}
}

var defaultFunctions = NewFunctionLibrary(
	&Function{
		Name:          "exists",
		Parameters:    []Parameter{anyItems("arg")},
		ReturnType:    "boolean",
		Deterministic: true,
		Description:   "Returns true if the argument is a non-empty sequence",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			return boolean(!args[0].IsEmpty()), nil
		},
	},
	&Function{
		Name:          "empty",
		Parameters:    []Parameter{anyItems("arg")},
		ReturnType:    "boolean",
		Deterministic: true,
		Description:   "Returns true if the argument is the empty sequence",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			return boolean(args[0].IsEmpty()), nil
		},
	},
	&Function{
		Name:          "not",
		Parameters:    []Parameter{anyItems("arg")},
		ReturnType:    "boolean",
		Deterministic: true,
		Description:   "Returns the negation of the effective boolean value of the argument",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			ebv, err := item.EffectiveBooleanValue(args[0])
			if err != nil {
				return nil, err
			}
			return boolean(!ebv), nil
		},
	},
	&Function{
		Name:          "boolean",
		Parameters:    []Parameter{anyItems("arg")},
		ReturnType:    "boolean",
		Deterministic: true,
		Description:   "Returns the effective boolean value of the argument",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			ebv, err := item.EffectiveBooleanValue(args[0])
			if err != nil {
				return nil, err
			}
			return boolean(ebv), nil
		},
	},
	&Function{
		Name:          "true",
		ReturnType:    "boolean",
		Deterministic: true,
		Description:   "Returns the boolean value true",
		Handler: func(_ *Call, _ []*item.Sequence) (*item.Sequence, error) {
			return boolean(true), nil
		},
	},
	&Function{
		Name:          "false",
		ReturnType:    "boolean",
		Deterministic: true,
		Description:   "Returns the boolean value false",
		Handler: func(_ *Call, _ []*item.Sequence) (*item.Sequence, error) {
			return boolean(false), nil
		},
	},
	&Function{
		Name:             "static-base-uri",
		ReturnType:       "uri?",
		Deterministic:    true,
		ContextDependent: true,
		Description:      "Returns the base URI of the static context, or the empty sequence when none is set",
		Handler: func(call *Call, _ []*item.Sequence) (*item.Sequence, error) {
			base := call.Dynamic.Static().baseURI()
			if base == nil {
				return item.Empty(), nil
			}
			return item.Singleton(item.NewAnyURI(base)), nil
		},
	},
	&Function{
		Name:             "current-date-time",
		ReturnType:       "date-time",
		ContextDependent: true,
		Description:      "Returns the instant the evaluation run started",
		Handler: func(call *Call, _ []*item.Sequence) (*item.Sequence, error) {
			return item.Singleton(item.NewDateTime(call.Dynamic.Now(), true)), nil
		},
	},
	&Function{
		Name:          "count",
		Parameters:    []Parameter{anyItems("arg")},
		ReturnType:    "integer",
		Deterministic: true,
		Description:   "Returns the number of items in the argument",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			return item.Singleton(item.NewInteger(int64(args[0].Len()))), nil
		},
	},
	&Function{
		Name:           "string",
		ReturnType:     "string",
		Deterministic:  true,
		FocusDependent: true,
		Description:    "Returns the string value of the context item",
		Handler: func(call *Call, _ []*item.Sequence) (*item.Sequence, error) {
			if call.Focus == nil {
				return nil, undefinedFocus("string")
			}
			return stringValue(item.Singleton(call.Focus))
		},
	},
	&Function{
		Name:          "string",
		Parameters:    []Parameter{{Name: "arg", Type: AnyItem, Occurrence: ZeroOrOne}},
		ReturnType:    "string",
		Deterministic: true,
		Description:   "Returns the string value of the argument",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			return stringValue(args[0])
		},
	},
	&Function{
		Name:           "data",
		ReturnType:     "any-atomic*",
		Deterministic:  true,
		FocusDependent: true,
		Description:    "Returns the typed value of the context item",
		Handler: func(call *Call, _ []*item.Sequence) (*item.Sequence, error) {
			if call.Focus == nil {
				return nil, undefinedFocus("data")
			}
			a, err := item.Atomize(call.Focus)
			if err != nil {
				return nil, err
			}
			return item.Singleton(a), nil
		},
	},
	&Function{
		Name:          "data",
		Parameters:    []Parameter{{Name: "arg", Type: AnyAtomic, Occurrence: ZeroOrMore}},
		ReturnType:    "any-atomic*",
		Deterministic: true,
		Description:   "Returns the typed values of the argument",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			return args[0], nil
		},
	},
	&Function{
		Name: "concat",
		Parameters: []Parameter{
			{Name: "arg1", Type: AnyAtomic, Occurrence: ZeroOrOne},
			{Name: "arg2", Type: AnyAtomic, Occurrence: ZeroOrOne},
		},
		Variadic:      true,
		ReturnType:    "string",
		Deterministic: true,
		Description:   "Concatenates the string values of the arguments",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			var sb strings.Builder
			for _, arg := range args {
				if first := arg.First(); first != nil {
					sb.WriteString(first.(item.AtomicItem).String())
				}
			}
			return str(sb.String()), nil
		},
	},
	stringPredicate("contains", "Returns true if the first argument contains the second", strings.Contains),
	stringPredicate("starts-with", "Returns true if the first argument starts with the second", strings.HasPrefix),
	stringPredicate("ends-with", "Returns true if the first argument ends with the second", strings.HasSuffix),
	&Function{
		Name:           "string-length",
		ReturnType:     "integer",
		Deterministic:  true,
		FocusDependent: true,
		Description:    "Returns the number of characters in the string value of the context item",
		Handler: func(call *Call, _ []*item.Sequence) (*item.Sequence, error) {
			if call.Focus == nil {
				return nil, undefinedFocus("string-length")
			}
			s, err := stringValue(item.Singleton(call.Focus))
			if err != nil {
				return nil, err
			}
			return length(s), nil
		},
	},
	&Function{
		Name:          "string-length",
		Parameters:    []Parameter{optionalString("arg")},
		ReturnType:    "integer",
		Deterministic: true,
		Description:   "Returns the number of characters in the argument",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			return length(args[0]), nil
		},
	},
	stringTransform("upper-case", "Converts the argument to upper case", strings.ToUpper),
	stringTransform("lower-case", "Converts the argument to lower case", strings.ToLower),
	&Function{
		Name:           "normalize-space",
		ReturnType:     "string",
		Deterministic:  true,
		FocusDependent: true,
		Description:    "Collapses whitespace in the string value of the context item",
		Handler: func(call *Call, _ []*item.Sequence) (*item.Sequence, error) {
			if call.Focus == nil {
				return nil, undefinedFocus("normalize-space")
			}
			s, err := stringValue(item.Singleton(call.Focus))
			if err != nil {
				return nil, err
			}
			return str(normalizeSpace(stringOf(s))), nil
		},
	},
	stringTransform("normalize-space", "Trims the argument and collapses inner whitespace to single spaces", normalizeSpace),
	&Function{
		Name: "matches",
		Parameters: []Parameter{
			optionalString("input"),
			{Name: "pattern", Type: StringArgument, Occurrence: One},
		},
		ReturnType:       "boolean",
		Deterministic:    true,
		ContextDependent: true,
		Description:      "Returns true if the input contains a match of the regular expression",
		Handler: func(call *Call, args []*item.Sequence) (*item.Sequence, error) {
			return matches(call, stringOf(args[0]), stringOf(args[1]), "")
		},
	},
	&Function{
		Name: "matches",
		Parameters: []Parameter{
			optionalString("input"),
			{Name: "pattern", Type: StringArgument, Occurrence: One},
			{Name: "flags", Type: StringArgument, Occurrence: One},
		},
		ReturnType:       "boolean",
		Deterministic:    true,
		ContextDependent: true,
		Description:      "Returns true if the input contains a match of the regular expression using the flags i, m and s",
		Handler: func(call *Call, args []*item.Sequence) (*item.Sequence, error) {
			return matches(call, stringOf(args[0]), stringOf(args[1]), stringOf(args[2]))
		},
	},
	&Function{
		Name:           "position",
		ReturnType:     "integer",
		Deterministic:  true,
		FocusDependent: true,
		Description:    "Returns the position of the context item in the sequence being processed",
		Handler: func(call *Call, _ []*item.Sequence) (*item.Sequence, error) {
			if call.Size == 0 {
				return nil, undefinedFocus("position")
			}
			return item.Singleton(item.NewInteger(int64(call.Position))), nil
		},
	},
	&Function{
		Name:           "last",
		ReturnType:     "integer",
		Deterministic:  true,
		FocusDependent: true,
		Description:    "Returns the size of the sequence being processed",
		Handler: func(call *Call, _ []*item.Sequence) (*item.Sequence, error) {
			if call.Size == 0 {
				return nil, undefinedFocus("last")
			}
			return item.Singleton(item.NewInteger(int64(call.Size))), nil
		},
	},
	&Function{
		Name:          "sum",
		Parameters:    []Parameter{{Name: "arg", Type: NumericArgument, Occurrence: ZeroOrMore}},
		ReturnType:    "numeric",
		Deterministic: true,
		Description:   "Returns the sum of the argument, or 0 for the empty sequence",
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			atomics, err := item.AtomizeSequence(args[0])
			if err != nil {
				return nil, err
			}
			total, err := item.Sum(atomics)
			if err != nil {
				return nil, err
			}
			return item.Singleton(total), nil
		},
	},
)

// DefaultFunctions returns the built-in function library
func DefaultFunctions() *FunctionLibrary {
	return defaultFunctions
}

func stringPredicate(name, description string, test func(s, substr string) bool) *Function {
	return &Function{
		Name:          name,
		Parameters:    []Parameter{optionalString("arg1"), optionalString("arg2")},
		ReturnType:    "boolean",
		Deterministic: true,
		Description:   description,
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			return boolean(test(stringOf(args[0]), stringOf(args[1]))), nil
		},
	}
}

func stringTransform(name, description string, transform func(string) string) *Function {
	return &Function{
		Name:          name,
		Parameters:    []Parameter{optionalString("arg")},
		ReturnType:    "string",
		Deterministic: true,
		Description:   description,
		Handler: func(_ *Call, args []*item.Sequence) (*item.Sequence, error) {
			return str(transform(stringOf(args[0]))), nil
		},
	}
}

func matches(call *Call, input, pattern, flags string) (*item.Sequence, error) {
	prefix := ""
	for _, flag := range flags {
		switch flag {
		case 'i', 'm', 's':
			if !strings.ContainsRune(prefix, flag) {
				prefix += string(flag)
			}
		default:
			return nil, &EvaluationError{
				Code:    cerrors.ErrInvalidArgument,
				Message: "invalid regular expression flag '" + string(flag) + "'",
			}
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}

	re, err := call.Dynamic.Regexp(pattern)
	if err != nil {
		return nil, &EvaluationError{Code: cerrors.ErrInvalidArgument, Message: "invalid regular expression", Cause: err}
	}
	return boolean(re.MatchString(input)), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stringValue returns the string value of an optional item as a singleton
// string sequence; the empty sequence has the string value "".
func stringValue(s *item.Sequence) (*item.Sequence, error) {
	if s.IsEmpty() {
		return str(""), nil
	}
	a, err := item.Atomize(s.First())
	if err != nil {
		return nil, err
	}
	return str(a.String()), nil
}

// stringOf returns the string held by an optional string argument
func stringOf(s *item.Sequence) string {
	if first := s.First(); first != nil {
		return first.(item.AtomicItem).String()
	}
	return ""
}

func length(s *item.Sequence) *item.Sequence {
	return item.Singleton(item.NewInteger(int64(utf8.RuneCountInString(stringOf(s)))))
}

func boolean(v bool) *item.Sequence {
	return item.Singleton(item.NewBoolean(v))
}

func str(s string) *item.Sequence {
	return item.Singleton(item.NewString(s))
}

func undefinedFocus(function string) error {
	return &EvaluationError{
		Code:    cerrors.ErrUndefinedFocus,
		Message: function + "() requires a context item",
	}
}
