package metapath

import (
	"fmt"
	"sort"
	"strings"

	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// Occurrence is the number of items a parameter accepts
type Occurrence int

const (
	One Occurrence = iota
	ZeroOrOne
	ZeroOrMore
	OneOrMore
)

// String returns the occurrence indicator used in signatures
func (o Occurrence) String() string {
	switch o {
	case ZeroOrOne:
		return "?"
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	default:
		return ""
	}
}

func (o Occurrence) accepts(n int) bool {
	switch o {
	case One:
		return n == 1
	case ZeroOrOne:
		return n <= 1
	case OneOrMore:
		return n >= 1
	default:
		return true
	}
}

// ArgumentType controls how an argument is converted before the handler runs
type ArgumentType int

const (
	// AnyItem passes nodes and atomic items unchanged
	AnyItem ArgumentType = iota
	// AnyAtomic atomizes the argument
	AnyAtomic
	// StringArgument atomizes the argument and converts every item to a string
	StringArgument
	// NumericArgument atomizes the argument; strings are cast to decimal
	NumericArgument
)

var argumentTypeNames = map[ArgumentType]string{
	AnyItem:         "item()",
	AnyAtomic:       "any-atomic",
	StringArgument:  "string",
	NumericArgument: "numeric",
}

// Parameter describes one declared argument of a function
type Parameter struct {
	Name       string
	Type       ArgumentType
	Occurrence Occurrence
}

// Call is what a handler sees of the evaluation that invoked it
type Call struct {
	Dynamic  *DynamicContext
	Focus    item.Item
	Position int
	Size     int
}

// Handler implements a function. Arguments have already been converted as
// declared by the function's parameters.
type Handler func(call *Call, args []*item.Sequence) (*item.Sequence, error)

// Function is a library function together with its signature
type Function struct {
	Name       string
	Parameters []Parameter
	// Variadic functions accept any number of repetitions of the last parameter.
	Variadic         bool
	ReturnType       string
	Deterministic    bool
	ContextDependent bool
	FocusDependent   bool
	Description      string
	Handler          Handler
}

// Accepts reports whether the function can be called with arity arguments
func (f *Function) Accepts(arity int) bool {
	if f.Variadic {
		return arity >= len(f.Parameters)
	}
	return arity == len(f.Parameters)
}

// parameter returns the declaration governing argument i
func (f *Function) parameter(i int) Parameter {
	if i >= len(f.Parameters) {
		return f.Parameters[len(f.Parameters)-1]
	}
	return f.Parameters[i]
}

// Signature renders the function signature
func (f *Function) Signature() string {
	params := make([]string, 0, len(f.Parameters)+1)
	for _, p := range f.Parameters {
		params = append(params, fmt.Sprintf("$%s as %s%s", p.Name, argumentTypeNames[p.Type], p.Occurrence))
	}
	if f.Variadic {
		params = append(params, "...")
	}
	return fmt.Sprintf("%s(%s) as %s", f.Name, strings.Join(params, ", "), f.ReturnType)
}

// FunctionLibrary is an immutable table of functions keyed by name. Names
// may be overloaded by arity.
type FunctionLibrary struct {
	byName map[string][]*Function
}

// NewFunctionLibrary builds a library from functions
func NewFunctionLibrary(functions ...*Function) *FunctionLibrary {
	lib := &FunctionLibrary{byName: make(map[string][]*Function)}
	for _, fn := range functions {
		lib.byName[fn.Name] = append(lib.byName[fn.Name], fn)
	}
	return lib
}

// With returns a new library holding the functions of l plus functions
func (l *FunctionLibrary) With(functions ...*Function) *FunctionLibrary {
	all := make([]*Function, 0, len(functions))
	for _, name := range l.Names() {
		all = append(all, l.byName[name]...)
	}
	return NewFunctionLibrary(append(all, functions...)...)
}

// Lookup finds the function with the given name accepting arity arguments
func (l *FunctionLibrary) Lookup(name string, arity int) (*Function, bool) {
	for _, fn := range l.byName[name] {
		if fn.Accepts(arity) {
			return fn, true
		}
	}
	return nil, false
}

// Overloads returns every function registered under name
func (l *FunctionLibrary) Overloads(name string) []*Function {
	return l.byName[name]
}

// Names returns the registered function names in sorted order
func (l *FunctionLibrary) Names() []string {
	names := make([]string, 0, len(l.byName))
	for name := range l.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
