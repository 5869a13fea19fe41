// Package metapath compiles and evaluates Metapath expressions against
// node-item trees.
package metapath

import (
	"fmt"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
	"github.com/metaschema-go/metaschema/compiler/parser"
	"github.com/metaschema-go/metaschema/internal/datatype"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// Expression is a compiled Metapath expression. It is immutable and may be
// evaluated concurrently against different dynamic contexts.
type Expression struct {
	text   string
	source string
	ast    parser.Expr
	static *StaticContext
	calls  map[*parser.FunctionCallExpr]*Function
	casts  map[*parser.CastExpr]castTarget
}

type castTarget struct {
	atomic  item.AtomicType
	adapter *datatype.Adapter
}

// Option configures compilation
type Option func(*compileOptions)

type compileOptions struct {
	source string
	static *StaticContext
}

// WithSource names the origin of the expression text in error locations
func WithSource(source string) Option {
	return func(o *compileOptions) {
		o.source = source
	}
}

// WithStaticContext compiles against static instead of NewStaticContext()
func WithStaticContext(static *StaticContext) Option {
	return func(o *compileOptions) {
		o.static = static
	}
}

// Compile parses text and resolves its function calls and cast types. Any
// syntax or static error is reported as a *CompileError.
func Compile(text string, opts ...Option) (*Expression, error) {
	options := compileOptions{source: "<expression>"}
	for _, opt := range opts {
		opt(&options)
	}
	if options.static == nil {
		options.static = NewStaticContext()
	}

	ast, parseErrors := parser.Parse(text, options.source)
	if parseErrors.HasErrors() {
		return nil, newCompileError(text, parseErrors.CompilerErrors())
	}

	expr := &Expression{
		text:   text,
		source: options.source,
		ast:    ast,
		static: options.static,
		calls:  make(map[*parser.FunctionCallExpr]*Function),
		casts:  make(map[*parser.CastExpr]castTarget),
	}

	var staticErrors cerrors.ErrorList
	walk(ast, func(node parser.Expr) {
		switch n := node.(type) {
		case *parser.FunctionCallExpr:
			if err := expr.resolveFunction(n); err != nil {
				staticErrors = append(staticErrors, *err)
			}
		case *parser.CastExpr:
			if err := expr.resolveCast(n); err != nil {
				staticErrors = append(staticErrors, *err)
			}
		}
	})
	if len(staticErrors) > 0 {
		return nil, newCompileError(text, staticErrors)
	}
	return expr, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// expressions fixed at build time.
func MustCompile(text string, opts ...Option) *Expression {
	expr, err := Compile(text, opts...)
	if err != nil {
		panic(err)
	}
	return expr
}

func newCompileError(text string, errs cerrors.ErrorList) *CompileError {
	enriched := make(cerrors.ErrorList, len(errs))
	for i, err := range errs {
		enriched[i] = cerrors.EnrichError(err, text)
	}
	return &CompileError{Expression: text, Errors: enriched}
}

func (e *Expression) resolveFunction(call *parser.FunctionCallExpr) *cerrors.CompilerError {
	lib := e.static.functions()
	if fn, ok := lib.Lookup(call.Name, len(call.Arguments)); ok {
		e.calls[call] = fn
		return nil
	}

	loc := location(call.Location, len(call.Name))
	overloads := lib.Overloads(call.Name)
	if len(overloads) == 0 {
		err := cerrors.NewCompilerError(cerrors.ErrUndefinedFunction,
			fmt.Sprintf("Unknown function '%s'", call.Name), loc)
		if suggestion := cerrors.SuggestName(call.Name, lib.Names()); suggestion != nil {
			err = err.WithSuggestion(*suggestion)
		}
		return &err
	}

	err := cerrors.NewCompilerError(cerrors.ErrWrongArgumentCount,
		fmt.Sprintf("Function '%s' does not accept %d arguments", call.Name, len(call.Arguments)), loc)
	err = err.WithSuggestion(cerrors.FixSuggestion{
		Description: "Expected " + overloads[0].Signature(),
		Confidence:  0.7,
	})
	return &err
}

func (e *Expression) resolveCast(cast *parser.CastExpr) *cerrors.CompilerError {
	if t, ok := item.LookupType(cast.TypeName); ok {
		e.casts[cast] = castTarget{atomic: t}
		return nil
	}
	types := e.static.dataTypes()
	if adapter, ok := types.Lookup(cast.TypeName); ok {
		e.casts[cast] = castTarget{atomic: adapter.ItemType(), adapter: adapter}
		return nil
	}

	err := cerrors.NewCompilerError(cerrors.ErrUndefinedType,
		fmt.Sprintf("Unknown type '%s'", cast.TypeName), location(cast.Location, len(cast.TypeName)))
	if suggestion := cerrors.SuggestName(cast.TypeName, types.Names()); suggestion != nil {
		err = err.WithSuggestion(*suggestion)
	}
	return &err
}

// Text returns the expression as it was written
func (e *Expression) Text() string { return e.text }

// Source returns the name given with WithSource
func (e *Expression) Source() string { return e.source }

// AST returns the parsed expression tree
func (e *Expression) AST() parser.Expr { return e.ast }

// String returns the canonical text of the expression
func (e *Expression) String() string { return parser.Format(e.ast) }

func location(loc parser.SourceLocation, length int) cerrors.SourceLocation {
	return cerrors.SourceLocation{Source: loc.Source, Line: loc.Line, Column: loc.Column, Length: length}
}

// walk calls fn for expr and every expression nested in it, parents first
func walk(expr parser.Expr, fn func(parser.Expr)) {
	fn(expr)
	for _, child := range children(expr) {
		walk(child, fn)
	}
}

func children(expr parser.Expr) []parser.Expr {
	switch e := expr.(type) {
	case *parser.PathExpr:
		return []parser.Expr{e.Left, e.Right}
	case *parser.FilterExpr:
		return append([]parser.Expr{e.Base}, e.Predicates...)
	case *parser.SequenceExpr:
		return e.Items
	case *parser.ValueComparisonExpr:
		return []parser.Expr{e.Left, e.Right}
	case *parser.GeneralComparisonExpr:
		return []parser.Expr{e.Left, e.Right}
	case *parser.ArithmeticExpr:
		return []parser.Expr{e.Left, e.Right}
	case *parser.IntegerDivisionExpr:
		return []parser.Expr{e.Left, e.Right}
	case *parser.NegateExpr:
		return []parser.Expr{e.Operand}
	case *parser.AndExpr:
		return e.Operands
	case *parser.OrExpr:
		return e.Operands
	case *parser.UnionExpr:
		return e.Operands
	case *parser.FunctionCallExpr:
		return e.Arguments
	case *parser.CastExpr:
		return []parser.Expr{e.Operand}
	}
	return nil
}
