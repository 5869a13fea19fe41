package parser

import "github.com/metaschema-go/metaschema/compiler/lexer"

// SourceLocation represents a location in an expression
type SourceLocation struct {
	Source string
	Line   int
	Column int
}

// TokenToLocation converts a token position to a SourceLocation
func TokenToLocation(token lexer.Token) SourceLocation {
	return SourceLocation{
		Source: token.Source,
		Line:   token.Line,
		Column: token.Column,
	}
}

// Expr is the interface for all Metapath AST nodes. The set of
// implementations is closed; evaluators switch over the concrete types.
type Expr interface {
	exprNode()
	GetLocation() SourceLocation
}

// Axis selects which children a name step navigates to
type Axis int

const (
	// AxisModel selects field and assembly children
	AxisModel Axis = iota
	// AxisFlag selects flags
	AxisFlag
)

// CompareOperator is a comparison operator
type CompareOperator int

const (
	CompareEqual CompareOperator = iota
	CompareNotEqual
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
)

// ArithmeticOperator is a binary arithmetic operator
type ArithmeticOperator int

const (
	ArithmeticAdd ArithmeticOperator = iota
	ArithmeticSubtract
	ArithmeticMultiply
	ArithmeticModulo
)

// ContextItemExpr is the context item "."
type ContextItemExpr struct {
	Location SourceLocation
}

func (e *ContextItemExpr) exprNode()                   {}
func (e *ContextItemExpr) GetLocation() SourceLocation { return e.Location }

// ParentExpr selects the parent of the context node ".."
type ParentExpr struct {
	Location SourceLocation
}

func (e *ParentExpr) exprNode()                   {}
func (e *ParentExpr) GetLocation() SourceLocation { return e.Location }

// RootExpr selects the document node containing the context node "/"
type RootExpr struct {
	Location SourceLocation
}

func (e *RootExpr) exprNode()                   {}
func (e *RootExpr) GetLocation() SourceLocation { return e.Location }

// StepExpr selects children of the context node by name, or all children
// of the axis when Name is empty
type StepExpr struct {
	Axis     Axis
	Name     string
	Location SourceLocation
}

func (e *StepExpr) exprNode()                   {}
func (e *StepExpr) GetLocation() SourceLocation { return e.Location }

// IsWildcard reports whether the step matches every name
func (e *StepExpr) IsWildcard() bool { return e.Name == "" }

// PathExpr evaluates Right once per item selected by Left. Descendant
// paths ("//") evaluate Right against every descendant-or-self node.
type PathExpr struct {
	Left       Expr
	Right      Expr
	Descendant bool
	Location   SourceLocation
}

func (e *PathExpr) exprNode()                   {}
func (e *PathExpr) GetLocation() SourceLocation { return e.Location }

// FilterExpr applies predicates to the result of Base
type FilterExpr struct {
	Base       Expr
	Predicates []Expr
	Location   SourceLocation
}

func (e *FilterExpr) exprNode()                   {}
func (e *FilterExpr) GetLocation() SourceLocation { return e.Location }

// StringLiteral is a string literal
type StringLiteral struct {
	Value    string
	Location SourceLocation
}

func (e *StringLiteral) exprNode()                   {}
func (e *StringLiteral) GetLocation() SourceLocation { return e.Location }

// IntegerLiteral is an integer literal holding its lexical form
type IntegerLiteral struct {
	Value    string
	Location SourceLocation
}

func (e *IntegerLiteral) exprNode()                   {}
func (e *IntegerLiteral) GetLocation() SourceLocation { return e.Location }

// DecimalLiteral is a decimal literal holding its lexical form
type DecimalLiteral struct {
	Value    string
	Location SourceLocation
}

func (e *DecimalLiteral) exprNode()                   {}
func (e *DecimalLiteral) GetLocation() SourceLocation { return e.Location }

// SequenceExpr concatenates the results of its items, "()" or "(a, b)"
type SequenceExpr struct {
	Items    []Expr
	Location SourceLocation
}

func (e *SequenceExpr) exprNode()                   {}
func (e *SequenceExpr) GetLocation() SourceLocation { return e.Location }

// ValueComparisonExpr compares two single atomic values (eq, ne, lt, ...)
type ValueComparisonExpr struct {
	Left     Expr
	Operator CompareOperator
	Right    Expr
	Location SourceLocation
}

func (e *ValueComparisonExpr) exprNode()                   {}
func (e *ValueComparisonExpr) GetLocation() SourceLocation { return e.Location }

// GeneralComparisonExpr is true when any pair of atomized operand values
// satisfies the operator (=, !=, <, ...)
type GeneralComparisonExpr struct {
	Left     Expr
	Operator CompareOperator
	Right    Expr
	Location SourceLocation
}

func (e *GeneralComparisonExpr) exprNode()                   {}
func (e *GeneralComparisonExpr) GetLocation() SourceLocation { return e.Location }

// ArithmeticExpr is a binary numeric operation
type ArithmeticExpr struct {
	Left     Expr
	Operator ArithmeticOperator
	Right    Expr
	Location SourceLocation
}

func (e *ArithmeticExpr) exprNode()                   {}
func (e *ArithmeticExpr) GetLocation() SourceLocation { return e.Location }

// IntegerDivisionExpr divides and truncates toward zero (div, idiv)
type IntegerDivisionExpr struct {
	Left     Expr
	Right    Expr
	Location SourceLocation
}

func (e *IntegerDivisionExpr) exprNode()                   {}
func (e *IntegerDivisionExpr) GetLocation() SourceLocation { return e.Location }

// NegateExpr is unary minus
type NegateExpr struct {
	Operand  Expr
	Location SourceLocation
}

func (e *NegateExpr) exprNode()                   {}
func (e *NegateExpr) GetLocation() SourceLocation { return e.Location }

// AndExpr is true when every operand's effective boolean value is true
type AndExpr struct {
	Operands []Expr
	Location SourceLocation
}

func (e *AndExpr) exprNode()                   {}
func (e *AndExpr) GetLocation() SourceLocation { return e.Location }

// OrExpr is true when any operand's effective boolean value is true
type OrExpr struct {
	Operands []Expr
	Location SourceLocation
}

func (e *OrExpr) exprNode()                   {}
func (e *OrExpr) GetLocation() SourceLocation { return e.Location }

// UnionExpr combines node sequences without duplicates
type UnionExpr struct {
	Operands []Expr
	Location SourceLocation
}

func (e *UnionExpr) exprNode()                   {}
func (e *UnionExpr) GetLocation() SourceLocation { return e.Location }

// FunctionCallExpr calls a library function
type FunctionCallExpr struct {
	Name      string
	Arguments []Expr
	Location  SourceLocation
}

func (e *FunctionCallExpr) exprNode()                   {}
func (e *FunctionCallExpr) GetLocation() SourceLocation { return e.Location }

// CastExpr converts a single atomic value to the named type. With
// AllowEmpty ("as T?") an empty operand yields the empty sequence.
type CastExpr struct {
	Operand    Expr
	TypeName   string
	AllowEmpty bool
	Location   SourceLocation
}

func (e *CastExpr) exprNode()                   {}
func (e *CastExpr) GetLocation() SourceLocation { return e.Location }
