package parser

import (
	"fmt"
	"strings"
)

var compareGeneralText = map[CompareOperator]string{
	CompareEqual:        "=",
	CompareNotEqual:     "!=",
	CompareLess:         "<",
	CompareLessEqual:    "<=",
	CompareGreater:      ">",
	CompareGreaterEqual: ">=",
}

var compareValueText = map[CompareOperator]string{
	CompareEqual:        "eq",
	CompareNotEqual:     "ne",
	CompareLess:         "lt",
	CompareLessEqual:    "le",
	CompareGreater:      "gt",
	CompareGreaterEqual: "ge",
}

var arithmeticText = map[ArithmeticOperator]string{
	ArithmeticAdd:      "+",
	ArithmeticSubtract: "-",
	ArithmeticMultiply: "*",
	ArithmeticModulo:   "mod",
}

// Format renders an AST back to Metapath text. Operands of operators are
// parenthesized, so the output parses to an equivalent tree regardless of
// the layout of the original text.
func Format(expr Expr) string {
	var sb strings.Builder
	format(&sb, expr)
	return sb.String()
}

func format(sb *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *ContextItemExpr:
		sb.WriteString(".")
	case *ParentExpr:
		sb.WriteString("..")
	case *RootExpr:
		sb.WriteString("/")
	case *StepExpr:
		if e.Axis == AxisFlag {
			sb.WriteString("@")
		}
		if e.IsWildcard() {
			sb.WriteString("*")
		} else {
			sb.WriteString(e.Name)
		}
	case *PathExpr:
		formatPath(sb, e)
	case *FilterExpr:
		switch e.Base.(type) {
		case *PathExpr, *RootExpr:
			sb.WriteString("(")
			format(sb, e.Base)
			sb.WriteString(")")
		default:
			formatOperand(sb, e.Base)
		}
		for _, predicate := range e.Predicates {
			sb.WriteString("[")
			format(sb, predicate)
			sb.WriteString("]")
		}
	case *StringLiteral:
		sb.WriteString("'")
		sb.WriteString(strings.ReplaceAll(e.Value, "'", "''"))
		sb.WriteString("'")
	case *IntegerLiteral:
		sb.WriteString(e.Value)
	case *DecimalLiteral:
		sb.WriteString(e.Value)
	case *SequenceExpr:
		sb.WriteString("(")
		formatList(sb, e.Items, ", ")
		sb.WriteString(")")
	case *ValueComparisonExpr:
		formatBinary(sb, e.Left, compareValueText[e.Operator], e.Right)
	case *GeneralComparisonExpr:
		formatBinary(sb, e.Left, compareGeneralText[e.Operator], e.Right)
	case *ArithmeticExpr:
		formatBinary(sb, e.Left, arithmeticText[e.Operator], e.Right)
	case *IntegerDivisionExpr:
		formatBinary(sb, e.Left, "div", e.Right)
	case *NegateExpr:
		sb.WriteString("-")
		formatOperand(sb, e.Operand)
	case *AndExpr:
		formatOperands(sb, e.Operands, " and ")
	case *OrExpr:
		formatOperands(sb, e.Operands, " or ")
	case *UnionExpr:
		formatOperands(sb, e.Operands, " | ")
	case *FunctionCallExpr:
		sb.WriteString(e.Name)
		sb.WriteString("(")
		formatList(sb, e.Arguments, ", ")
		sb.WriteString(")")
	case *CastExpr:
		formatOperand(sb, e.Operand)
		sb.WriteString(" cast as ")
		sb.WriteString(e.TypeName)
		if e.AllowEmpty {
			sb.WriteString("?")
		}
	default:
		panic(fmt.Sprintf("parser: cannot format %T", expr))
	}
}

func formatPath(sb *strings.Builder, e *PathExpr) {
	separator := "/"
	if e.Descendant {
		separator = "//"
	}
	switch e.Left.(type) {
	case *RootExpr:
	case *PathExpr:
		format(sb, e.Left)
	default:
		formatOperand(sb, e.Left)
	}
	sb.WriteString(separator)
	formatOperand(sb, e.Right)
}

func formatBinary(sb *strings.Builder, left Expr, operator string, right Expr) {
	formatOperand(sb, left)
	sb.WriteString(" ")
	sb.WriteString(operator)
	sb.WriteString(" ")
	formatOperand(sb, right)
}

func formatOperands(sb *strings.Builder, operands []Expr, separator string) {
	for i, operand := range operands {
		if i > 0 {
			sb.WriteString(separator)
		}
		formatOperand(sb, operand)
	}
}

func formatList(sb *strings.Builder, items []Expr, separator string) {
	for i, item := range items {
		if i > 0 {
			sb.WriteString(separator)
		}
		format(sb, item)
	}
}

// formatOperand parenthesizes anything that is not a primary or a path
func formatOperand(sb *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *ContextItemExpr, *ParentExpr, *StepExpr, *StringLiteral, *IntegerLiteral,
		*DecimalLiteral, *SequenceExpr, *FunctionCallExpr, *FilterExpr:
		format(sb, expr)
	case *PathExpr:
		if _, rooted := e.Left.(*RootExpr); rooted {
			sb.WriteString("(")
			format(sb, expr)
			sb.WriteString(")")
			return
		}
		format(sb, expr)
	default:
		sb.WriteString("(")
		format(sb, expr)
		sb.WriteString(")")
	}
}
