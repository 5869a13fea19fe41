package parser

import (
	"fmt"
	"strings"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
	"github.com/metaschema-go/metaschema/compiler/lexer"
)

// Operator precedence levels (higher number = higher precedence)
const (
	PREC_NONE           = iota
	PREC_OR             // or
	PREC_AND            // and
	PREC_COMPARISON     // = != < <= > >= eq ne lt le gt ge (non-associative)
	PREC_ADDITIVE       // + -
	PREC_MULTIPLICATIVE // * div idiv mod
	PREC_UNION          // | union
	PREC_CAST           // cast as
	PREC_UNARY          // - + (unary)
	PREC_PATH           // / //
)

var generalComparisons = map[lexer.TokenType]CompareOperator{
	lexer.TOKEN_EQUAL:         CompareEqual,
	lexer.TOKEN_BANG_EQUAL:    CompareNotEqual,
	lexer.TOKEN_LESS:          CompareLess,
	lexer.TOKEN_LESS_EQUAL:    CompareLessEqual,
	lexer.TOKEN_GREATER:       CompareGreater,
	lexer.TOKEN_GREATER_EQUAL: CompareGreaterEqual,
}

var valueComparisons = map[lexer.TokenType]CompareOperator{
	lexer.TOKEN_EQ: CompareEqual,
	lexer.TOKEN_NE: CompareNotEqual,
	lexer.TOKEN_LT: CompareLess,
	lexer.TOKEN_LE: CompareLessEqual,
	lexer.TOKEN_GT: CompareGreater,
	lexer.TOKEN_GE: CompareGreaterEqual,
}

// parseExpr parses a comma separated sequence of expressions
func (p *Parser) parseExpr() Expr {
	loc := TokenToLocation(p.peek())
	first := p.parseExprSingle()
	if first == nil {
		return nil
	}
	if !p.check(lexer.TOKEN_COMMA) {
		return first
	}

	items := []Expr{first}
	for p.match(lexer.TOKEN_COMMA) {
		next := p.parseExprSingle()
		if next == nil {
			return nil
		}
		items = append(items, next)
	}
	return &SequenceExpr{Items: items, Location: loc}
}

// parseExprSingle parses one expression without top-level commas
func (p *Parser) parseExprSingle() Expr {
	return p.parseExpressionWithPrecedence(PREC_OR)
}

// parseExpressionWithPrecedence implements Pratt parsing / operator precedence climbing
func (p *Parser) parseExpressionWithPrecedence(minPrec int) Expr {
	left := p.parsePrefixExpression()
	if left == nil {
		return nil
	}

	for {
		precedence := p.infixPrecedence()
		if precedence == PREC_NONE || precedence < minPrec {
			break
		}

		left = p.parseInfixExpression(left, precedence)
		if left == nil {
			return nil
		}
	}

	return left
}

// infixPrecedence returns the precedence of the operator at the current token
func (p *Parser) infixPrecedence() int {
	op := p.operator()
	switch op {
	case lexer.TOKEN_OR:
		return PREC_OR
	case lexer.TOKEN_AND:
		return PREC_AND
	case lexer.TOKEN_PLUS, lexer.TOKEN_MINUS:
		return PREC_ADDITIVE
	case lexer.TOKEN_STAR, lexer.TOKEN_DIV, lexer.TOKEN_IDIV, lexer.TOKEN_MOD:
		return PREC_MULTIPLICATIVE
	case lexer.TOKEN_PIPE, lexer.TOKEN_UNION:
		return PREC_UNION
	case lexer.TOKEN_CAST:
		return PREC_CAST
	case lexer.TOKEN_SLASH, lexer.TOKEN_SLASH_SLASH:
		return PREC_PATH
	}
	if _, ok := generalComparisons[op]; ok {
		return PREC_COMPARISON
	}
	if _, ok := valueComparisons[op]; ok {
		return PREC_COMPARISON
	}
	return PREC_NONE
}

// parsePrefixExpression parses unary operators, rooted paths and steps
func (p *Parser) parsePrefixExpression() Expr {
	startToken := p.peek()
	loc := TokenToLocation(startToken)

	switch {
	case p.match(lexer.TOKEN_MINUS):
		operand := p.parseExpressionWithPrecedence(PREC_UNARY)
		if operand == nil {
			return nil
		}
		return &NegateExpr{Operand: operand, Location: loc}

	case p.match(lexer.TOKEN_PLUS):
		return p.parseExpressionWithPrecedence(PREC_UNARY)

	case p.match(lexer.TOKEN_SLASH):
		root := &RootExpr{Location: loc}
		if !p.canStartStep() {
			return root
		}
		right := p.parseStepExpression()
		if right == nil {
			return nil
		}
		return &PathExpr{Left: root, Right: right, Location: loc}

	case p.match(lexer.TOKEN_SLASH_SLASH):
		right := p.parseStepExpression()
		if right == nil {
			return nil
		}
		return &PathExpr{Left: &RootExpr{Location: loc}, Right: right, Descendant: true, Location: loc}
	}

	return p.parseStepExpression()
}

// parseInfixExpression parses the operator at the current token with left as
// its left operand
func (p *Parser) parseInfixExpression(left Expr, precedence int) Expr {
	opToken := p.advance()
	loc := TokenToLocation(opToken)
	op := opToken.Type
	if op == lexer.TOKEN_IDENTIFIER {
		op, _ = lexer.LookupOperator(opToken.Lexeme)
	}

	switch op {
	case lexer.TOKEN_SLASH, lexer.TOKEN_SLASH_SLASH:
		right := p.parseStepExpression()
		if right == nil {
			return nil
		}
		return &PathExpr{Left: left, Right: right, Descendant: op == lexer.TOKEN_SLASH_SLASH, Location: loc}

	case lexer.TOKEN_CAST:
		return p.parseCast(left, loc)
	}

	right := p.parseExpressionWithPrecedence(precedence + 1)
	if right == nil {
		if len(p.errors) == 0 {
			p.addErrorAt(opToken, cerrors.ErrExpectedExpression,
				fmt.Sprintf("Expected expression after '%s'", opToken.Lexeme))
		}
		return nil
	}

	switch op {
	case lexer.TOKEN_OR:
		if or, ok := left.(*OrExpr); ok {
			or.Operands = append(or.Operands, right)
			return or
		}
		return &OrExpr{Operands: []Expr{left, right}, Location: loc}

	case lexer.TOKEN_AND:
		if and, ok := left.(*AndExpr); ok {
			and.Operands = append(and.Operands, right)
			return and
		}
		return &AndExpr{Operands: []Expr{left, right}, Location: loc}

	case lexer.TOKEN_PIPE, lexer.TOKEN_UNION:
		if union, ok := left.(*UnionExpr); ok {
			union.Operands = append(union.Operands, right)
			return union
		}
		return &UnionExpr{Operands: []Expr{left, right}, Location: loc}

	case lexer.TOKEN_PLUS:
		return &ArithmeticExpr{Left: left, Operator: ArithmeticAdd, Right: right, Location: loc}
	case lexer.TOKEN_MINUS:
		return &ArithmeticExpr{Left: left, Operator: ArithmeticSubtract, Right: right, Location: loc}
	case lexer.TOKEN_STAR:
		return &ArithmeticExpr{Left: left, Operator: ArithmeticMultiply, Right: right, Location: loc}
	case lexer.TOKEN_MOD:
		return &ArithmeticExpr{Left: left, Operator: ArithmeticModulo, Right: right, Location: loc}
	case lexer.TOKEN_DIV, lexer.TOKEN_IDIV:
		return &IntegerDivisionExpr{Left: left, Right: right, Location: loc}
	}

	var result Expr
	if cmp, ok := generalComparisons[op]; ok {
		result = &GeneralComparisonExpr{Left: left, Operator: cmp, Right: right, Location: loc}
	} else if cmp, ok := valueComparisons[op]; ok {
		result = &ValueComparisonExpr{Left: left, Operator: cmp, Right: right, Location: loc}
	} else {
		p.addErrorAt(opToken, cerrors.ErrUnexpectedToken,
			fmt.Sprintf("Unexpected operator '%s'", opToken.Lexeme))
		return nil
	}

	if p.infixPrecedence() == PREC_COMPARISON {
		p.addErrorAt(p.peek(), cerrors.ErrUnexpectedToken, "Comparison operators cannot be chained")
		return nil
	}
	return result
}

// parseCast parses "as TypeName?" after the cast keyword
func (p *Parser) parseCast(operand Expr, loc SourceLocation) Expr {
	if p.operator() != lexer.TOKEN_AS {
		p.addErrorAt(p.peek(), cerrors.ErrUnexpectedToken, "Expected 'as' after 'cast'")
		return nil
	}
	p.advance()

	typeName, ok := p.consume(lexer.TOKEN_IDENTIFIER, cerrors.ErrExpectedTypeName, "Expected type name after 'cast as'")
	if !ok {
		return nil
	}

	return &CastExpr{
		Operand:    operand,
		TypeName:   typeName.Lexeme,
		AllowEmpty: p.match(lexer.TOKEN_QUESTION),
		Location:   loc,
	}
}

// canStartStep reports whether the current token can begin a step
func (p *Parser) canStartStep() bool {
	switch p.peek().Type {
	case lexer.TOKEN_IDENTIFIER, lexer.TOKEN_AT, lexer.TOKEN_STAR, lexer.TOKEN_DOT, lexer.TOKEN_DOT_DOT,
		lexer.TOKEN_LPAREN, lexer.TOKEN_STRING_LITERAL, lexer.TOKEN_INTEGER_LITERAL, lexer.TOKEN_DECIMAL_LITERAL:
		return true
	}
	return false
}

// parseStepExpression parses a primary expression or name step followed by
// any predicates
func (p *Parser) parseStepExpression() Expr {
	loc := TokenToLocation(p.peek())
	base := p.parsePrimaryExpression()
	if base == nil {
		return nil
	}

	var predicates []Expr
	for p.match(lexer.TOKEN_LBRACKET) {
		predicate := p.parseExpr()
		if predicate == nil {
			return nil
		}
		if _, ok := p.consume(lexer.TOKEN_RBRACKET, cerrors.ErrExpectedBracket, "Expected ']' after predicate"); !ok {
			return nil
		}
		predicates = append(predicates, predicate)
	}

	if len(predicates) == 0 {
		return base
	}
	return &FilterExpr{Base: base, Predicates: predicates, Location: loc}
}

// parsePrimaryExpression parses literals, groups, function calls and steps
func (p *Parser) parsePrimaryExpression() Expr {
	startToken := p.peek()
	loc := TokenToLocation(startToken)

	switch {
	case p.match(lexer.TOKEN_STRING_LITERAL):
		return &StringLiteral{Value: startToken.Literal.(string), Location: loc}

	case p.match(lexer.TOKEN_INTEGER_LITERAL):
		return &IntegerLiteral{Value: startToken.Lexeme, Location: loc}

	case p.match(lexer.TOKEN_DECIMAL_LITERAL):
		value := startToken.Lexeme
		if strings.HasSuffix(value, ".") {
			value += "0"
		}
		return &DecimalLiteral{Value: value, Location: loc}

	case p.match(lexer.TOKEN_LPAREN):
		return p.parseGroupExpression(loc)

	case p.match(lexer.TOKEN_DOT):
		return &ContextItemExpr{Location: loc}

	case p.match(lexer.TOKEN_DOT_DOT):
		return &ParentExpr{Location: loc}

	case p.match(lexer.TOKEN_STAR):
		return &StepExpr{Axis: AxisModel, Location: loc}

	case p.match(lexer.TOKEN_AT):
		if p.match(lexer.TOKEN_STAR) {
			return &StepExpr{Axis: AxisFlag, Location: loc}
		}
		name, ok := p.consume(lexer.TOKEN_IDENTIFIER, cerrors.ErrExpectedName, "Expected flag name after '@'")
		if !ok {
			return nil
		}
		return &StepExpr{Axis: AxisFlag, Name: name.Lexeme, Location: loc}

	case p.check(lexer.TOKEN_IDENTIFIER):
		if p.peekNext().Type == lexer.TOKEN_LPAREN {
			return p.parseFunctionCall()
		}
		p.advance()
		return &StepExpr{Axis: AxisModel, Name: startToken.Lexeme, Location: loc}
	}

	if p.isAtEnd() {
		p.addErrorAt(startToken, cerrors.ErrExpectedExpression, "Unexpected end of expression")
	} else {
		p.addErrorAt(startToken, cerrors.ErrExpectedExpression,
			fmt.Sprintf("Expected expression, got '%s'", startToken.Lexeme))
	}
	return nil
}

// parseGroupExpression parses "()" or a parenthesized expression
func (p *Parser) parseGroupExpression(loc SourceLocation) Expr {
	if p.match(lexer.TOKEN_RPAREN) {
		return &SequenceExpr{Location: loc}
	}

	inner := p.parseExpr()
	if inner == nil {
		return nil
	}
	if _, ok := p.consume(lexer.TOKEN_RPAREN, cerrors.ErrExpectedParen, "Expected ')' to close group"); !ok {
		return nil
	}
	return inner
}

// parseFunctionCall parses name(arg, ...)
func (p *Parser) parseFunctionCall() Expr {
	nameToken := p.advance()
	loc := TokenToLocation(nameToken)
	p.advance() // consume '('

	args := []Expr{}
	if !p.match(lexer.TOKEN_RPAREN) {
		for {
			arg := p.parseExprSingle()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.match(lexer.TOKEN_COMMA) {
				break
			}
		}
		if _, ok := p.consume(lexer.TOKEN_RPAREN, cerrors.ErrExpectedParen,
			fmt.Sprintf("Expected ')' after arguments to %s", nameToken.Lexeme)); !ok {
			return nil
		}
	}

	return &FunctionCallExpr{Name: nameToken.Lexeme, Arguments: args, Location: loc}
}
