package parser

import (
	"fmt"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
	"github.com/metaschema-go/metaschema/compiler/lexer"
)

// Parser transforms a Metapath token stream into an AST
type Parser struct {
	tokens  []lexer.Token
	current int
	errors  []ParseError
}

// New creates a new Parser from a token stream
func New(tokens []lexer.Token) *Parser {
	return &Parser{
		tokens: tokens,
		errors: []ParseError{},
	}
}

// Parse scans and parses a complete expression. Source names the origin of
// the text for error locations.
func Parse(text, source string) (Expr, ParseErrorList) {
	tokens, lexErrors := lexer.New(text, source).ScanTokens()
	if len(lexErrors) > 0 {
		errs := make(ParseErrorList, len(lexErrors))
		for i, le := range lexErrors {
			errs[i] = ParseError{
				Code:     le.Code,
				Message:  le.Message,
				Location: SourceLocation{Source: le.Source, Line: le.Line, Column: le.Column},
				Length:   le.Length,
			}
		}
		return nil, errs
	}
	return New(tokens).Parse()
}

// Parse parses the token stream and returns the AST and any errors
func (p *Parser) Parse() (Expr, ParseErrorList) {
	expr := p.parseExpr()
	if expr != nil && !p.isAtEnd() {
		p.addErrorAt(p.peek(), cerrors.ErrTrailingInput,
			fmt.Sprintf("Unexpected '%s' after expression", p.peek().Lexeme))
	}
	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return expr, nil
}

// Helper methods for token manipulation

// isAtEnd checks if we're at the end of the token stream
func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TOKEN_EOF
}

// peek returns the current token without consuming it
func (p *Parser) peek() lexer.Token {
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current]
}

// peekNext returns the token after the current one
func (p *Parser) peekNext() lexer.Token {
	if p.current+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+1]
}

// previous returns the previous token
func (p *Parser) previous() lexer.Token {
	if p.current > 0 {
		return p.tokens[p.current-1]
	}
	return p.tokens[0]
}

// advance consumes and returns the current token
func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

// check checks if the current token is of the given type
func (p *Parser) check(tokenType lexer.TokenType) bool {
	return p.peek().Type == tokenType
}

// match consumes the current token if it matches any of the given types
func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, tokenType := range types {
		if p.check(tokenType) {
			p.advance()
			return true
		}
	}
	return false
}

// consume consumes a token of the given type or records an error
func (p *Parser) consume(tokenType lexer.TokenType, code, message string) (lexer.Token, bool) {
	if p.check(tokenType) {
		return p.advance(), true
	}
	p.addErrorAt(p.peek(), code, message)
	return lexer.Token{}, false
}

// operator returns the operator the current token stands for in infix
// position. Word operators are names everywhere else.
func (p *Parser) operator() lexer.TokenType {
	tok := p.peek()
	if tok.Type == lexer.TOKEN_IDENTIFIER {
		if op, ok := lexer.LookupOperator(tok.Lexeme); ok {
			return op
		}
	}
	return tok.Type
}

// addErrorAt records an error located at token
func (p *Parser) addErrorAt(token lexer.Token, code, message string) {
	p.errors = append(p.errors, ParseError{
		Code:     code,
		Message:  message,
		Location: TokenToLocation(token),
		Length:   token.End - token.Start,
	})
}
