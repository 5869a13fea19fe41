package lexer

import (
	"strings"
	"unicode"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
)

// Lexer tokenizes Metapath expressions
type Lexer struct {
	source      []rune     // Expression text as runes for Unicode support
	start       int        // Start position of current token
	current     int        // Current position in source
	line        int        // Current line number
	column      int        // Current column number
	startColumn int        // Column where current token started
	name        string     // Name of the expression source
	tokens      []Token    // Collected tokens
	errors      []LexError // Collected errors
}

// New creates a new Lexer for the given expression text
func New(source, name string) *Lexer {
	return &Lexer{
		source:      []rune(source),
		line:        1,
		column:      1,
		startColumn: 1,
		name:        name,
		tokens:      make([]Token, 0, len(source)/3+1),
	}
}

// ScanTokens scans all tokens from the source and returns them with any errors
func (l *Lexer) ScanTokens() ([]Token, []LexError) {
	for !l.isAtEnd() {
		l.start = l.current
		l.startColumn = l.column
		l.scanToken()
	}

	l.tokens = append(l.tokens, Token{
		Type:   TOKEN_EOF,
		Line:   l.line,
		Column: l.column,
		Source: l.name,
		Start:  l.current,
		End:    l.current,
	})

	return l.tokens, l.errors
}

// scanToken scans a single token
func (l *Lexer) scanToken() {
	r := l.advance()

	switch r {
	case '(':
		if l.match(':') {
			l.scanComment()
		} else {
			l.addToken(TOKEN_LPAREN, nil)
		}
	case ')':
		l.addToken(TOKEN_RPAREN, nil)
	case '[':
		l.addToken(TOKEN_LBRACKET, nil)
	case ']':
		l.addToken(TOKEN_RBRACKET, nil)
	case ',':
		l.addToken(TOKEN_COMMA, nil)
	case '@':
		l.addToken(TOKEN_AT, nil)
	case '*':
		l.addToken(TOKEN_STAR, nil)
	case '+':
		l.addToken(TOKEN_PLUS, nil)
	case '-':
		l.addToken(TOKEN_MINUS, nil)
	case '|':
		l.addToken(TOKEN_PIPE, nil)
	case '?':
		l.addToken(TOKEN_QUESTION, nil)
	case '=':
		l.addToken(TOKEN_EQUAL, nil)

	case '!':
		if l.match('=') {
			l.addToken(TOKEN_BANG_EQUAL, nil)
		} else {
			l.addError(cerrors.ErrInvalidCharacter, "Unexpected character: '!'")
		}
	case '<':
		if l.match('=') {
			l.addToken(TOKEN_LESS_EQUAL, nil)
		} else {
			l.addToken(TOKEN_LESS, nil)
		}
	case '>':
		if l.match('=') {
			l.addToken(TOKEN_GREATER_EQUAL, nil)
		} else {
			l.addToken(TOKEN_GREATER, nil)
		}
	case '/':
		if l.match('/') {
			l.addToken(TOKEN_SLASH_SLASH, nil)
		} else {
			l.addToken(TOKEN_SLASH, nil)
		}
	case '.':
		switch {
		case l.match('.'):
			l.addToken(TOKEN_DOT_DOT, nil)
		case l.isDigit(l.peek()):
			l.scanNumber()
		default:
			l.addToken(TOKEN_DOT, nil)
		}

	case '\'', '"':
		l.scanString(r)

	case ' ', '\r', '\t':
		// Ignore whitespace

	case '\n':
		l.line++
		l.column = 1

	default:
		if l.isDigit(r) {
			l.scanNumber()
		} else if l.isNameStart(r) {
			l.scanName()
		} else {
			l.addError(cerrors.ErrInvalidCharacter, "Unexpected character: '"+string(r)+"'")
		}
	}
}

// scanComment skips a possibly nested (: ... :) comment
func (l *Lexer) scanComment() {
	depth := 1
	for !l.isAtEnd() {
		r := l.advance()
		switch {
		case r == '\n':
			l.line++
			l.column = 1
		case r == '(' && l.match(':'):
			depth++
		case r == ':' && l.match(')'):
			depth--
			if depth == 0 {
				return
			}
		}
	}
	l.addError(cerrors.ErrUnterminatedComment, "Unterminated comment")
}

// scanString scans a string literal delimited by quote. A doubled delimiter
// stands for one literal delimiter character.
func (l *Lexer) scanString(quote rune) {
	var builder strings.Builder

	for {
		if l.isAtEnd() {
			l.addError(cerrors.ErrUnterminatedString, "Unterminated string literal")
			return
		}
		r := l.advance()
		if r == quote {
			if l.match(quote) {
				builder.WriteRune(quote)
				continue
			}
			break
		}
		if r == '\n' {
			l.line++
			l.column = 1
		}
		builder.WriteRune(r)
	}

	l.addToken(TOKEN_STRING_LITERAL, builder.String())
}

// scanNumber scans an integer or decimal literal. The literal value is the
// lexeme, leaving numeric conversion to arbitrary precision decimals.
func (l *Lexer) scanNumber() {
	isDecimal := l.source[l.start] == '.'

	for l.isDigit(l.peek()) {
		l.advance()
	}

	if !isDecimal && l.peek() == '.' && l.peekNext() != '.' {
		isDecimal = true
		l.advance()
		for l.isDigit(l.peek()) {
			l.advance()
		}
	}

	if l.peek() == 'e' || l.peek() == 'E' {
		isDecimal = true
		l.advance()

		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}

		if !l.isDigit(l.peek()) {
			l.addError(cerrors.ErrInvalidNumber, "Invalid exponent in numeric literal")
			return
		}

		for l.isDigit(l.peek()) {
			l.advance()
		}
	}

	if l.isNameStart(l.peek()) {
		for l.isNameChar(l.peek()) {
			l.advance()
		}
		l.addError(cerrors.ErrInvalidNumber, "Invalid numeric literal: "+string(l.source[l.start:l.current]))
		return
	}

	lexeme := string(l.source[l.start:l.current])
	if isDecimal {
		l.addToken(TOKEN_DECIMAL_LITERAL, lexeme)
	} else {
		l.addToken(TOKEN_INTEGER_LITERAL, lexeme)
	}
}

// scanName scans a name. Names may contain '-' and '.', so subtraction
// requires surrounding whitespace when the left operand is a name.
func (l *Lexer) scanName() {
	for l.isNameChar(l.peek()) {
		if l.peek() == '.' && l.peekNext() == '.' {
			break
		}
		l.advance()
	}

	lexeme := string(l.source[l.start:l.current])
	l.addToken(TOKEN_IDENTIFIER, lexeme)
}

// Helper methods

// isAtEnd checks if we've reached the end of the source
func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

// advance consumes and returns the current character
func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	r := l.source[l.current]
	l.current++
	l.column++
	return r
}

// match consumes the current character if it is the expected one
func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.current] != expected {
		return false
	}
	l.current++
	l.column++
	return true
}

// peek returns the current character without consuming it
func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

// peekNext returns the next character without consuming it
func (l *Lexer) peekNext() rune {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

// isDigit checks if a rune is a digit
func (l *Lexer) isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isNameStart checks if a rune may start a name
func (l *Lexer) isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

// isNameChar checks if a rune may continue a name
func (l *Lexer) isNameChar(r rune) bool {
	return l.isNameStart(r) || l.isDigit(r) || r == '-' || r == '.'
}

// addToken adds a token to the token list
func (l *Lexer) addToken(tokenType TokenType, literal interface{}) {
	l.tokens = append(l.tokens, Token{
		Type:    tokenType,
		Lexeme:  string(l.source[l.start:l.current]),
		Literal: literal,
		Line:    l.line,
		Column:  l.startColumn,
		Source:  l.name,
		Start:   l.start,
		End:     l.current,
	})
}

// addError adds an error to the error list
func (l *Lexer) addError(code, message string) {
	l.errors = append(l.errors, LexError{
		Code:    code,
		Message: message,
		Line:    l.line,
		Column:  l.startColumn,
		Length:  l.current - l.start,
		Source:  l.name,
	})
}
