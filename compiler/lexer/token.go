package lexer

import "fmt"

// TokenType represents the type of token in a Metapath expression
type TokenType int

const (
	// Special tokens
	TOKEN_EOF TokenType = iota
	TOKEN_ERROR

	// Literals
	TOKEN_STRING_LITERAL
	TOKEN_INTEGER_LITERAL
	TOKEN_DECIMAL_LITERAL
	TOKEN_IDENTIFIER

	// Delimiters
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_LBRACKET
	TOKEN_RBRACKET
	TOKEN_COMMA

	// Path operators
	TOKEN_AT
	TOKEN_DOT
	TOKEN_DOT_DOT
	TOKEN_SLASH
	TOKEN_SLASH_SLASH

	// Arithmetic and union operators
	TOKEN_STAR
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_PIPE
	TOKEN_QUESTION

	// General comparison operators
	TOKEN_EQUAL
	TOKEN_BANG_EQUAL
	TOKEN_LESS
	TOKEN_LESS_EQUAL
	TOKEN_GREATER
	TOKEN_GREATER_EQUAL

	// Keyword operators, only recognized by the parser in operator position
	TOKEN_AND
	TOKEN_OR
	TOKEN_DIV
	TOKEN_IDIV
	TOKEN_MOD
	TOKEN_UNION
	TOKEN_CAST
	TOKEN_AS
	TOKEN_EQ
	TOKEN_NE
	TOKEN_LT
	TOKEN_LE
	TOKEN_GT
	TOKEN_GE
)

// Token represents a single lexical token
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{} // Decoded string literal or cleaned numeric lexeme
	Line    int
	Column  int
	Source  string // Name of the expression source
	Start   int    // Rune offset in source where token starts
	End     int    // Rune offset in source where token ends (exclusive)
}

var tokenNames = map[TokenType]string{
	TOKEN_EOF:             "EOF",
	TOKEN_ERROR:           "ERROR",
	TOKEN_STRING_LITERAL:  "STRING",
	TOKEN_INTEGER_LITERAL: "INTEGER",
	TOKEN_DECIMAL_LITERAL: "DECIMAL",
	TOKEN_IDENTIFIER:      "NAME",
	TOKEN_LPAREN:          "(",
	TOKEN_RPAREN:          ")",
	TOKEN_LBRACKET:        "[",
	TOKEN_RBRACKET:        "]",
	TOKEN_COMMA:           ",",
	TOKEN_AT:              "@",
	TOKEN_DOT:             ".",
	TOKEN_DOT_DOT:         "..",
	TOKEN_SLASH:           "/",
	TOKEN_SLASH_SLASH:     "//",
	TOKEN_STAR:            "*",
	TOKEN_PLUS:            "+",
	TOKEN_MINUS:           "-",
	TOKEN_PIPE:            "|",
	TOKEN_QUESTION:        "?",
	TOKEN_EQUAL:           "=",
	TOKEN_BANG_EQUAL:      "!=",
	TOKEN_LESS:            "<",
	TOKEN_LESS_EQUAL:      "<=",
	TOKEN_GREATER:         ">",
	TOKEN_GREATER_EQUAL:   ">=",
	TOKEN_AND:             "and",
	TOKEN_OR:              "or",
	TOKEN_DIV:             "div",
	TOKEN_IDIV:            "idiv",
	TOKEN_MOD:             "mod",
	TOKEN_UNION:           "union",
	TOKEN_CAST:            "cast",
	TOKEN_AS:              "as",
	TOKEN_EQ:              "eq",
	TOKEN_NE:              "ne",
	TOKEN_LT:              "lt",
	TOKEN_LE:              "le",
	TOKEN_GT:              "gt",
	TOKEN_GE:              "ge",
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int(t))
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s '%s' at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

// LexError represents a lexical analysis error
type LexError struct {
	Code    string
	Message string
	Line    int
	Column  int
	Length  int
	Source  string
}

// Error implements the error interface
func (e LexError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Source, e.Line, e.Column, e.Message)
}
