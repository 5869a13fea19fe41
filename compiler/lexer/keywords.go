package lexer

// operatorKeywords maps the word operators of Metapath to their token types.
// Names are never reserved: the scanner always emits TOKEN_IDENTIFIER and the
// parser consults this table only where an operator may appear.
var operatorKeywords = map[string]TokenType{
	"and":   TOKEN_AND,
	"or":    TOKEN_OR,
	"div":   TOKEN_DIV,
	"idiv":  TOKEN_IDIV,
	"mod":   TOKEN_MOD,
	"union": TOKEN_UNION,
	"cast":  TOKEN_CAST,
	"as":    TOKEN_AS,
	"eq":    TOKEN_EQ,
	"ne":    TOKEN_NE,
	"lt":    TOKEN_LT,
	"le":    TOKEN_LE,
	"gt":    TOKEN_GT,
	"ge":    TOKEN_GE,
}

// LookupOperator returns the operator token type for a word
func LookupOperator(word string) (TokenType, bool) {
	tokenType, ok := operatorKeywords[word]
	return tokenType, ok
}
