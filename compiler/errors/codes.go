package errors

// Error code constants organized by phase
// E001-E099: Lexer errors
// E100-E199: Parser errors
// E200-E299: Static errors
// E300-E399: Evaluation errors
// E400-E499: Constraint setup errors

const (
	// Lexer errors (E001-E099)
	ErrUnterminatedString  = "E001"
	ErrInvalidCharacter    = "E002"
	ErrInvalidNumber       = "E003"
	ErrUnterminatedComment = "E004"

	// Parser errors (E100-E199)
	ErrUnexpectedToken    = "E100"
	ErrExpectedExpression = "E101"
	ErrExpectedName       = "E102"
	ErrExpectedParen      = "E103"
	ErrExpectedBracket    = "E104"
	ErrExpectedTypeName   = "E105"
	ErrTrailingInput      = "E106"

	// Static errors (E200-E299)
	ErrUndefinedFunction  = "E200"
	ErrWrongArgumentCount = "E201"
	ErrUndefinedType      = "E202"

	// Evaluation errors (E300-E399)
	ErrTypeMismatch        = "E300"
	ErrDivisionByZero      = "E301"
	ErrInvalidCast         = "E302"
	ErrInvalidBooleanValue = "E303"
	ErrCardinality         = "E304"
	ErrNotAtomizable       = "E305"
	ErrUndefinedFocus      = "E306"
	ErrNotComparable       = "E307"
	ErrInvalidArgument     = "E308"

	// Constraint setup errors (E400-E499)
	ErrInvalidConstraint    = "E400"
	ErrInvalidPattern       = "E401"
	ErrUndefinedIndex       = "E402"
	ErrUnknownDataType      = "E403"
	ErrConstraintNotAllowed = "E404"
)

// ErrorMessages maps error codes to their default messages
var ErrorMessages = map[string]string{
	ErrUnterminatedString:  "Unterminated string literal",
	ErrInvalidCharacter:    "Invalid character",
	ErrInvalidNumber:       "Invalid numeric literal",
	ErrUnterminatedComment: "Unterminated comment",

	ErrUnexpectedToken:    "Unexpected token",
	ErrExpectedExpression: "Expected expression",
	ErrExpectedName:       "Expected name",
	ErrExpectedParen:      "Expected ')'",
	ErrExpectedBracket:    "Expected ']'",
	ErrExpectedTypeName:   "Expected type name",
	ErrTrailingInput:      "Unexpected input after expression",

	ErrUndefinedFunction:  "Undefined function",
	ErrWrongArgumentCount: "Wrong number of arguments",
	ErrUndefinedType:      "Undefined type",

	ErrTypeMismatch:        "Type mismatch",
	ErrDivisionByZero:      "Division by zero",
	ErrInvalidCast:         "Invalid cast",
	ErrInvalidBooleanValue: "No effective boolean value",
	ErrCardinality:         "Wrong number of items",
	ErrNotAtomizable:       "Node has no value",
	ErrUndefinedFocus:      "Context item is undefined",
	ErrNotComparable:       "Values are not comparable",
	ErrInvalidArgument:     "Invalid function argument",

	ErrInvalidConstraint:    "Invalid constraint",
	ErrInvalidPattern:       "Invalid regular expression",
	ErrUndefinedIndex:       "Undefined index",
	ErrUnknownDataType:      "Unknown data type",
	ErrConstraintNotAllowed: "Constraint kind not allowed on definition",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}

// GetPhaseForCode returns the phase name for an error code
func GetPhaseForCode(code string) string {
	if len(code) != 4 || code[0] != 'E' {
		return "unknown"
	}

	switch {
	case code >= "E001" && code <= "E099":
		return "lexer"
	case code >= "E100" && code <= "E199":
		return "parser"
	case code >= "E200" && code <= "E299":
		return "static"
	case code >= "E300" && code <= "E399":
		return "evaluation"
	case code >= "E400" && code <= "E499":
		return "constraint"
	default:
		return "unknown"
	}
}
