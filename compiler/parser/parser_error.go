package parser

import (
	"fmt"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
)

// ParseError represents a lexical or syntax error in an expression
type ParseError struct {
	Code     string
	Message  string
	Location SourceLocation
	Length   int
}

// Error implements the error interface
func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Location.Source, e.Location.Line, e.Location.Column, e.Message)
}

// ErrorCode returns the catalogue code of the error
func (e ParseError) ErrorCode() string {
	if e.Code == "" {
		return cerrors.ErrUnexpectedToken
	}
	return e.Code
}

// CompilerError converts the parse error to a CompilerError
func (e ParseError) CompilerError() cerrors.CompilerError {
	return cerrors.NewCompilerError(e.ErrorCode(), e.Message, cerrors.SourceLocation{
		Source: e.Location.Source,
		Line:   e.Location.Line,
		Column: e.Location.Column,
		Length: e.Length,
	})
}

// ParseErrorList is a collection of parse errors
type ParseErrorList []ParseError

// Error implements the error interface for error lists
func (el ParseErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	if len(el) == 1 {
		return el[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", el[0].Error(), len(el)-1)
}

// HasErrors returns true if there are any errors
func (el ParseErrorList) HasErrors() bool {
	return len(el) > 0
}

// CompilerErrors converts every entry to a CompilerError
func (el ParseErrorList) CompilerErrors() cerrors.ErrorList {
	result := make(cerrors.ErrorList, len(el))
	for i, err := range el {
		result[i] = err.CompilerError()
	}
	return result
}
