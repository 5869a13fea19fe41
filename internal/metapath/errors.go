package metapath

import (
	"errors"
	"fmt"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
	"github.com/metaschema-go/metaschema/compiler/parser"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// CompileError reports why an expression could not be compiled. It carries
// every syntax and static error found in the text.
type CompileError struct {
	Expression string
	Errors     cerrors.ErrorList
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %s", e.Expression, e.Errors.Error())
}

// Unwrap exposes the first underlying CompilerError
func (e *CompileError) Unwrap() error {
	if first := e.Errors.First(); first != nil {
		return *first
	}
	return nil
}

// FormatForTerminal renders the errors with source context
func (e *CompileError) FormatForTerminal() string {
	return e.Errors.FormatForTerminal()
}

// EvaluationError aborts the evaluation of one expression. Code is an E3xx
// entry of the error catalogue.
type EvaluationError struct {
	Code     string
	Message  string
	Location parser.SourceLocation
	Cause    error
}

func (e *EvaluationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Location.Line > 0 {
		msg = fmt.Sprintf("%s:%d:%d: %s", e.Location.Source, e.Location.Line, e.Location.Column, msg)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// Is matches another *EvaluationError with the same code, so callers can
// write errors.Is(err, metapath.ErrDivisionByZero).
func (e *EvaluationError) Is(target error) bool {
	var other *EvaluationError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// Sentinels for errors.Is checks against evaluation failures
var (
	ErrTypeMismatch        = &EvaluationError{Code: cerrors.ErrTypeMismatch}
	ErrDivisionByZero      = &EvaluationError{Code: cerrors.ErrDivisionByZero}
	ErrInvalidCast         = &EvaluationError{Code: cerrors.ErrInvalidCast}
	ErrInvalidBooleanValue = &EvaluationError{Code: cerrors.ErrInvalidBooleanValue}
	ErrCardinality         = &EvaluationError{Code: cerrors.ErrCardinality}
	ErrNotAtomizable       = &EvaluationError{Code: cerrors.ErrNotAtomizable}
	ErrUndefinedFocus      = &EvaluationError{Code: cerrors.ErrUndefinedFocus}
	ErrNotComparable       = &EvaluationError{Code: cerrors.ErrNotComparable}
	ErrInvalidArgument     = &EvaluationError{Code: cerrors.ErrInvalidArgument}
)

func newEvaluationError(expr parser.Expr, code, format string, args ...any) *EvaluationError {
	e := &EvaluationError{Code: code, Message: fmt.Sprintf(format, args...)}
	if expr != nil {
		e.Location = expr.GetLocation()
	}
	return e
}

// wrapError converts an error raised by the item model into an
// EvaluationError located at expr
func wrapError(expr parser.Expr, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	code := cerrors.ErrTypeMismatch
	switch {
	case errors.Is(err, item.ErrDivisionByZero):
		code = cerrors.ErrDivisionByZero
	case errors.Is(err, item.ErrInvalidCast):
		code = cerrors.ErrInvalidCast
	case errors.Is(err, item.ErrInvalidBooleanValue):
		code = cerrors.ErrInvalidBooleanValue
	case errors.Is(err, item.ErrNotComparable):
		code = cerrors.ErrNotComparable
	case errors.Is(err, item.ErrNoValue):
		code = cerrors.ErrNotAtomizable
	}

	e := &EvaluationError{Code: code, Message: cerrors.GetErrorMessage(code), Cause: err}
	if expr != nil {
		e.Location = expr.GetLocation()
	}
	return e
}
