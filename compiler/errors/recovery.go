package errors

import (
	"fmt"
	"strings"
)

// ErrorList collects the errors raised while compiling one expression
type ErrorList []CompilerError

// Error implements the error interface
func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
	}
}

// HasErrors reports whether the list contains an error or fatal entry
func (l ErrorList) HasErrors() bool {
	for _, err := range l {
		if err.IsError() {
			return true
		}
	}
	return false
}

// First returns the first entry or nil
func (l ErrorList) First() *CompilerError {
	if len(l) == 0 {
		return nil
	}
	return &l[0]
}

// ByCode returns the entries with the given code
func (l ErrorList) ByCode(code string) []CompilerError {
	var result []CompilerError
	for _, err := range l {
		if err.Code == code {
			result = append(result, err)
		}
	}
	return result
}

// FormatForTerminal formats every entry followed by a summary line
func (l ErrorList) FormatForTerminal() string {
	var sb strings.Builder
	warnings := 0
	for _, err := range l {
		if err.IsWarning() {
			warnings++
		}
		sb.WriteString(err.FormatForTerminal())
		sb.WriteString("\n")
	}
	sb.WriteString(FormatSummary(len(l)-warnings, warnings))
	sb.WriteString("\n")
	return sb.String()
}
