package errors

import (
	"encoding/json"
	"fmt"
)

// Severity represents the severity level of an error
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "fatal":
		*s = Fatal
	default:
		*s = Error
	}
	return nil
}

// SourceLocation identifies a position inside an expression. Source names
// where the expression came from (a constraint id, a file, "<input>").
type SourceLocation struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Length int    `json:"length"`
}

// String formats the location as source:line:column
func (l SourceLocation) String() string {
	source := l.Source
	if source == "" {
		source = "<expression>"
	}
	return fmt.Sprintf("%s:%d:%d", source, l.Line, l.Column)
}

// ErrorContext holds the offending source line and the span to highlight
type ErrorContext struct {
	SourceLine string    `json:"source_line"`
	Highlight  Highlight `json:"highlight"`
}

// Highlight specifies which columns of the source line to highlight
type Highlight struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FixSuggestion is a proposed correction for an error
type FixSuggestion struct {
	Description string  `json:"description"`
	OldCode     string  `json:"old_code"`
	NewCode     string  `json:"new_code"`
	Confidence  float64 `json:"confidence"`
}

// CompilerError is an error raised while scanning, parsing or statically
// checking a Metapath expression
type CompilerError struct {
	Phase      string // "lexer", "parser", "static"
	Code       string // "E001", "E100", ...
	Message    string
	Location   SourceLocation
	Severity   Severity
	Context    ErrorContext
	Suggestion *FixSuggestion
}

// Error implements the error interface
func (e CompilerError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Code, e.Message)
}

// NewCompilerError creates a new CompilerError. The phase is derived from the code.
func NewCompilerError(code, message string, location SourceLocation) CompilerError {
	return CompilerError{
		Phase:    GetPhaseForCode(code),
		Code:     code,
		Message:  message,
		Location: location,
		Severity: Error,
	}
}

// WithContext adds context to the error
func (e CompilerError) WithContext(ctx ErrorContext) CompilerError {
	e.Context = ctx
	return e
}

// WithSuggestion adds a fix suggestion to the error
func (e CompilerError) WithSuggestion(suggestion FixSuggestion) CompilerError {
	e.Suggestion = &suggestion
	return e
}

// MarshalJSON implements json.Marshaler
func (e CompilerError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Phase      string         `json:"phase"`
		Code       string         `json:"code"`
		Message    string         `json:"message"`
		Severity   Severity       `json:"severity"`
		Location   SourceLocation `json:"location"`
		Context    ErrorContext   `json:"context"`
		Suggestion *FixSuggestion `json:"suggestion,omitempty"`
	}{
		Phase:      e.Phase,
		Code:       e.Code,
		Message:    e.Message,
		Severity:   e.Severity,
		Location:   e.Location,
		Context:    e.Context,
		Suggestion: e.Suggestion,
	})
}

// IsError returns true if the error is at Error or Fatal severity
func (e CompilerError) IsError() bool {
	return e.Severity == Error || e.Severity == Fatal
}

// IsWarning returns true if the error is at Warning severity
func (e CompilerError) IsWarning() bool {
	return e.Severity == Warning
}
