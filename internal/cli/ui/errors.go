package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// MessageLevel represents the severity of a message
type MessageLevel int

const (
	LevelError MessageLevel = iota
	LevelWarning
	LevelInfo
)

// MessageOptions configures message formatting
type MessageOptions struct {
	Level   MessageLevel
	Context string
	Problem string
	// Detail is printed verbatim below the problem, indented.
	Detail       string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

func paint(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// FormatMessage renders a message such as
//
//	✗ UNKNOWN DEFINITION: catalg
//	   No assembly named 'catalg'.
//
//	   Did you mean: catalog?
//
//	   → List definitions: metaschema check-schema schema.yaml
func FormatMessage(opts MessageOptions) string {
	var b strings.Builder

	var header, body *color.Color
	var symbol string
	switch opts.Level {
	case LevelWarning:
		header, body, symbol = paint(opts.NoColor, color.FgYellow, color.Bold), paint(opts.NoColor, color.FgYellow), "!"
	case LevelInfo:
		header, body, symbol = paint(opts.NoColor, color.FgCyan, color.Bold), paint(opts.NoColor, color.FgCyan), "i"
	default:
		header, body, symbol = paint(opts.NoColor, color.FgRed, color.Bold), paint(opts.NoColor, color.FgRed), "✗"
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s\n", symbol, strings.ToUpper(opts.Context))
		body.Fprintf(&b, "   %s\n", opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Detail != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(opts.Detail, "\n"), "\n") {
			fmt.Fprintf(&b, "   %s\n", line)
		}
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		paint(opts.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := paint(opts.NoColor, color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteMessage writes a formatted message to w
func WriteMessage(w io.Writer, opts MessageOptions) {
	fmt.Fprint(w, FormatMessage(opts))
}

// FormatSuccess creates a success line
func FormatSuccess(message string, noColor bool) string {
	return paint(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// UnknownDefinitionError reports a definition name that the schema lacks
func UnknownDefinitionError(kind, name, schemaFile string, known []string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Context:     "unknown definition",
		Problem:     fmt.Sprintf("No %s named '%s'.", kind, name),
		Suggestions: Suggest(name, known),
		HelpCommands: []string{
			"List definitions: metaschema check-schema " + schemaFile,
		},
		NoColor: noColor,
	})
}

// CompileError reports an expression that does not compile. Detail is the
// terminal rendering of the compiler errors.
func CompileError(expression, detail string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Context: "invalid expression",
		Problem: fmt.Sprintf("Cannot compile '%s'.", expression),
		Detail:  detail,
		NoColor: noColor,
	})
}

// LoadError reports a schema, constraint or document file that could not
// be loaded
func LoadError(file string, err error, noColor bool) string {
	return FormatMessage(MessageOptions{
		Context: "load failed",
		Problem: fmt.Sprintf("Cannot load '%s'.", file),
		Detail:  err.Error(),
		NoColor: noColor,
	})
}

// ConfigError reports an invalid configuration
func ConfigError(message string, noColor bool) string {
	return FormatMessage(MessageOptions{
		Context: "configuration error",
		Problem: message,
		HelpCommands: []string{
			"View config: cat metaschema.yaml",
			"Get help: metaschema --help",
		},
		NoColor: noColor,
	})
}
