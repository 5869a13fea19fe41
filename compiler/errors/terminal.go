package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// FormatForTerminal formats a CompilerError for terminal output
func (e CompilerError) FormatForTerminal() string {
	var sb strings.Builder

	severityColor := getSeverityColor(e.Severity)
	severityColor.Fprintf(&sb, "%s[%s]", e.Severity, e.Code)
	fmt.Fprintf(&sb, ": %s\n", e.Message)

	color.New(color.FgCyan).Fprint(&sb, "  --> ")
	fmt.Fprintf(&sb, "%s\n", e.Location)

	if e.Context.SourceLine != "" {
		sb.WriteString(formatSourceContext(e.Context, severityColor))
	}

	if e.Suggestion != nil {
		sb.WriteString(formatSuggestion(*e.Suggestion))
	}

	return sb.String()
}

// formatSourceContext renders the source line with a caret underline
func formatSourceContext(ctx ErrorContext, highlight *color.Color) string {
	var sb strings.Builder
	gutter := color.New(color.FgBlue)

	gutter.Fprint(&sb, "   | ")
	sb.WriteString(ctx.SourceLine)
	sb.WriteString("\n")

	gutter.Fprint(&sb, "   | ")
	width := ctx.Highlight.End - ctx.Highlight.Start
	if width < 1 {
		width = 1
	}
	sb.WriteString(strings.Repeat(" ", max(ctx.Highlight.Start, 0)))
	highlight.Fprint(&sb, strings.Repeat("^", width))
	sb.WriteString("\n")

	return sb.String()
}

// formatSuggestion renders a fix suggestion
func formatSuggestion(suggestion FixSuggestion) string {
	var sb strings.Builder
	color.New(color.FgGreen, color.Bold).Fprint(&sb, "  help: ")
	sb.WriteString(suggestion.Description)
	sb.WriteString("\n")
	return sb.String()
}

func getSeverityColor(severity Severity) *color.Color {
	switch severity {
	case Fatal, Error:
		return color.New(color.FgRed, color.Bold)
	case Warning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan, color.Bold)
	}
}

// FormatSummary formats an error and warning count line
func FormatSummary(errorCount, warningCount int) string {
	switch {
	case errorCount == 0 && warningCount == 0:
		return color.GreenString("No errors")
	case warningCount == 0:
		return color.RedString("%d error(s)", errorCount)
	case errorCount == 0:
		return color.YellowString("%d warning(s)", warningCount)
	default:
		return fmt.Sprintf("%s, %s",
			color.RedString("%d error(s)", errorCount),
			color.YellowString("%d warning(s)", warningCount))
	}
}
